package models

import (
	"time"

	"github.com/AngelCh415/KPI_GO/internal/classify"
)

// OpportunityRow viene de la hoja de detalle. Fechas ausentes = time.Time{}.
type OpportunityRow struct {
	Salesperson string    `json:"salesperson"`
	Stage       string    `json:"stage"`
	CreatedAt   time.Time `json:"created_at"`
	ClosedAt    time.Time `json:"closed_at"`
	Amount      float64   `json:"amount"`
}

type VisitRow struct {
	Salesperson string           `json:"salesperson"`
	Period      string           `json:"period"` // YYYY-MM o ""
	Client      string           `json:"client"`
	Subject     string           `json:"subject"`
	Category    classify.Subject `json:"category"`
}

type ActivityRow struct {
	Salesperson string          `json:"salesperson"`
	Status      classify.Status `json:"status"`
	Due         time.Time       `json:"due"`
}

type StageAgg struct {
	Sum   float64 `json:"sum"`
	Count float64 `json:"count"`
}

type PivotRow struct {
	Salesperson string              `json:"salesperson"`
	Values      map[string]StageAgg `json:"values"`
}

// PivotModel keeps stage labels in sheet order.
type PivotModel struct {
	Stages []string   `json:"stages"`
	Rows   []PivotRow `json:"rows"`
}

type GoalRecord struct {
	Salesperson        string  `json:"comercial"`
	Year               int     `json:"-"`
	AnnualTarget       float64 `json:"metaAnual"`
	MonthlyOfferTarget float64 `json:"metaOfertas"`
	MonthlyVisitTarget float64 `json:"metaVisitas"`
}

type Dataset struct {
	ID            string           `json:"id"`
	Kind          string           `json:"kind"`
	FileName      string           `json:"file_name"`
	Sheet         string           `json:"sheet"`
	UploadedAt    time.Time        `json:"uploaded_at"`
	Rows          int              `json:"rows"`
	Opportunities []OpportunityRow `json:"-"`
	Visits        []VisitRow       `json:"-"`
	Activities    []ActivityRow    `json:"-"`
	Pivot         *PivotModel      `json:"-"`
}

type UnresolvedName struct {
	Raw        string `json:"raw"`
	Rows       int    `json:"rows"`
	Suggestion string `json:"suggestion,omitempty"`
}

type SkippedSheet struct {
	Sheet  string `json:"sheet"`
	Reason string `json:"reason"`
}

type IngestSummary struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	FileName   string           `json:"file_name"`
	Sheet      string           `json:"sheet"`
	Rows       int              `json:"rows"`
	Unresolved []UnresolvedName `json:"unresolved"`
	Skipped    []SkippedSheet   `json:"skipped"`
	Periods    []string         `json:"periods,omitempty"`
}

// Vistas de KPI: tasas en escala 0-100 y ya redondeadas.

// WinRateRow: Base es el denominador (etapas no totales en pivot, cerradas en detalle).
type WinRateRow struct {
	Salesperson string  `json:"salesperson"`
	Won         float64 `json:"won"`
	Lost        float64 `json:"lost"`
	Base        float64 `json:"base"`
	WonAmount   float64 `json:"won_amount"`
	BaseAmount  float64 `json:"base_amount"`
	RateCount   float64 `json:"rate_count"`
	RateAmount  float64 `json:"rate_amount"`
}

type WinRateReport struct {
	Source string       `json:"source"`
	Rows   []WinRateRow `json:"rows"`
	Total  WinRateRow   `json:"total"`
}

type PipelineRow struct {
	Salesperson string  `json:"salesperson"`
	Amount      float64 `json:"amount"`
	Count       float64 `json:"count"`
}

type PipelineReport struct {
	Source string        `json:"source"`
	Rows   []PipelineRow `json:"rows"`
	Total  PipelineRow   `json:"total"`
}

type AttainmentRow struct {
	Salesperson string  `json:"salesperson"`
	Won         float64 `json:"won"`
	Target      float64 `json:"target"`
	Pct         float64 `json:"pct"`
}

type AttainmentReport struct {
	Year  int             `json:"year"`
	Rows  []AttainmentRow `json:"rows"`
	Total AttainmentRow   `json:"total"`
}

type ForecastRow struct {
	Salesperson string  `json:"salesperson"`
	Goal        float64 `json:"goal"`
	Won         float64 `json:"won"`
	Remaining   float64 `json:"remaining"`
	WinRate     float64 `json:"win_rate"`
	NeededQuote float64 `json:"needed_quote"`
	OpenAmount  float64 `json:"open_amount"`
	Coverage    float64 `json:"coverage"`
	Status      string  `json:"status"`
}

type ForecastReport struct {
	Year  int           `json:"year"`
	Rows  []ForecastRow `json:"rows"`
	Total ForecastRow   `json:"total"`
}

type PeriodCountRow struct {
	Salesperson string         `json:"salesperson"`
	Count       int            `json:"count"`
	Target      float64        `json:"target"`
	Pct         float64        `json:"pct"`
	ByCategory  map[string]int `json:"by_category,omitempty"`
}

type PeriodReport struct {
	Period  string           `json:"period"`
	Periods []string         `json:"periods"`
	Rows    []PeriodCountRow `json:"rows"`
	Total   PeriodCountRow   `json:"total"`
}

type ActivityStatusRow struct {
	Salesperson  string  `json:"salesperson"`
	Completed    int     `json:"completed"`
	Overdue      int     `json:"overdue"`
	Pending      int     `json:"pending"`
	Total        int     `json:"total"`
	CompletedPct float64 `json:"completed_pct"`
	OverduePct   float64 `json:"overdue_pct"`
	PendingPct   float64 `json:"pending_pct"`
}

type ActivityReport struct {
	Rows  []ActivityStatusRow `json:"rows"`
	Total ActivityStatusRow   `json:"total"`
}

type CycleRow struct {
	Salesperson string  `json:"salesperson"`
	Count       int     `json:"count"`
	AvgDays     float64 `json:"avg_days"`
}

type CycleReport struct {
	Mode  string     `json:"mode"`
	Rows  []CycleRow `json:"rows"`
	Total CycleRow   `json:"total"`
}
