package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/KPI_GO/internal/cells"
	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/goals"
	"github.com/AngelCh415/KPI_GO/internal/models"
)

var (
	ErrUnknownKPI = errors.New("unknown kpi")
	ErrNoData     = errors.New("no dataset loaded")
)

// KPI names served by Query.
var KPIs = []string{"winrate", "pipeline", "attainment", "forecast", "offers", "visits", "activities", "cycle"}

type DatasetSource interface {
	Get(kind string) (models.Dataset, bool)
}

type GoalSource interface {
	ForYear(ctx context.Context, year int) goals.Set
}

type Service struct {
	st         DatasetSource
	goals      GoalSource
	roster     []string
	unresolved string
	pipeline   []string
	Now        func() time.Time
}

func NewService(st DatasetSource, g GoalSource, h *config.Heuristics) *Service {
	return &Service{
		st:         st,
		goals:      g,
		roster:     h.Roster,
		unresolved: h.Unresolved,
		pipeline:   h.PipelineStages,
		Now:        time.Now,
	}
}

func (s *Service) scope(v url.Values) Scope {
	return Scope{Roster: s.roster, Unresolved: s.unresolved, Salesperson: strings.TrimSpace(v.Get("salesperson"))}
}

func (s *Service) dataset(kind string) (models.Dataset, bool) {
	if s.st == nil {
		return models.Dataset{}, false
	}
	return s.st.Get(kind)
}

// Query computes the named KPI from the current datasets.
// Params: salesperson, period, year, mode, win_rate, source.
func (s *Service) Query(ctx context.Context, name string, v url.Values) (any, error) {
	sc := s.scope(v)
	year := atoiDef(v.Get("year"), s.Now().Year())
	detail, hasDetail := s.dataset("detail")
	pivot, hasPivot := s.dataset("pivot")
	if hasPivot && pivot.Pivot == nil {
		hasPivot = false
	}

	switch strings.ToLower(name) {
	case "winrate":
		src := strings.ToLower(v.Get("source"))
		switch {
		case hasPivot && src != "detail":
			return WinRateFromPivot(pivot.Pivot, sc), nil
		case hasDetail && src != "pivot":
			return WinRateFromDetail(detail.Opportunities, sc), nil
		}
		return nil, fmt.Errorf("%w: winrate needs a pivot or detail export", ErrNoData)
	case "pipeline":
		src := strings.ToLower(v.Get("source"))
		switch {
		case hasPivot && src != "detail":
			return PipelineFromPivot(pivot.Pivot, s.pipeline, sc), nil
		case hasDetail && src != "pivot":
			return OpenOffersFromDetail(detail.Opportunities, sc), nil
		}
		return nil, fmt.Errorf("%w: pipeline needs a pivot or detail export", ErrNoData)
	case "attainment":
		if !hasPivot && !hasDetail {
			return nil, fmt.Errorf("%w: attainment needs a pivot or detail export", ErrNoData)
		}
		return Attainment(pivotOrNil(pivot, hasPivot), detail.Opportunities, year, s.goals.ForYear(ctx, year), sc), nil
	case "forecast":
		if !hasPivot && !hasDetail {
			return nil, fmt.Errorf("%w: forecast needs a pivot or detail export", ErrNoData)
		}
		won, wonTotal := WonAmounts(pivotOrNil(pivot, hasPivot), detail.Opportunities, year, sc)
		var open models.PipelineReport
		if hasDetail {
			open = OpenOffersFromDetail(detail.Opportunities, sc)
		} else {
			open = PipelineFromPivot(pivot.Pivot, s.pipeline, sc)
		}
		return Forecast(won, wonTotal, open, year, s.goals.ForYear(ctx, year), parseWinRate(v.Get("win_rate")), sc), nil
	case "offers":
		if !hasDetail {
			return nil, fmt.Errorf("%w: offers need a detail export", ErrNoData)
		}
		return Offers(detail.Opportunities, v.Get("period"), s.goals.ForYear(ctx, periodYear(v.Get("period"), year)), sc), nil
	case "visits":
		ds, ok := s.dataset("visits")
		if !ok {
			return nil, fmt.Errorf("%w: visits need a visits export", ErrNoData)
		}
		return Visits(ds.Visits, v.Get("period"), s.goals.ForYear(ctx, periodYear(v.Get("period"), year)), sc), nil
	case "activities":
		ds, ok := s.dataset("activities")
		if !ok {
			return nil, fmt.Errorf("%w: activities need an activities export", ErrNoData)
		}
		return Activities(ds.Activities, sc), nil
	case "cycle":
		if !hasDetail {
			return nil, fmt.Errorf("%w: cycle needs a detail export", ErrNoData)
		}
		return Cycle(detail.Opportunities, strings.ToLower(v.Get("mode")), cells.DayUTC(s.Now().UTC()), sc), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKPI, name)
}

func pivotOrNil(ds models.Dataset, ok bool) *models.PivotModel {
	if !ok {
		return nil
	}
	return ds.Pivot
}

// periodYear: las metas se piden por el año del periodo elegido.
func periodYear(period string, def int) int {
	if y := cells.PeriodYear(period); y > 0 {
		return y
	}
	return def
}

// parseWinRate accepts 0.25, "25" or "25%". Anything else is the default.
func parseWinRate(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return DefaultWinRate
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || f <= 0 {
		return DefaultWinRate
	}
	if f > 1 {
		f /= 100
	}
	if f > 1 {
		return DefaultWinRate
	}
	return f
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return d
	}
	return v
}
