package metrics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/AngelCh415/KPI_GO/internal/cells"
	"github.com/AngelCh415/KPI_GO/internal/classify"
	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

// Scope decides which salespeople a report lists. Per-salesperson rows follow
// roster order and never include the unresolved sentinel; totals are the
// grand sums over every kept record.
type Scope struct {
	Roster      []string
	Unresolved  string
	Salesperson string // "" o "ALL" = todos
}

func (s Scope) all() bool {
	return s.Salesperson == "" || strings.EqualFold(strings.TrimSpace(s.Salesperson), "all")
}

func (s Scope) keep(sp string) bool {
	return s.all() || textnorm.Normalize(sp) == textnorm.Normalize(s.Salesperson)
}

func (s Scope) names() []string {
	if s.all() {
		return s.Roster
	}
	want := textnorm.Normalize(s.Salesperson)
	for _, n := range s.Roster {
		if textnorm.Normalize(n) == want {
			return []string{n}
		}
	}
	return []string{s.Salesperson}
}

// Targets looks up a salesperson's goals.
type Targets interface {
	For(name string) models.GoalRecord
}

type acc struct{ sum, count float64 }

func (a *acc) add(v float64) {
	a.sum += v
	a.count++
}

// SumStages adds every stage of a pivot row except the pivot's own totals.
func SumStages(values map[string]models.StageAgg) models.StageAgg {
	var out models.StageAgg
	for k, v := range values {
		if classify.IsTotalLike(k) {
			continue
		}
		out.Sum += v.Sum
		out.Count += v.Count
	}
	return out
}

// WinRateFromPivot: won / all non-total stages, by count and by amount.
func WinRateFromPivot(p *models.PivotModel, sc Scope) models.WinRateReport {
	by := map[string]*models.WinRateRow{}
	var total models.WinRateRow
	for _, r := range p.Rows {
		if !sc.keep(r.Salesperson) {
			continue
		}
		row := by[r.Salesperson]
		if row == nil {
			row = &models.WinRateRow{Salesperson: r.Salesperson}
			by[r.Salesperson] = row
		}
		for k, v := range r.Values {
			if classify.IsTotalLike(k) {
				continue
			}
			for _, dst := range []*models.WinRateRow{row, &total} {
				dst.Base += v.Count
				dst.BaseAmount += v.Sum
				switch classify.ClassifyStage(k) {
				case classify.StageWon:
					dst.Won += v.Count
					dst.WonAmount += v.Sum
				case classify.StageLost:
					dst.Lost += v.Count
				}
			}
		}
	}
	return winRateReport("pivot", by, total, sc)
}

// WinRateFromDetail: won / closed, where closed means a terminal stage or a
// closing date.
func WinRateFromDetail(rows []models.OpportunityRow, sc Scope) models.WinRateReport {
	by := map[string]*models.WinRateRow{}
	var total models.WinRateRow
	for _, o := range rows {
		if !sc.keep(o.Salesperson) || !classify.IsClosed(o.Stage, o.ClosedAt) {
			continue
		}
		row := by[o.Salesperson]
		if row == nil {
			row = &models.WinRateRow{Salesperson: o.Salesperson}
			by[o.Salesperson] = row
		}
		for _, dst := range []*models.WinRateRow{row, &total} {
			dst.Base++
			dst.BaseAmount += o.Amount
			switch classify.ClassifyStage(o.Stage) {
			case classify.StageWon:
				dst.Won++
				dst.WonAmount += o.Amount
			case classify.StageLost:
				dst.Lost++
			}
		}
	}
	return winRateReport("detail", by, total, sc)
}

func winRateReport(src string, by map[string]*models.WinRateRow, total models.WinRateRow, sc Scope) models.WinRateReport {
	finish := func(r models.WinRateRow) models.WinRateRow {
		r.RateCount = ratePct(r.Won, r.Base)
		r.RateAmount = ratePct(r.WonAmount, r.BaseAmount)
		r.WonAmount = round2(r.WonAmount)
		r.BaseAmount = round2(r.BaseAmount)
		return r
	}
	out := models.WinRateReport{Source: src, Rows: []models.WinRateRow{}}
	for _, n := range sc.names() {
		r := models.WinRateRow{Salesperson: n}
		if got, ok := by[n]; ok {
			r = *got
		}
		out.Rows = append(out.Rows, finish(r))
	}
	total.Salesperson = "TOTAL"
	out.Total = finish(total)
	return out
}

// PipelineFromPivot sums the open pipeline stages of each pivot row.
func PipelineFromPivot(p *models.PivotModel, stages []string, sc Scope) models.PipelineReport {
	by := map[string]*acc{}
	var total acc
	for _, r := range p.Rows {
		if !sc.keep(r.Salesperson) {
			continue
		}
		a := by[r.Salesperson]
		if a == nil {
			a = &acc{}
			by[r.Salesperson] = a
		}
		for k, v := range r.Values {
			if !classify.IsPipelineStage(k, stages) {
				continue
			}
			a.sum += v.Sum
			a.count += v.Count
			total.sum += v.Sum
			total.count += v.Count
		}
	}
	return pipelineReport("pivot", by, total, sc)
}

// OpenOffersFromDetail sums detail rows still open with a non-zero amount.
func OpenOffersFromDetail(rows []models.OpportunityRow, sc Scope) models.PipelineReport {
	by := map[string]*acc{}
	var total acc
	for _, o := range rows {
		if !sc.keep(o.Salesperson) || classify.IsClosed(o.Stage, o.ClosedAt) || o.Amount == 0 {
			continue
		}
		a := by[o.Salesperson]
		if a == nil {
			a = &acc{}
			by[o.Salesperson] = a
		}
		a.add(o.Amount)
		total.add(o.Amount)
	}
	return pipelineReport("detail", by, total, sc)
}

func pipelineReport(src string, by map[string]*acc, total acc, sc Scope) models.PipelineReport {
	out := models.PipelineReport{Source: src, Rows: []models.PipelineRow{}}
	for _, n := range sc.names() {
		r := models.PipelineRow{Salesperson: n}
		if a, ok := by[n]; ok {
			r.Amount, r.Count = round2(a.sum), a.count
		}
		out.Rows = append(out.Rows, r)
	}
	out.Total = models.PipelineRow{Salesperson: "TOTAL", Amount: round2(total.sum), Count: total.count}
	return out
}

// WonAmounts returns won revenue per salesperson for year (0 = every year).
// The pivot, when present, is authoritative; otherwise won detail rows count
// by closing date, falling back to creation date.
func WonAmounts(p *models.PivotModel, rows []models.OpportunityRow, year int, sc Scope) (map[string]float64, float64) {
	by := map[string]float64{}
	var total float64
	if p != nil {
		for _, r := range p.Rows {
			if !sc.keep(r.Salesperson) {
				continue
			}
			for k, v := range r.Values {
				if classify.IsTotalLike(k) || classify.ClassifyStage(k) != classify.StageWon {
					continue
				}
				by[r.Salesperson] += v.Sum
				total += v.Sum
			}
		}
		return by, total
	}
	for _, o := range rows {
		if !sc.keep(o.Salesperson) || classify.ClassifyStage(o.Stage) != classify.StageWon {
			continue
		}
		when := o.ClosedAt
		if when.IsZero() {
			when = o.CreatedAt
		}
		if year != 0 && (when.IsZero() || when.Year() != year) {
			continue
		}
		by[o.Salesperson] += o.Amount
		total += o.Amount
	}
	return by, total
}

// Attainment compares won revenue with the annual target.
func Attainment(p *models.PivotModel, rows []models.OpportunityRow, year int, t Targets, sc Scope) models.AttainmentReport {
	won, wonTotal := WonAmounts(p, rows, year, sc)
	out := models.AttainmentReport{Year: year, Rows: []models.AttainmentRow{}}
	var targetTotal float64
	for _, n := range sc.names() {
		target := t.For(n).AnnualTarget
		targetTotal += target
		out.Rows = append(out.Rows, models.AttainmentRow{
			Salesperson: n,
			Won:         round2(won[n]),
			Target:      target,
			Pct:         attainPct(won[n], target),
		})
	}
	out.Total = models.AttainmentRow{
		Salesperson: "TOTAL",
		Won:         round2(wonTotal),
		Target:      targetTotal,
		Pct:         attainPct(wonTotal, targetTotal),
	}
	return out
}

// DefaultWinRate is the close rate assumed when sizing the quote needed.
const DefaultWinRate = 0.20

// Forecast sizes the quote still needed to reach each annual goal and the
// coverage the open pipeline gives it.
func Forecast(won map[string]float64, wonTotal float64, open models.PipelineReport, year int, t Targets, winRate float64, sc Scope) models.ForecastReport {
	openBy := map[string]float64{}
	for _, r := range open.Rows {
		openBy[r.Salesperson] = r.Amount
	}
	out := models.ForecastReport{Year: year, Rows: []models.ForecastRow{}}
	var goalTotal float64
	for _, n := range sc.names() {
		goal := t.For(n).AnnualTarget
		goalTotal += goal
		out.Rows = append(out.Rows, forecastRow(n, goal, won[n], openBy[n], winRate))
	}
	out.Total = forecastRow("TOTAL", goalTotal, wonTotal, open.Total.Amount, winRate)
	return out
}

func forecastRow(name string, goal, won, open, winRate float64) models.ForecastRow {
	remaining := math.Max(0, goal-won)
	var need float64
	if winRate > 0 {
		need = math.Ceil(remaining / winRate)
	}
	coverage := 100.0
	if need > 0 {
		coverage = math.Round(open / need * 100)
	}
	return models.ForecastRow{
		Salesperson: name,
		Goal:        goal,
		Won:         round2(won),
		Remaining:   round2(remaining),
		WinRate:     math.Round(winRate * 100),
		NeededQuote: need,
		OpenAmount:  round2(open),
		Coverage:    coverage,
		Status:      coverageStatus(coverage),
	}
}

func coverageStatus(pct float64) string {
	switch {
	case pct >= 100:
		return "green"
	case pct >= 80:
		return "yellow"
	}
	return "red"
}

// PeriodAll selects every period at once.
const PeriodAll = "all"

// PeriodUndated selects the rows whose date could not be read.
const PeriodUndated = "undated"

// Periods returns the sorted distinct non-empty periods.
func Periods(ps []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range ps {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// pickPeriod: "" = el más reciente; sin catálogo = todos.
func pickPeriod(want string, catalog []string) string {
	want = strings.TrimSpace(want)
	if strings.EqualFold(want, PeriodAll) {
		return PeriodAll
	}
	if strings.EqualFold(want, PeriodUndated) {
		return PeriodUndated
	}
	if want != "" {
		return want
	}
	if len(catalog) == 0 {
		return PeriodAll
	}
	return catalog[len(catalog)-1]
}

func inPeriod(p, sel string) bool {
	switch sel {
	case PeriodAll:
		return true
	case PeriodUndated:
		return p == ""
	}
	return p == sel
}

type periodItem struct {
	salesperson string
	period      string
	category    string
}

func periodReport(items []periodItem, period string, target func(models.GoalRecord) float64, t Targets, sc Scope) models.PeriodReport {
	ps := make([]string, 0, len(items))
	undated := false
	for _, it := range items {
		ps = append(ps, it.period)
		undated = undated || it.period == ""
	}
	catalog := Periods(ps)
	sel := pickPeriod(period, catalog)
	months := 1.0
	if sel == PeriodAll && len(catalog) > 1 {
		months = float64(len(catalog))
	}

	counts := map[string]int{}
	cats := map[string]map[string]int{}
	total := models.PeriodCountRow{Salesperson: "TOTAL"}
	for _, it := range items {
		if !sc.keep(it.salesperson) || !inPeriod(it.period, sel) {
			continue
		}
		counts[it.salesperson]++
		total.Count++
		if it.category == "" {
			continue
		}
		if cats[it.salesperson] == nil {
			cats[it.salesperson] = map[string]int{}
		}
		cats[it.salesperson][it.category]++
		if total.ByCategory == nil {
			total.ByCategory = map[string]int{}
		}
		total.ByCategory[it.category]++
	}

	listed := catalog
	if undated {
		listed = append(append([]string{}, catalog...), PeriodUndated)
	}
	out := models.PeriodReport{Period: sel, Periods: listed, Rows: []models.PeriodCountRow{}}
	for _, n := range sc.names() {
		tg := target(t.For(n)) * months
		total.Target += tg
		out.Rows = append(out.Rows, models.PeriodCountRow{
			Salesperson: n,
			Count:       counts[n],
			Target:      tg,
			Pct:         countPct(float64(counts[n]), tg),
			ByCategory:  cats[n],
		})
	}
	total.Pct = countPct(float64(total.Count), total.Target)
	out.Total = total
	return out
}

// Offers counts detail rows by creation month against the monthly offer target.
func Offers(rows []models.OpportunityRow, period string, t Targets, sc Scope) models.PeriodReport {
	items := make([]periodItem, 0, len(rows))
	for _, o := range rows {
		if o.CreatedAt.IsZero() {
			continue
		}
		items = append(items, periodItem{salesperson: o.Salesperson, period: cells.Period(o.CreatedAt)})
	}
	return periodReport(items, period, func(g models.GoalRecord) float64 { return g.MonthlyOfferTarget }, t, sc)
}

// Visits counts visit-log rows per month and subject category. Rows without
// a date only show up when every period is selected.
func Visits(rows []models.VisitRow, period string, t Targets, sc Scope) models.PeriodReport {
	items := make([]periodItem, 0, len(rows))
	for _, v := range rows {
		items = append(items, periodItem{salesperson: v.Salesperson, period: v.Period, category: string(v.Category)})
	}
	return periodReport(items, period, func(g models.GoalRecord) float64 { return g.MonthlyVisitTarget }, t, sc)
}

// Activities breaks activities down by status with each status's share.
// Unresolved activities are left out of the total.
func Activities(rows []models.ActivityRow, sc Scope) models.ActivityReport {
	by := map[string]*models.ActivityStatusRow{}
	total := models.ActivityStatusRow{Salesperson: "TOTAL"}
	for _, a := range rows {
		if !sc.keep(a.Salesperson) {
			continue
		}
		r := by[a.Salesperson]
		if r == nil {
			r = &models.ActivityStatusRow{Salesperson: a.Salesperson}
			by[a.Salesperson] = r
		}
		dsts := []*models.ActivityStatusRow{r}
		if a.Salesperson != sc.Unresolved {
			dsts = append(dsts, &total)
		}
		for _, d := range dsts {
			d.Total++
			switch a.Status {
			case classify.StatusCompleted:
				d.Completed++
			case classify.StatusOverdue:
				d.Overdue++
			default:
				d.Pending++
			}
		}
	}
	finish := func(r models.ActivityStatusRow) models.ActivityStatusRow {
		t := float64(r.Total)
		r.CompletedPct = ratePct(float64(r.Completed), t)
		r.OverduePct = ratePct(float64(r.Overdue), t)
		r.PendingPct = ratePct(float64(r.Pending), t)
		return r
	}
	out := models.ActivityReport{Rows: []models.ActivityStatusRow{}}
	for _, n := range sc.names() {
		r := models.ActivityStatusRow{Salesperson: n}
		if got, ok := by[n]; ok {
			r = *got
		}
		out.Rows = append(out.Rows, finish(r))
	}
	out.Total = finish(total)
	return out
}

// Sales cycle modes.
const (
	CycleClosed = "closed"
	CycleWon    = "won"
	CycleAll    = "all"
)

// maxCycleDays descarta fechas basura (más de 10 años)
const maxCycleDays = 3650

// Cycle averages days from creation to close. In "all" mode open offers are
// measured up to today. Negative or implausibly long spans are discarded.
func Cycle(rows []models.OpportunityRow, mode string, today time.Time, sc Scope) models.CycleReport {
	switch mode {
	case CycleWon, CycleAll:
	default:
		mode = CycleClosed
	}
	by := map[string]*acc{}
	var total acc
	for _, o := range rows {
		if !sc.keep(o.Salesperson) || o.CreatedAt.IsZero() {
			continue
		}
		end := o.ClosedAt
		switch mode {
		case CycleClosed:
			if end.IsZero() {
				continue
			}
		case CycleWon:
			if end.IsZero() || classify.ClassifyStage(o.Stage) != classify.StageWon {
				continue
			}
		case CycleAll:
			if end.IsZero() {
				end = today
			}
		}
		days := cells.DayUTC(end).Sub(cells.DayUTC(o.CreatedAt)).Hours() / 24
		if days < 0 || days > maxCycleDays {
			continue
		}
		a := by[o.Salesperson]
		if a == nil {
			a = &acc{}
			by[o.Salesperson] = a
		}
		a.add(days)
		total.add(days)
	}
	out := models.CycleReport{Mode: mode, Rows: []models.CycleRow{}}
	for _, n := range sc.names() {
		r := models.CycleRow{Salesperson: n}
		if a, ok := by[n]; ok {
			r.Count, r.AvgDays = int(a.count), avg(*a)
		}
		out.Rows = append(out.Rows, r)
	}
	out.Total = models.CycleRow{Salesperson: "TOTAL", Count: int(total.count), AvgDays: avg(total)}
	return out
}

func avg(a acc) float64 {
	if a.count == 0 {
		return 0
	}
	return math.Round(a.sum / a.count)
}

// ratePct: denominador 0 -> 0.
func ratePct(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(num / den * 100)
}

// attainPct: sin meta, 100 si hubo ventas y 0 si no.
func attainPct(won, target float64) float64 {
	if target > 0 {
		return math.Round(won / target * 100)
	}
	if won > 0 {
		return 100
	}
	return 0
}

// countPct: sin meta siempre 100, también 0 de 0.
func countPct(n, target float64) float64 {
	if target > 0 {
		return math.Round(n / target * 100)
	}
	return 100
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
