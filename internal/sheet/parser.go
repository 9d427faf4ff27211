package sheet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AngelCh415/KPI_GO/internal/cells"
	"github.com/AngelCh415/KPI_GO/internal/classify"
	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/roster"
	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

type Kind string

const (
	KindDetail     Kind = "detail"
	KindVisits     Kind = "visits"
	KindActivities Kind = "activities"
	KindPivot      Kind = "pivot"
)

var Kinds = []Kind{KindPivot, KindDetail, KindVisits, KindActivities}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Result is what one successful sheet produced, plus the sheets tried and
// rejected before it.
type Result struct {
	Kind          Kind
	Sheet         string
	Opportunities []models.OpportunityRow
	Visits        []models.VisitRow
	Activities    []models.ActivityRow
	Pivot         *models.PivotModel
	Stats         Stats
	Skipped       []*SheetError
}

// Len is the number of rows (or pivot salespeople) produced.
func (r *Result) Len() int {
	switch r.Kind {
	case KindDetail:
		return len(r.Opportunities)
	case KindVisits:
		return len(r.Visits)
	case KindActivities:
		return len(r.Activities)
	case KindPivot:
		if r.Pivot != nil {
			return len(r.Pivot.Rows)
		}
	}
	return 0
}

type Parser struct {
	res        *roster.Resolver
	layouts    map[Kind]layout
	markers    markers
	scanRows   int
	stageFrags []string
	Now        func() time.Time
}

// NewParser compiles the heuristics; every kind needs a layout.
func NewParser(h config.Heuristics, res *roster.Resolver) (*Parser, error) {
	p := &Parser{
		res:      res,
		layouts:  map[Kind]layout{},
		markers:  compileMarkers(h.AggregateMarkers),
		scanRows: h.ScanRows,
		Now:      cells.Today,
	}
	for _, k := range Kinds {
		l, ok := h.Layouts[string(k)]
		if !ok {
			return nil, fmt.Errorf("no layout for %s", k)
		}
		p.layouts[k] = compileLayout(l)
	}
	p.stageFrags = normAll(append([]string{"closed", "ganad", "perdid", "won", "lost"}, h.PipelineStages...))
	return p, nil
}

// Parse tries the workbook's sheets (name hints first, then the rest in
// order) and returns the first that parses. When none does, the error is a
// *WorkbookError listing every sheet's reason.
func (p *Parser) Parse(kind Kind, wb *Workbook) (*Result, error) {
	l, ok := p.layouts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var failed []*SheetError
	for _, s := range orderByHints(wb.Sheets, l.src.SheetHints) {
		res, err := p.ParseSheet(kind, s)
		if err == nil {
			res.Skipped = failed
			return res, nil
		}
		var se *SheetError
		if !errors.As(err, &se) {
			se = sheetErr(s.Name, kind, err)
		}
		failed = append(failed, se)
	}
	return nil, &WorkbookError{File: wb.Name, Kind: kind, Sheets: failed}
}

// ParseSheet runs one kind's parser over one sheet. Errors are *SheetError.
func (p *Parser) ParseSheet(kind Kind, s Sheet) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch kind {
	case KindDetail:
		res, err = p.detail(s)
	case KindVisits:
		res, err = p.visits(s)
	case KindActivities:
		res, err = p.activities(s)
	case KindPivot:
		res, err = p.pivot(s)
	default:
		err = ErrUnknownKind
	}
	if err != nil {
		return nil, sheetErr(s.Name, kind, err)
	}
	if res.Len() == 0 {
		return nil, sheetErr(s.Name, kind, ErrNoRows)
	}
	res.Kind, res.Sheet = kind, s.Name
	return res, nil
}

func (p *Parser) walker(kind Kind) walker {
	return walker{res: p.res, markers: p.markers, layout: p.layouts[kind]}
}

func (p *Parser) detail(s Sheet) (*Result, error) {
	l := p.layouts[KindDetail]
	h, err := l.locate(s.Rows, p.scanRows)
	if err != nil {
		return nil, err
	}
	stage, created, closed, amount := h.Col(config.RoleStage), h.Col(config.RoleCreated), h.Col(config.RoleClosed), h.Col(config.RoleAmount)

	res := &Result{}
	res.Stats = p.walker(KindDetail).walk(s.Rows, h, func(sp string, row []string) {
		o := models.OpportunityRow{
			Salesperson: sp,
			Stage:       cell(row, stage),
			Amount:      cells.CoerceNumber(cell(row, amount)),
		}
		o.CreatedAt, _ = cells.CoerceDate(cell(row, created))
		o.ClosedAt, _ = cells.CoerceDate(cell(row, closed))
		res.Opportunities = append(res.Opportunities, o)
	})
	return res, nil
}

func (p *Parser) visits(s Sheet) (*Result, error) {
	l := p.layouts[KindVisits]
	h, err := l.locate(s.Rows, p.scanRows)
	if err != nil {
		return nil, err
	}
	date, client, subject := h.Col(config.RoleDate), h.Col(config.RoleClient), h.Col(config.RoleSubject)

	res := &Result{}
	res.Stats = p.walker(KindVisits).walk(s.Rows, h, func(sp string, row []string) {
		v := models.VisitRow{
			Salesperson: sp,
			Client:      cell(row, client),
			Subject:     cell(row, subject),
		}
		// sin fecha igual cuenta, con periodo ""
		if d, ok := cells.CoerceDate(cell(row, date)); ok {
			v.Period = cells.Period(d)
		}
		v.Category = classify.ClassifySubject(v.Subject)
		res.Visits = append(res.Visits, v)
	})
	return res, nil
}

func (p *Parser) activities(s Sheet) (*Result, error) {
	l := p.layouts[KindActivities]
	h, err := l.locate(s.Rows, p.scanRows)
	if err != nil {
		return nil, err
	}
	status, due := h.Col(config.RoleStatus), h.Col(config.RoleDate)
	today := cells.DayUTC(p.Now())

	res := &Result{}
	res.Stats = p.walker(KindActivities).walk(s.Rows, h, func(sp string, row []string) {
		a := models.ActivityRow{Salesperson: sp}
		a.Due, _ = cells.CoerceDate(cell(row, due))
		a.Status = classify.ClassifyActivityStatus(cell(row, status), a.Due, today)
		res.Activities = append(res.Activities, a)
	})
	return res, nil
}

func orderByHints(sheets []Sheet, hints []string) []Sheet {
	if len(hints) == 0 {
		return sheets
	}
	var first, rest []Sheet
	for _, s := range sheets {
		if textnorm.ContainsAny(s.Name, hints) {
			first = append(first, s)
		} else {
			rest = append(rest, s)
		}
	}
	return append(first, rest...)
}
