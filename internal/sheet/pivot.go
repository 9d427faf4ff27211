package sheet

import (
	"strings"

	"github.com/AngelCh415/KPI_GO/internal/cells"
	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

type metric int

const (
	metricNone metric = iota
	metricSum
	metricCount
)

type pivotCol struct {
	col    int
	stage  string
	metric metric
}

func metricOf(header string) metric {
	n := textnorm.Normalize(header)
	switch {
	// "Total Recuento de X" es conteo
	case atWordStart(n, "recuento"), atWordStart(n, "count"):
		return metricCount
	case atWordStart(n, "suma"), atWordStart(n, "sum"), atWordStart(n, "total"):
		return metricSum
	}
	return metricNone
}

// stageRow looks up to three rows above the header for a row with at least
// two stage-looking cells right of the owner column; -1 if none.
func (p *Parser) stageRow(rows [][]string, header, ownerCol int) int {
	for r := header - 1; r >= 0 && r >= header-3; r-- {
		hits := 0
		for c := ownerCol + 1; c < len(rows[r]); c++ {
			n := textnorm.Normalize(rows[r][c])
			if n == "" {
				continue
			}
			for _, f := range p.stageFrags {
				if strings.Contains(n, f) {
					hits++
					break
				}
			}
		}
		if hits >= 2 {
			return r
		}
	}
	return -1
}

// pivot parses a cross-tab: salesperson rows, stage x metric columns. With
// a stage row above the header, labels carry right across merged cells and
// the header row says sum or count per column; without one every header
// cell is a stage and its values are sums. Reading stops at the first
// label starting with "total".
func (p *Parser) pivot(s Sheet) (*Result, error) {
	l := p.layouts[KindPivot]
	h, err := l.locate(s.Rows, p.scanRows)
	if err != nil {
		return nil, err
	}
	ownerCol := h.Col(config.RoleOwner)
	hdr := s.Rows[h.Row]
	sr := p.stageRow(s.Rows, h.Row, ownerCol)

	var cols []pivotCol
	if sr >= 0 {
		last := ""
		w := len(hdr)
		if n := len(s.Rows[sr]); n > w {
			w = n
		}
		for c := ownerCol + 1; c < w; c++ {
			st := cell(s.Rows[sr], c)
			if st == "" {
				st = last
			}
			last = st
			m := metricOf(cell(hdr, c))
			if st == "" || m == metricNone {
				continue
			}
			cols = append(cols, pivotCol{col: c, stage: st, metric: m})
		}
	} else {
		for c := ownerCol + 1; c < len(hdr); c++ {
			if st := cell(hdr, c); st != "" {
				cols = append(cols, pivotCol{col: c, stage: st, metric: metricSum})
			}
		}
	}

	model := &models.PivotModel{}
	seenStage := map[string]bool{}
	for _, c := range cols {
		if !seenStage[c.stage] {
			seenStage[c.stage] = true
			model.Stages = append(model.Stages, c.stage)
		}
	}

	st := Stats{Unresolved: map[string]int{}}
	index := map[string]int{} // comercial -> posición en model.Rows
	for r := h.Row + 1; r < len(s.Rows); r++ {
		row := s.Rows[r]
		if rowBlank(row) {
			st.Blank++
			continue
		}
		raw := cell(row, ownerCol)
		if raw == "" {
			st.Unattributed++
			continue
		}
		if strings.HasPrefix(textnorm.Normalize(raw), "total") {
			break
		}
		sp := p.res.Resolve(raw)
		if sp == p.res.Unresolved() {
			st.Unresolved[raw]++
		}
		values := map[string]models.StageAgg{}
		hasData := false
		for _, c := range cols {
			v := cells.CoerceNumber(cell(row, c.col))
			agg := values[c.stage]
			if c.metric == metricCount {
				agg.Count += v
			} else {
				agg.Sum += v
			}
			values[c.stage] = agg
			if v != 0 {
				hasData = true
			}
		}
		if !hasData {
			continue
		}
		st.Emitted++
		i, ok := index[sp]
		if !ok {
			index[sp] = len(model.Rows)
			model.Rows = append(model.Rows, models.PivotRow{Salesperson: sp, Values: values})
			continue
		}
		// mismo comercial en varias filas: se suman
		for k, v := range values {
			cur := model.Rows[i].Values[k]
			cur.Sum += v.Sum
			cur.Count += v.Count
			model.Rows[i].Values[k] = cur
		}
	}
	if len(st.Unresolved) == 0 {
		st.Unresolved = nil
	}
	return &Result{Pivot: model, Stats: st}, nil
}
