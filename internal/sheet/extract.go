package sheet

import (
	"strings"

	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/roster"
	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

// Stats counts what the extractor did with every row below the header.
type Stats struct {
	Emitted        int            `json:"emitted"`
	Blank          int            `json:"blank"`
	Aggregate      int            `json:"aggregate"`
	RepeatedHeader int            `json:"repeated_header"`
	GroupLabels    int            `json:"group_labels"`
	Unattributed   int            `json:"unattributed"`
	Unresolved     map[string]int `json:"unresolved,omitempty"` // texto crudo -> filas
}

type markers struct {
	prefixes []string
	contains []string
	tokens   []string
}

func compileMarkers(m config.AggregateMarkers) markers {
	return markers{
		prefixes: normAll(m.Prefixes),
		contains: normAll(m.Contains),
		tokens:   normAll(m.Tokens),
	}
}

// aggregate reports whether a row's joined normalized text marks a pivot
// subtotal/total/count row.
func (m markers) aggregate(joined string) bool {
	for _, p := range m.prefixes {
		if strings.HasPrefix(joined, p) {
			return true
		}
	}
	for _, c := range m.contains {
		if strings.Contains(joined, c) {
			return true
		}
	}
	for _, t := range m.tokens {
		if textnorm.HasToken(joined, t) {
			return true
		}
	}
	return false
}

// walker is the single-pass carry-forward state machine. current holds the
// salesperson of the block being read and is the only state kept across rows.
type walker struct {
	res     *roster.Resolver
	markers markers
	layout  layout
}

// walk visits every row below h.Row and calls emit for each data row with
// the salesperson it is attributed to.
func (w walker) walk(rows [][]string, h Header, emit func(salesperson string, row []string)) Stats {
	st := Stats{Unresolved: map[string]int{}}
	ownerCol := h.Col(config.RoleOwner)
	current := ""

	resolve := func(raw string) string {
		name := w.res.Resolve(raw)
		if name == w.res.Unresolved() {
			st.Unresolved[raw]++
		}
		return name
	}

	for r := h.Row + 1; r < len(rows); r++ {
		row := rows[r]
		if rowBlank(row) {
			st.Blank++
			continue
		}
		if w.markers.aggregate(joinNorm(row)) {
			st.Aggregate++
			continue
		}
		if w.layout.roleHits(row, h) >= 2 {
			st.RepeatedHeader++
			continue
		}
		// título de bloque: solo el comercial, nada más en la fila
		if onlyCell(row, ownerCol) {
			current = resolve(cell(row, ownerCol))
			st.GroupLabels++
			continue
		}
		if raw := cell(row, ownerCol); raw != "" {
			current = resolve(raw)
		}
		if current == "" {
			st.Unattributed++
			continue
		}
		emit(current, row)
		st.Emitted++
	}
	if len(st.Unresolved) == 0 {
		st.Unresolved = nil
	}
	return st
}
