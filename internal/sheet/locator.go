package sheet

import (
	"fmt"
	"strings"

	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

// matcher is a RoleSpec with its fragments normalized once.
type matcher struct {
	role    string
	weight  int
	keys    []string
	exclude []string
}

func (m matcher) match(raw string) bool {
	n := textnorm.Normalize(raw)
	if n == "" {
		return false
	}
	for _, x := range m.exclude {
		if atWordStart(n, x) {
			return false
		}
	}
	for _, k := range m.keys {
		if atWordStart(n, k) {
			return true
		}
	}
	return false
}

// atWordStart: frag aparece al inicio de un token ("tema" no casa "sistema").
func atWordStart(n, frag string) bool {
	return strings.HasPrefix(n, frag) || strings.Contains(n, " "+frag)
}

type layout struct {
	roles     []matcher
	mandatory []string
	src       config.Layout
}

func compileLayout(l config.Layout) layout {
	out := layout{mandatory: l.Mandatory, src: l}
	for _, r := range l.Roles {
		m := matcher{role: r.Role, weight: r.Weight}
		if m.weight <= 0 {
			m.weight = 1
		}
		m.keys = normAll(r.Keywords)
		m.exclude = normAll(r.Exclude)
		out.roles = append(out.roles, m)
	}
	return out
}

func normAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := textnorm.Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Header is the located header row and the column of each role found.
type Header struct {
	Row   int
	Score int
	Cols  map[string]int

	// roles resueltos por columna fija y no por encabezado
	Fallback []string
}

// Col returns the column for role or -1.
func (h Header) Col(role string) int {
	if c, ok := h.Cols[role]; ok {
		return c
	}
	return -1
}

func (l layout) score(row []string) int {
	sc := 0
	for _, m := range l.roles {
		for _, v := range row {
			if m.match(v) {
				sc += m.weight
				break
			}
		}
	}
	return sc
}

// locate scans the first scan rows. Highest score wins and ties keep the
// earliest row. Within the header row roles claim cells in declared order.
// Roles still missing take their fallback column when the grid is wide
// enough; a missing mandatory role fails the sheet.
func (l layout) locate(rows [][]string, scan int) (Header, error) {
	if len(rows) == 0 || width(rows) == 0 {
		return Header{}, ErrEmptySheet
	}
	if scan <= 0 || scan > len(rows) {
		scan = len(rows)
	}
	best, bestScore := 0, -1
	for r := 0; r < scan; r++ {
		if sc := l.score(rows[r]); sc > bestScore {
			best, bestScore = r, sc
		}
	}
	h := Header{Row: best, Score: bestScore, Cols: map[string]int{}}
	claimed := map[int]bool{}
	hdr := rows[best]
	for _, m := range l.roles {
		if _, done := h.Cols[m.role]; done {
			continue
		}
		for c, v := range hdr {
			if claimed[c] || !m.match(v) {
				continue
			}
			h.Cols[m.role] = c
			claimed[c] = true
			break
		}
	}
	w := width(rows)
	for _, m := range l.roles {
		if _, ok := h.Cols[m.role]; ok {
			continue
		}
		if c := l.src.FallbackIndex(m.role); c >= 0 && c < w && !claimed[c] {
			h.Cols[m.role] = c
			claimed[c] = true
			h.Fallback = append(h.Fallback, m.role)
		}
	}
	for _, role := range l.mandatory {
		if _, ok := h.Cols[role]; !ok {
			return h, fmt.Errorf("%w: %s", ErrMissingColumn, role)
		}
	}
	return h, nil
}

// roleHits counts roles whose own column holds text that matches the role,
// i.e. how much a row looks like the header again.
func (l layout) roleHits(row []string, h Header) int {
	n := 0
	for _, m := range l.roles {
		c, ok := h.Cols[m.role]
		if ok && m.match(cell(row, c)) {
			n++
		}
	}
	return n
}
