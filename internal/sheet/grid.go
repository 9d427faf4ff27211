package sheet

import (
	"strings"

	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

// Sheet is one tab as a grid of raw cell text; rows may be ragged and a
// missing cell reads as "".
type Sheet struct {
	Name string
	Rows [][]string
}

type Workbook struct {
	Name   string
	Sheets []Sheet
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rowBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// onlyCell reports whether col is non-empty and every other cell is empty.
func onlyCell(row []string, col int) bool {
	if cell(row, col) == "" {
		return false
	}
	for i, v := range row {
		if i != col && strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func joinNorm(row []string) string {
	parts := make([]string, 0, len(row))
	for _, v := range row {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return textnorm.Normalize(strings.Join(parts, " "))
}

func width(rows [][]string) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
