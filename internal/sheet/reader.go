package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// ReadWorkbook sniffs the content: xlsx (zip), legacy xls (OLE2) or
// delimited text, UTF-8 or else Windows-1252. Binary content that is none of
// these is rejected. Sheet order is the workbook's own order.
func ReadWorkbook(name string, r io.Reader) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptySheet)
	}
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return readXLSX(name, data)
	case bytes.HasPrefix(data, oleMagic):
		return readXLS(name, data)
	case utf8.Valid(data):
		return readCSV(name, data)
	case bytes.IndexByte(data, 0) < 0:
		// CSV de Excel en es-CO: casi siempre Windows-1252
		dec, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
		}
		return readCSV(name, dec)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
}

// ReadFile is ReadWorkbook over a file on disk.
func ReadFile(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWorkbook(filepath.Base(path), f)
}

func readXLSX(name string, data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", name, err)
	}
	defer f.Close()

	wb := &Workbook{Name: name}
	for _, sh := range f.GetSheetList() {
		// valores crudos: las fechas llegan como serial
		rows, err := f.GetRows(sh, excelize.Options{RawCellValue: true})
		if err != nil {
			rows = nil
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: sh, Rows: rows})
	}
	return wb, nil
}

func readXLS(name string, data []byte) (*Workbook, error) {
	// xlsReader solo abre rutas
	tmp, err := os.CreateTemp("", "kpi-*.xls")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("temp file: %w", err)
	}
	tmp.Close()

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("open xls %s: %w", name, err)
	}
	wb := &Workbook{Name: name}
	for i := 0; i < book.GetNumberSheets(); i++ {
		sh, err := book.GetSheet(i)
		if err != nil || sh == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(sh.GetNumberRows()); r++ {
			row, err := sh.GetRow(r)
			if err != nil || row == nil {
				rows = append(rows, nil)
				continue
			}
			var out []string
			for _, c := range row.GetCols() {
				if c == nil {
					out = append(out, "")
					continue
				}
				out = append(out, c.GetString())
			}
			rows = append(rows, out)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: sh.GetName(), Rows: trimTrailingBlank(rows)})
	}
	return wb, nil
}

func readCSV(name string, data []byte) (*Workbook, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", name, err)
	}
	sheetName := strings.TrimSuffix(name, filepath.Ext(name))
	if sheetName == "" {
		sheetName = "csv"
	}
	return &Workbook{Name: name, Sheets: []Sheet{{Name: sheetName, Rows: rows}}}, nil
}

// sniffDelimiter picks the candidate with the most consistent non-zero count
// over the first lines; ties prefer ';' (exportaciones es-CO).
func sniffDelimiter(data []byte) rune {
	lines := strings.Split(string(data), "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}
	best, bestScore := ';', -1
	for _, d := range []rune{';', ',', '\t'} {
		score := 0
		first := -1
		for _, l := range lines {
			if strings.TrimSpace(l) == "" {
				continue
			}
			n := strings.Count(l, string(d))
			if first < 0 {
				first = n
			}
			if n > 0 && n == first {
				score += n
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func trimTrailingBlank(rows [][]string) [][]string {
	for len(rows) > 0 && rowBlank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}
