package sheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadWorkbookXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Detalle")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"portada"}))
	require.NoError(t, f.SetSheetRow("Detalle", "A1", &[]any{"Propietario", "Etapa", "Fecha de creación", "Importe"}))
	require.NoError(t, f.SetSheetRow("Detalle", "A2", &[]any{"Karen Carrillo", "Closed Won", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 1000000}))
	require.NoError(t, f.SetSheetRow("Detalle", "A3", &[]any{"", "Proposal", time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), 250.5}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := ReadWorkbook("export.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "Sheet1", wb.Sheets[0].Name)
	assert.Equal(t, "Detalle", wb.Sheets[1].Name)

	res, err := newTestParser(t).Parse(KindDetail, wb)
	require.NoError(t, err)
	require.Len(t, res.Opportunities, 2)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), res.Opportunities[0].CreatedAt)
	assert.Equal(t, 1000000.0, res.Opportunities[0].Amount)
	assert.Equal(t, "KAREN CARRILLO", res.Opportunities[1].Salesperson)
	assert.Equal(t, 250.5, res.Opportunities[1].Amount)
}

func TestReadWorkbookCSV(t *testing.T) {
	data := "\ufeffPropietario;Etapa;Importe\nKaren Carrillo;Closed Won;1.234,5\n;Proposal;10\n"
	wb, err := ReadWorkbook("detalle.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, "detalle", wb.Sheets[0].Name)
	assert.Equal(t, []string{"Propietario", "Etapa", "Importe"}, wb.Sheets[0].Rows[0])

	res, err := newTestParser(t).Parse(KindDetail, wb)
	require.NoError(t, err)
	require.Len(t, res.Opportunities, 2)
	assert.Equal(t, 1234.5, res.Opportunities[0].Amount)
}

func TestReadWorkbookCSVWindows1252(t *testing.T) {
	// tildes en cp1252: 0xf3 = ó, 0xe1 = á
	data := []byte("Propietario;Etapa;Fecha de creaci\xf3n;Importe\nHern\xe1n B. Rold\xe1n;Closed Won;15/03/2024;10\n")
	wb, err := ReadWorkbook("detalle.csv", bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, "Fecha de creación", wb.Sheets[0].Rows[0][2])
	assert.Equal(t, "Hernán B. Roldán", wb.Sheets[0].Rows[1][0])

	res, err := newTestParser(t).Parse(KindDetail, wb)
	require.NoError(t, err)
	require.Len(t, res.Opportunities, 1)
	assert.Equal(t, "HERNAN ROLDAN", res.Opportunities[0].Salesperson)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), res.Opportunities[0].CreatedAt)
}

func TestReadWorkbookRejects(t *testing.T) {
	_, err := ReadWorkbook("x.bin", bytes.NewReader([]byte{0xff, 0xfe, 0x00, 0x81}))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = ReadWorkbook("vacio.csv", strings.NewReader("  \n"))
	assert.True(t, errors.Is(err, ErrEmptySheet))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b,c\n1,2,3\n")))
	assert.Equal(t, '\t', sniffDelimiter([]byte("a\tb\n1\t2\n")))
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b\n1,5;2\n")))
}
