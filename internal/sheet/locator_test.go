package sheet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/KPI_GO/internal/config"
)

func testLayout() layout {
	return compileLayout(config.Layout{
		Roles: []config.RoleSpec{
			{Role: config.RoleOwner, Keywords: []string{"comercial", "owner"}, Weight: 2},
			{Role: config.RoleStage, Keywords: []string{"estado", "stage"}, Weight: 1},
			{Role: config.RoleAmount, Keywords: []string{"total", "valor"}, Exclude: []string{"recuento"}, Weight: 1},
		},
		Mandatory:       []string{config.RoleOwner},
		FallbackColumns: map[string]string{config.RoleStage: "C"},
	})
}

func TestLocateHighestScoreFirstRowWins(t *testing.T) {
	rows := [][]string{
		{"titulo"},
		{"Owner", "Stage"},
		{"Owner", "Stage"},
		{"Owner"},
	}
	h, err := testLayout().locate(rows, 40)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Row)
	assert.Equal(t, 3, h.Score)
}

func TestLocateEarlierRoleClaimsCell(t *testing.T) {
	rows := [][]string{{"Comercial / Estado", "Estado", "Recuento total", "Valor total"}}
	h, err := testLayout().locate(rows, 40)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Col(config.RoleOwner))
	assert.Equal(t, 1, h.Col(config.RoleStage))
	assert.Equal(t, 3, h.Col(config.RoleAmount))
	assert.Empty(t, h.Fallback)
}

func TestLocateFallbackOnlyWhenMissing(t *testing.T) {
	rows := [][]string{
		{"Comercial", "x", "y"},
		{"Ana", "1", "2"},
	}
	h, err := testLayout().locate(rows, 40)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Col(config.RoleStage))
	assert.Equal(t, []string{config.RoleStage}, h.Fallback)
	assert.Equal(t, -1, h.Col(config.RoleAmount))

	// rejilla demasiado angosta: no hay columna C
	h, err = testLayout().locate([][]string{{"Comercial", "x"}}, 40)
	require.NoError(t, err)
	assert.Equal(t, -1, h.Col(config.RoleStage))
}

func TestLocateMissingMandatory(t *testing.T) {
	_, err := testLayout().locate([][]string{{"a", "b"}}, 40)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	_, err = testLayout().locate(nil, 40)
	assert.True(t, errors.Is(err, ErrEmptySheet))
}

func TestLocateScanLimit(t *testing.T) {
	rows := [][]string{{"a"}, {"b"}, {"Comercial", "Estado"}}
	h, err := testLayout().locate(rows, 2)
	require.Error(t, err)
	assert.Equal(t, 0, h.Row)
}

func TestWordStartMatching(t *testing.T) {
	m := compileLayout(config.Layout{Roles: []config.RoleSpec{{Role: config.RoleSubject, Keywords: []string{"tema"}}}}).roles[0]
	assert.True(t, m.match("Tema de la visita"))
	assert.False(t, m.match("Sistema"))
}
