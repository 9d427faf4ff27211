package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/KPI_GO/internal/config"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewInMemory(t *testing.T) {
	a, err := New(config.Config{CORSOrigins: []string{"*"}}, quiet())
	require.NoError(t, err)
	defer a.Close()
	assert.NoError(t, a.Ready(context.Background()))
	assert.Len(t, a.Roster.Names(), 7)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/salespeople", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "KAREN CARRILLO")
}

func TestNewWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	a, err := New(config.Config{RedisURL: "redis://" + mr.Addr()}, quiet())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Ready(context.Background()))

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()
	assert.Error(t, a.Ready(context.Background()))
}

func TestNewBadHeuristics(t *testing.T) {
	_, err := New(config.Config{HeuristicsFile: "/does/not/exist.yaml"}, quiet())
	assert.Error(t, err)
}
