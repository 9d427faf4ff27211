package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "HTTP_TIMEOUT_SECONDS", "LOG_LEVEL", "GOALS_GET_URL", "GOALS_POST_URL", "CORS_ORIGINS", "MAX_UPLOAD_MB"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GOALS_GET_URL", "https://goals.example/exec")
	t.Setenv("GOALS_POST_URL", "")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MAX_UPLOAD_MB", "5")

	cfg := FromEnv()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "https://goals.example/exec", cfg.GoalsPostURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
}

func TestDefaultHeuristicsValid(t *testing.T) {
	h := DefaultHeuristics()
	require.NoError(t, h.Validate())
	for _, kind := range []string{"detail", "visits", "activities", "pivot"} {
		assert.Contains(t, h.Layouts, kind)
	}
	assert.Equal(t, 1, h.Layouts["visits"].FallbackIndex(RoleOwner))
	assert.Equal(t, 9, h.Layouts["visits"].FallbackIndex(RoleSubject))
	assert.Equal(t, 12, h.Layouts["activities"].FallbackIndex(RoleStatus))
	assert.Equal(t, -1, h.Layouts["detail"].FallbackIndex(RoleOwner))
}

func TestLoadHeuristicsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	content := `
roster:
  - ANA PEREZ
  - LUIS GOMEZ
aliases:
  ana p: ANA PEREZ
scan_rows: 25
layouts:
  visits:
    roles:
      - role: owner
        keywords: [asesor]
      - role: subject
        keywords: [motivo]
    mandatory: [owner]
    fallback_columns:
      owner: C
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	h, err := LoadHeuristics(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ANA PEREZ", "LUIS GOMEZ"}, h.Roster)
	assert.Equal(t, 25, h.ScanRows)
	assert.Equal(t, "ANA PEREZ", h.Aliases["ana p"])
	// los alias por defecto se conservan
	assert.Equal(t, "HERNAN ROLDAN", h.Aliases["hernan b roldan"])
	v := h.Layouts["visits"]
	require.Len(t, v.Roles, 2)
	assert.Equal(t, 1, v.Roles[0].Weight)
	assert.Equal(t, 2, v.FallbackIndex(RoleOwner))
	// otras hojas quedan con su layout por defecto
	assert.Len(t, h.Layouts["detail"].Roles, 5)
}

func TestLoadHeuristicsRejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := `
layouts:
  detail:
    roles:
      - role: banana
        keywords: [x]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	_, err := LoadHeuristics(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banana")
}

func TestLoadHeuristicsEmptyPath(t *testing.T) {
	h, err := LoadHeuristics("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHeuristics().Roster, h.Roster)
}
