package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	HTTPTimeout    time.Duration
	LogLevel       slog.Level
	GoalsGetURL    string
	GoalsPostURL   string
	GoalsAPIKey    string
	RedisURL       string
	HeuristicsFile string
	CORSOrigins    []string
	MaxUploadBytes int64
}

// FromEnv reads the process environment, after loading .env if present.
func FromEnv() Config {
	_ = godotenv.Load()

	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	maxMB := int64(20)
	if v, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_MB"), 10, 64); err == nil && v > 0 {
		maxMB = v
	}
	getURL := os.Getenv("GOALS_GET_URL")
	return Config{
		Port:           envOr("PORT", "8080"),
		HTTPTimeout:    to,
		LogLevel:       lvl,
		GoalsGetURL:    getURL,
		GoalsPostURL:   envOr("GOALS_POST_URL", getURL), // mismo endpoint por defecto
		GoalsAPIKey:    os.Getenv("GOALS_API_KEY"),
		RedisURL:       os.Getenv("REDIS_URL"),
		HeuristicsFile: os.Getenv("HEURISTICS_FILE"),
		CORSOrigins:    splitList(envOr("CORS_ORIGINS", "*")),
		MaxUploadBytes: maxMB << 20,
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
