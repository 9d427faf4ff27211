// Package app wires configuration into the services shared by the server
// and the command-line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/goals"
	"github.com/AngelCh415/KPI_GO/internal/httpx"
	"github.com/AngelCh415/KPI_GO/internal/ingest"
	"github.com/AngelCh415/KPI_GO/internal/metrics"
	"github.com/AngelCh415/KPI_GO/internal/roster"
	"github.com/AngelCh415/KPI_GO/internal/sheet"
	"github.com/AngelCh415/KPI_GO/internal/store"
	"github.com/AngelCh415/KPI_GO/internal/utils"
)

type App struct {
	Cfg        config.Config
	Heuristics config.Heuristics
	Log        *slog.Logger
	Registry   *prometheus.Registry
	Roster     *roster.Resolver
	Parser     *sheet.Parser
	Store      *store.MemoryStore
	Ingest     *ingest.Ingestor
	Goals      *goals.Book
	GoalClient *goals.Client
	KPI        *metrics.Service

	redis   *store.RedisGoalCache
	httpMet *utils.HTTPMetrics
}

// New builds every service. With REDIS_URL set the goal cache is shared
// through Redis, otherwise it lives in process.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	h, err := config.LoadHeuristics(cfg.HeuristicsFile)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("heuristics: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	res := roster.NewResolver(h.Roster, h.Aliases, h.Unresolved, h.FuzzyThreshold)
	p, err := sheet.NewParser(h, res)
	if err != nil {
		return nil, err
	}
	st := store.NewMemoryStore()

	a := &App{
		Cfg:        cfg,
		Heuristics: h,
		Log:        log,
		Registry:   reg,
		Roster:     res,
		Parser:     p,
		Store:      st,
		Ingest:     ingest.NewIngestor(p, res, st, log, ingest.NewMetrics(reg)),
		GoalClient: goals.NewClient(goals.NewHTTPClient(cfg.HTTPTimeout), cfg.GoalsGetURL, cfg.GoalsPostURL, cfg.GoalsAPIKey),
		httpMet:    utils.NewHTTPMetrics(reg),
	}

	var cache goals.Cache = store.NewMemoryGoalCache()
	if cfg.RedisURL != "" {
		rc, err := store.NewRedisGoalCache(cfg.RedisURL, 0)
		if err != nil {
			return nil, err
		}
		a.redis = rc
		cache = rc
	}
	a.Goals = goals.NewBook(a.GoalClient, cache, log)
	a.KPI = metrics.NewService(st, a.Goals, &a.Heuristics)
	return a, nil
}

// Router is the HTTP surface over the app's services.
func (a *App) Router() http.Handler {
	return httpx.NewRouter(httpx.Deps{
		Log:            a.Log,
		Ingest:         a.Ingest,
		Store:          a.Store,
		KPI:            a.KPI,
		Goals:          a.Goals,
		Roster:         a.Roster,
		Registry:       a.Registry,
		HTTPMetrics:    a.httpMet,
		Ready:          a.Ready,
		CORSOrigins:    a.Cfg.CORSOrigins,
		MaxUploadBytes: a.Cfg.MaxUploadBytes,
	})
}

// Ready fails while a configured Redis is unreachable.
func (a *App) Ready(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx)
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
