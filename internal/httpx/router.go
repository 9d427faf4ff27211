package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/KPI_GO/internal/goals"
	"github.com/AngelCh415/KPI_GO/internal/ingest"
	"github.com/AngelCh415/KPI_GO/internal/metrics"
	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/roster"
	"github.com/AngelCh415/KPI_GO/internal/sheet"
	"github.com/AngelCh415/KPI_GO/internal/store"
	"github.com/AngelCh415/KPI_GO/internal/utils"
)

type Deps struct {
	Log            *slog.Logger
	Ingest         *ingest.Ingestor
	Store          *store.MemoryStore
	KPI            *metrics.Service
	Goals          *goals.Book
	Roster         *roster.Resolver
	Registry       *prometheus.Registry
	HTTPMetrics    *utils.HTTPMetrics
	Ready          func(ctx context.Context) error
	CORSOrigins    []string
	MaxUploadBytes int64
}

type goalsBody struct {
	Metas []models.GoalRecord `json:"metas"`
}

func NewRouter(d Deps) http.Handler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 20 << 20
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))
	if d.HTTPMetrics != nil {
		mux.Use(d.HTTPMetrics.Instrument)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	if d.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	mux.Post("/upload/{kind}", func(w http.ResponseWriter, r *http.Request) {
		kind, err := sheet.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				http.Error(w, fmt.Sprintf("file larger than %d bytes", d.MaxUploadBytes), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "multipart field \"file\" required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		sum, err := d.Ingest.Ingest(r.Context(), kind, hdr.Filename, f)
		if err != nil {
			http.Error(w, err.Error(), uploadStatus(err))
			return
		}
		writeJSON(w, http.StatusCreated, sum)
	})

	mux.Get("/datasets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Store.List())
	})

	mux.Get("/salespeople", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"salespeople": d.Roster.Names(),
			"unresolved":  d.Roster.Unresolved(),
		})
	})

	mux.Get("/kpi/{name}", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.KPI.Query(r.Context(), chi.URLParam(r, "name"), r.URL.Query())
		switch {
		case errors.Is(err, metrics.ErrUnknownKPI):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, metrics.ErrNoData):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.Get("/goals/{year}", func(w http.ResponseWriter, r *http.Request) {
		year, ok := yearParam(w, r)
		if !ok {
			return
		}
		if r.URL.Query().Get("refresh") != "" {
			s, err := d.Goals.Refresh(r.Context(), year)
			if err != nil && !errors.Is(err, goals.ErrNotConfigured) {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			writeJSON(w, http.StatusOK, s)
			return
		}
		writeJSON(w, http.StatusOK, d.Goals.ForYear(r.Context(), year))
	})

	mux.Put("/goals/{year}", func(w http.ResponseWriter, r *http.Request) {
		year, ok := yearParam(w, r)
		if !ok {
			return
		}
		var body goalsBody
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		if err := dec.Decode(&body); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		recs := make([]models.GoalRecord, 0, len(body.Metas))
		for _, g := range body.Metas {
			g.Salesperson = strings.Join(strings.Fields(g.Salesperson), " ")
			if g.Salesperson == "" {
				http.Error(w, "every goal needs a comercial", http.StatusBadRequest)
				return
			}
			if g.AnnualTarget < 0 || g.MonthlyOfferTarget < 0 || g.MonthlyVisitTarget < 0 {
				http.Error(w, "targets must be >= 0", http.StatusBadRequest)
				return
			}
			g.Year = year
			recs = append(recs, g)
		}
		if err := d.Goals.Save(r.Context(), year, recs); err != nil {
			code := http.StatusBadGateway
			if errors.Is(err, goals.ErrNotConfigured) {
				code = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeJSON(w, http.StatusOK, goals.NewSet(year, recs))
	})

	return mux
}

// uploadStatus: 422 para libros que no se pudieron interpretar.
func uploadStatus(err error) int {
	var we *sheet.WorkbookError
	switch {
	case errors.As(err, &we),
		errors.Is(err, sheet.ErrUnsupportedFormat),
		errors.Is(err, sheet.ErrEmptySheet):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		http.Error(w, "year must be YYYY", http.StatusBadRequest)
		return 0, false
	}
	return year, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
