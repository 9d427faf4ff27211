package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AngelCh415/KPI_GO/internal/cells"
	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/roster"
	"github.com/AngelCh415/KPI_GO/internal/sheet"
)

type DatasetStore interface {
	Put(ds models.Dataset) models.Dataset
}

type Ingestor struct {
	parser *sheet.Parser
	res    *roster.Resolver
	st     DatasetStore
	log    *slog.Logger
	m      *Metrics
}

func NewIngestor(p *sheet.Parser, res *roster.Resolver, st DatasetStore, log *slog.Logger, m *Metrics) *Ingestor {
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Ingestor{parser: p, res: res, st: st, log: log, m: m}
}

// Ingest reads an uploaded export, parses it as kind and replaces the stored
// dataset of that kind. The store is left untouched when parsing fails.
func (i *Ingestor) Ingest(ctx context.Context, kind sheet.Kind, name string, r io.Reader) (models.IngestSummary, error) {
	start := time.Now()
	defer func() { i.m.duration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds()) }()

	if err := ctx.Err(); err != nil {
		return models.IngestSummary{}, err
	}
	wb, err := sheet.ReadWorkbook(name, r)
	if err != nil {
		i.m.files.WithLabelValues(string(kind), "unreadable").Inc()
		i.log.Warn("unreadable upload", slog.String("kind", string(kind)), slog.String("file", name), slog.String("err", err.Error()))
		return models.IngestSummary{}, fmt.Errorf("read %s: %w", name, err)
	}
	res, err := i.parser.Parse(kind, wb)
	if err != nil {
		i.m.files.WithLabelValues(string(kind), "rejected").Inc()
		var we *sheet.WorkbookError
		if errors.As(err, &we) {
			for _, se := range we.Sheets {
				i.log.Debug("sheet rejected", slog.String("file", name), slog.String("sheet", se.Sheet), slog.String("err", se.Err.Error()))
			}
		}
		i.log.Warn("no usable sheet", slog.String("kind", string(kind)), slog.String("file", name), slog.String("err", err.Error()))
		return models.IngestSummary{}, err
	}
	for _, se := range res.Skipped {
		i.log.Debug("sheet skipped", slog.String("file", name), slog.String("sheet", se.Sheet), slog.String("err", se.Err.Error()))
	}

	ds := i.st.Put(models.Dataset{
		Kind:          string(kind),
		FileName:      name,
		Sheet:         res.Sheet,
		Rows:          res.Len(),
		Opportunities: res.Opportunities,
		Visits:        res.Visits,
		Activities:    res.Activities,
		Pivot:         res.Pivot,
	})
	sum := i.summarize(ds, res)

	i.m.files.WithLabelValues(string(kind), "ok").Inc()
	i.m.rows.WithLabelValues(string(kind)).Add(float64(sum.Rows))
	i.m.unresolved.WithLabelValues(string(kind)).Add(float64(len(sum.Unresolved)))
	i.log.Info("ingest complete",
		slog.String("kind", string(kind)),
		slog.String("file", name),
		slog.String("sheet", res.Sheet),
		slog.Int("rows", sum.Rows),
		slog.Int("unresolved", len(sum.Unresolved)),
		slog.Int("skipped_sheets", len(sum.Skipped)),
	)
	return sum, nil
}

// IngestFile is Ingest over a file on disk.
func (i *Ingestor) IngestFile(ctx context.Context, kind sheet.Kind, path string) (models.IngestSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.IngestSummary{}, err
	}
	defer f.Close()
	return i.Ingest(ctx, kind, filepath.Base(path), f)
}

func (i *Ingestor) summarize(ds models.Dataset, res *sheet.Result) models.IngestSummary {
	sum := models.IngestSummary{
		ID:         ds.ID,
		Kind:       ds.Kind,
		FileName:   ds.FileName,
		Sheet:      ds.Sheet,
		Rows:       ds.Rows,
		Unresolved: []models.UnresolvedName{},
		Skipped:    []models.SkippedSheet{},
	}
	for raw, n := range res.Stats.Unresolved {
		sum.Unresolved = append(sum.Unresolved, models.UnresolvedName{Raw: raw, Rows: n, Suggestion: i.res.Suggest(raw)})
	}
	// más filas primero
	sort.Slice(sum.Unresolved, func(a, b int) bool {
		if sum.Unresolved[a].Rows != sum.Unresolved[b].Rows {
			return sum.Unresolved[a].Rows > sum.Unresolved[b].Rows
		}
		return sum.Unresolved[a].Raw < sum.Unresolved[b].Raw
	})
	for _, se := range res.Skipped {
		sum.Skipped = append(sum.Skipped, models.SkippedSheet{Sheet: se.Sheet, Reason: se.Err.Error()})
	}
	sum.Periods = periods(ds)
	return sum
}

func periods(ds models.Dataset) []string {
	seen := map[string]struct{}{}
	add := func(p string) {
		if p != "" {
			seen[p] = struct{}{}
		}
	}
	for _, o := range ds.Opportunities {
		add(cells.Period(o.CreatedAt))
	}
	for _, v := range ds.Visits {
		add(v.Period)
	}
	for _, a := range ds.Activities {
		add(cells.Period(a.Due))
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Metrics are the ingestion counters exposed on /metrics.
type Metrics struct {
	files      *prometheus.CounterVec
	rows       *prometheus.CounterVec
	unresolved *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg; a nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_ingest_files_total",
			Help: "Uploaded exports by kind and result.",
		}, []string{"kind", "result"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_ingest_rows_total",
			Help: "Normalized rows produced by kind.",
		}, []string{"kind"}),
		unresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_ingest_unresolved_names_total",
			Help: "Distinct raw salesperson names that did not resolve.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kpi_ingest_duration_seconds",
			Help:    "Time to read and parse one export.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.files, m.rows, m.unresolved, m.duration)
	}
	return m
}
