package goals

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

type Source interface {
	Fetch(ctx context.Context, year int) ([]models.GoalRecord, error)
	Save(ctx context.Context, year int, recs []models.GoalRecord) error
}

// Cache stores fetched goal sets per year.
type Cache interface {
	GetGoals(ctx context.Context, year int) ([]models.GoalRecord, bool, error)
	PutGoals(ctx context.Context, year int, recs []models.GoalRecord) error
}

// Set is one year's goals with lookup by normalized name.
type Set struct {
	Year    int                 `json:"year"`
	Records []models.GoalRecord `json:"metas"`
	byName  map[string]models.GoalRecord
}

func NewSet(year int, recs []models.GoalRecord) Set {
	s := Set{Year: year, Records: recs, byName: make(map[string]models.GoalRecord, len(recs))}
	if s.Records == nil {
		s.Records = []models.GoalRecord{}
	}
	for _, r := range recs {
		r.Year = year
		s.byName[textnorm.Normalize(r.Salesperson)] = r
	}
	return s
}

// For returns the goals of name, zero when there are none.
func (s Set) For(name string) models.GoalRecord {
	return s.byName[textnorm.Normalize(name)]
}

// Book is the per-year goal cache in front of the goal store. Keys are
// independent so concurrent reads for different years never conflict.
type Book struct {
	src   Source
	cache Cache
	log   *slog.Logger
}

func NewBook(src Source, cache Cache, log *slog.Logger) *Book {
	return &Book{src: src, cache: cache, log: log}
}

// ForYear serves from cache, fetching on a miss. A failed fetch degrades to
// an empty set and is not cached, so the next call asks again.
func (b *Book) ForYear(ctx context.Context, year int) Set {
	if recs, ok, err := b.cache.GetGoals(ctx, year); err == nil && ok {
		return NewSet(year, recs)
	} else if err != nil {
		b.log.Warn("goal cache read failed", slog.Int("year", year), slog.String("err", err.Error()))
	}
	s, err := b.Refresh(ctx, year)
	if err != nil {
		return NewSet(year, nil)
	}
	return s
}

// Refresh always fetches and overwrites the cached set for year.
func (b *Book) Refresh(ctx context.Context, year int) (Set, error) {
	recs, err := b.src.Fetch(ctx, year)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			b.log.Debug("goals not configured", slog.Int("year", year))
		} else {
			b.log.Warn("goal fetch failed", slog.Int("year", year), slog.String("err", err.Error()))
		}
		return NewSet(year, nil), err
	}
	if err := b.cache.PutGoals(ctx, year, recs); err != nil {
		b.log.Warn("goal cache write failed", slog.Int("year", year), slog.String("err", err.Error()))
	}
	return NewSet(year, recs), nil
}

// Save writes through to the store and, on success, replaces the cache.
func (b *Book) Save(ctx context.Context, year int, recs []models.GoalRecord) error {
	if err := b.src.Save(ctx, year, recs); err != nil {
		return err
	}
	if err := b.cache.PutGoals(ctx, year, recs); err != nil {
		b.log.Warn("goal cache write failed", slog.Int("year", year), slog.String("err", err.Error()))
	}
	return nil
}
