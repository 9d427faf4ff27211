package goals

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/KPI_GO/internal/models"
)

type fakeSource struct {
	mu      sync.Mutex
	recs    map[int][]models.GoalRecord
	fail    error
	fetches int
	saved   []models.GoalRecord
}

func (f *fakeSource) Fetch(_ context.Context, year int) ([]models.GoalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fail != nil {
		return nil, f.fail
	}
	return f.recs[year], nil
}

func (f *fakeSource) Save(_ context.Context, _ int, recs []models.GoalRecord) error {
	if f.fail != nil {
		return f.fail
	}
	f.saved = recs
	return nil
}

type mapCache struct {
	mu sync.Mutex
	m  map[int][]models.GoalRecord
}

func (c *mapCache) GetGoals(_ context.Context, year int) ([]models.GoalRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[year]
	return r, ok, nil
}

func (c *mapCache) PutGoals(_ context.Context, year int, recs []models.GoalRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[year] = recs
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBookCachesPerYear(t *testing.T) {
	src := &fakeSource{recs: map[int][]models.GoalRecord{
		2025: {{Salesperson: "Karen Romero", AnnualTarget: 100}},
	}}
	b := NewBook(src, &mapCache{m: map[int][]models.GoalRecord{}}, quietLogger())

	s := b.ForYear(context.Background(), 2025)
	assert.Equal(t, 100.0, s.For("KAREN ROMERO").AnnualTarget)
	assert.Equal(t, 2025, s.For("karen romero").Year)
	b.ForYear(context.Background(), 2025)
	assert.Equal(t, 1, src.fetches)

	assert.Empty(t, b.ForYear(context.Background(), 2024).Records)
	assert.Equal(t, 2, src.fetches)
}

func TestBookFailedFetchIsNotCached(t *testing.T) {
	src := &fakeSource{fail: errors.New("down")}
	cache := &mapCache{m: map[int][]models.GoalRecord{}}
	b := NewBook(src, cache, quietLogger())

	s := b.ForYear(context.Background(), 2025)
	assert.Empty(t, s.Records)
	assert.Zero(t, s.For("anyone").AnnualTarget)
	_, cached := cache.m[2025]
	assert.False(t, cached)

	src.fail = nil
	src.recs = map[int][]models.GoalRecord{2025: {{Salesperson: "Ana", AnnualTarget: 5}}}
	assert.Equal(t, 5.0, b.ForYear(context.Background(), 2025).For("ana").AnnualTarget)
	assert.Equal(t, 2, src.fetches)
}

func TestBookRefreshOverwrites(t *testing.T) {
	src := &fakeSource{recs: map[int][]models.GoalRecord{2025: {{Salesperson: "Ana", AnnualTarget: 5}}}}
	b := NewBook(src, &mapCache{m: map[int][]models.GoalRecord{}}, quietLogger())
	b.ForYear(context.Background(), 2025)

	src.recs[2025] = []models.GoalRecord{{Salesperson: "Ana", AnnualTarget: 7}}
	s, err := b.Refresh(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.For("Ana").AnnualTarget)
	assert.Equal(t, 7.0, b.ForYear(context.Background(), 2025).For("Ana").AnnualTarget)

	src.fail = errors.New("down")
	_, err = b.Refresh(context.Background(), 2025)
	require.Error(t, err)
	assert.Equal(t, 7.0, b.ForYear(context.Background(), 2025).For("Ana").AnnualTarget)
}

func TestBookSaveWritesThrough(t *testing.T) {
	src := &fakeSource{recs: map[int][]models.GoalRecord{}}
	b := NewBook(src, &mapCache{m: map[int][]models.GoalRecord{}}, quietLogger())
	recs := []models.GoalRecord{{Salesperson: "Ana", MonthlyVisitTarget: 3}}

	require.NoError(t, b.Save(context.Background(), 2026, recs))
	assert.Equal(t, recs, src.saved)
	assert.Equal(t, 3.0, b.ForYear(context.Background(), 2026).For("ana").MonthlyVisitTarget)
	assert.Zero(t, src.fetches)

	src.fail = errors.New("rejected")
	require.Error(t, b.Save(context.Background(), 2026, nil))
	assert.Equal(t, 3.0, b.ForYear(context.Background(), 2026).For("ana").MonthlyVisitTarget)
}

func TestBookConcurrentYears(t *testing.T) {
	src := &fakeSource{recs: map[int][]models.GoalRecord{
		2024: {{Salesperson: "Ana", AnnualTarget: 24}},
		2025: {{Salesperson: "Ana", AnnualTarget: 25}},
	}}
	b := NewBook(src, &mapCache{m: map[int][]models.GoalRecord{}}, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		year := 2024 + i%2
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, float64(year-2000), b.ForYear(context.Background(), year).For("Ana").AnnualTarget)
		}()
	}
	wg.Wait()
}
