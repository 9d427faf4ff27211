package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/KPI_GO/internal/models"
)

// MemoryStore keeps the latest dataset per kind. A new upload of a kind
// replaces the previous one atomically.
type MemoryStore struct {
	mu     sync.RWMutex
	latest map[string]*models.Dataset
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		latest: make(map[string]*models.Dataset),
		now:    time.Now,
	}
}

// Put stamps ds with an ID and upload time and makes it the current dataset
// of its kind.
func (s *MemoryStore) Put(ds models.Dataset) models.Dataset {
	ds.ID = uuid.NewString()
	ds.UploadedAt = s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[ds.Kind] = &ds
	return ds
}

// Get devuelve una copia del dataset vigente; los slices se comparten (solo lectura).
func (s *MemoryStore) Get(kind string) (models.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.latest[kind]
	if !ok {
		return models.Dataset{}, false
	}
	return *ds, true
}

func (s *MemoryStore) Delete(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.latest[kind]
	delete(s.latest, kind)
	return ok
}

// List returns the current datasets ordered by kind.
func (s *MemoryStore) List() []models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Dataset, 0, len(s.latest))
	for _, v := range s.latest {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// MemoryGoalCache is the in-process goal cache, one entry per year.
type MemoryGoalCache struct {
	mu sync.RWMutex
	m  map[int][]models.GoalRecord
}

func NewMemoryGoalCache() *MemoryGoalCache {
	return &MemoryGoalCache{m: make(map[int][]models.GoalRecord)}
}

func (c *MemoryGoalCache) GetGoals(_ context.Context, year int) ([]models.GoalRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	recs, ok := c.m[year]
	if !ok {
		return nil, false, nil
	}
	return append([]models.GoalRecord(nil), recs...), true, nil
}

func (c *MemoryGoalCache) PutGoals(_ context.Context, year int, recs []models.GoalRecord) error {
	cp := append([]models.GoalRecord{}, recs...)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[year] = cp
	return nil
}
