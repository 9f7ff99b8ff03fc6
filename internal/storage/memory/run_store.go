package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
)

// RunStore keeps the run ledger in-memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]snapshot.RunRecord
}

// NewRunStore creates an empty in-memory run ledger.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]snapshot.RunRecord),
	}
}

// RecordRun stores a run record.
func (s *RunStore) RecordRun(_ context.Context, record snapshot.RunRecord) error {
	if record.ID == "" {
		return errors.New("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[record.ID]; exists {
		return errors.New("run already recorded")
	}
	s.runs[record.ID] = record
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (snapshot.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.runs[runID]
	if !ok {
		return snapshot.RunRecord{}, errors.New("run not found")
	}
	return record, nil
}

// ListRuns returns up to limit records, newest first. A non-positive limit
// returns every record.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]snapshot.RunRecord, error) {
	s.mu.RLock()
	out := make([]snapshot.RunRecord, 0, len(s.runs))
	for _, record := range s.runs {
		out = append(out, record)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
