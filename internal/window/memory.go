package window

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements ContentStore and HistoryStore in process. Reads return
// copies, so a snapshot is never affected by later inserts.
type MemoryStore struct {
	cfg Config

	mu      sync.RWMutex
	content map[string][]ContentEntry
	history map[string][]time.Time
}

func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		cfg:     cfg.withDefaults(),
		content: map[string][]ContentEntry{},
		history: map[string][]time.Time{},
	}
}

func (s *MemoryStore) RecentContent(_ context.Context, businessID string, since time.Time) ([]ContentEntry, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.content[businessID]
	out := make([]ContentEntry, 0, len(entries))
	for _, e := range entries {
		if !e.RecordedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertContent(_ context.Context, businessID string, e ContentEntry) error {
	if strings.TrimSpace(businessID) == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// one entry per session, the latest insert wins
	entries := make([]ContentEntry, 0, len(s.content[businessID])+1)
	for _, old := range s.content[businessID] {
		if e.SessionID == "" || old.SessionID != e.SessionID {
			entries = append(entries, old)
		}
	}
	entries = append(entries, e)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].RecordedAt.Before(entries[j].RecordedAt) })
	entries = trimEntries(entries, s.cfg)
	s.content[businessID] = entries
	return nil
}

func (s *MemoryStore) Submissions(_ context.Context, customerHash string, since time.Time) ([]time.Time, error) {
	if strings.TrimSpace(customerHash) == "" {
		return nil, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Time
	for _, t := range s.history[customerHash] {
		if !t.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordSubmission(_ context.Context, customerHash string, at time.Time) error {
	if strings.TrimSpace(customerHash) == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.history[customerHash]
	for _, t := range ts {
		if t.Equal(at) {
			return nil
		}
	}
	ts = append(ts, at)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	newest := ts[len(ts)-1]
	cut := 0
	for cut < len(ts) && ts[cut].Before(newest.Add(-s.cfg.Retention)) {
		cut++
	}
	ts = ts[cut:]
	if len(ts) > s.cfg.MaxEntries {
		ts = ts[len(ts)-s.cfg.MaxEntries:]
	}
	s.history[customerHash] = ts
	return nil
}

// trimEntries drops entries older than retention relative to the newest one,
// then keeps at most MaxEntries of the newest.
func trimEntries(entries []ContentEntry, cfg Config) []ContentEntry {
	if len(entries) == 0 {
		return entries
	}
	newest := entries[len(entries)-1].RecordedAt
	cut := 0
	for cut < len(entries) && entries[cut].RecordedAt.Before(newest.Add(-cfg.Retention)) {
		cut++
	}
	entries = entries[cut:]
	if len(entries) > cfg.MaxEntries {
		entries = entries[len(entries)-cfg.MaxEntries:]
	}
	return append([]ContentEntry(nil), entries...)
}
