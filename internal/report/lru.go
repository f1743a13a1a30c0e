package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recently used records in memory and falls back
// to a backing Store on a miss. Every Save is written through.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // most recent at front; values are *Record
	items map[string]*list.Element
}

// NewLRUStore returns an LRUStore holding up to cap records in front of
// back. A cap below 1 is treated as 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches rec and writes it to the backing store.
func (s *LRUStore) Save(rec *Record) error {
	s.mu.Lock()
	s.put(rec)
	s.mu.Unlock()
	return s.back.Save(rec)
}

// Load returns the cached record for runID, or loads it from the backing
// store and caches it.
func (s *LRUStore) Load(runID string) (*Record, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		rec := e.Value.(*Record)
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(rec)
	s.mu.Unlock()
	return rec, nil
}

// Len returns the number of cached records.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// put inserts or refreshes rec, evicting the least recent entry when
// over capacity. s.mu must be held.
func (s *LRUStore) put(rec *Record) {
	if e, ok := s.items[rec.ID]; ok {
		e.Value = rec
		s.order.MoveToFront(e)
		return
	}
	s.items[rec.ID] = s.order.PushFront(rec)
	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Record).ID)
	}
}
