package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a per-process CounterStore. State is lost on restart and is not
// shared between instances.
type MemoryStore struct {
	counters map[string]*windowCounter
	nowTime  func() time.Time
	lock     sync.Mutex
}

var _ CounterStore = (*MemoryStore)(nil)

type MemoryStoreOption func(*MemoryStore)

func WithNowTime(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.nowTime = now
	}
}

func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		counters: make(map[string]*windowCounter),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	c, ok := s.counters[key]
	if !ok {
		return 0, nil
	}
	if !s.nowTime().Before(c.resetAt) {
		delete(s.counters, key)
		return 0, nil
	}
	return c.count, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.nowTime()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &windowCounter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.counters, key)
	return nil
}

// Sweep drops closed windows and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.nowTime()
	removed := 0
	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
