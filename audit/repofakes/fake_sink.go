package repofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/dietitian-server/audit"
)

var _ audit.Sink = (*FakeSink)(nil)

type FakeSink struct {
	events []audit.Event
	err    error
	lock   sync.RWMutex
}

func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// FailWith makes every later Write return err.
func (s *FakeSink) FailWith(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.err = err
}

func (s *FakeSink) Write(_ context.Context, event audit.Event) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *FakeSink) Events() []audit.Event {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]audit.Event(nil), s.events...)
}

// Types returns the event types in write order.
func (s *FakeSink) Types() []audit.EventType {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]audit.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}
