package lifecycle

import (
	"sync"
	"time"
)

// timerKind names the pending timers a tab can hold.
type timerKind string

const (
	timerIdle    timerKind = "idle"
	timerSuspend timerKind = "suspend"
	timerBlur    timerKind = "blur"
)

// scheduler keeps at most one pending timer per tab and kind.
// Scheduling again cancels the previous timer first.
type scheduler struct {
	mu     sync.Mutex
	timers map[string]map[timerKind]*time.Timer
	after  func(d time.Duration, fn func()) *time.Timer
	closed bool
}

func newScheduler() *scheduler {
	return &scheduler{
		timers: make(map[string]map[timerKind]*time.Timer),
		after:  time.AfterFunc,
	}
}

func (s *scheduler) schedule(id string, kind timerKind, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	byKind, ok := s.timers[id]
	if !ok {
		byKind = make(map[timerKind]*time.Timer)
		s.timers[id] = byKind
	}
	if prev, ok := byKind[kind]; ok {
		prev.Stop()
	}
	byKind[kind] = s.after(d, func() {
		s.clear(id, kind)
		fn()
	})
}

func (s *scheduler) cancel(id string, kind timerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byKind, ok := s.timers[id]; ok {
		if timer, ok := byKind[kind]; ok {
			timer.Stop()
			delete(byKind, kind)
		}
	}
}

func (s *scheduler) cancelAll(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, timer := range s.timers[id] {
		timer.Stop()
	}
	delete(s.timers, id)
}

// cancelKind cancels one kind of timer across every tab.
func (s *scheduler) cancelKind(kind timerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, byKind := range s.timers {
		if timer, ok := byKind[kind]; ok {
			timer.Stop()
			delete(byKind, kind)
		}
	}
}

func (s *scheduler) clear(id string, kind timerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byKind, ok := s.timers[id]; ok {
		delete(byKind, kind)
		if len(byKind) == 0 {
			delete(s.timers, id)
		}
	}
}

// pending reports whether a timer of the kind is armed for the tab.
func (s *scheduler) pending(id string, kind timerKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKind, ok := s.timers[id]
	if !ok {
		return false
	}
	_, ok = byKind[kind]
	return ok
}

func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, byKind := range s.timers {
		for _, timer := range byKind {
			timer.Stop()
		}
	}
	s.timers = make(map[string]map[timerKind]*time.Timer)
}
