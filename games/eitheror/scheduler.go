package eitheror

import (
	"sync"
	"time"
)

type scheduledTask struct {
	timer *time.Timer
	seq   uint64
}

// Scheduler runs deferred tasks keyed by room code. Scheduling a key that is
// already pending replaces the earlier task.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]scheduledTask
	seq   uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks: make(map[string]scheduledTask),
	}
}

func (s *Scheduler) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[key]; ok {
		t.timer.Stop()
	}

	s.seq++
	seq := s.seq

	s.tasks[key] = scheduledTask{
		seq: seq,
		timer: time.AfterFunc(d, func() {
			s.mu.Lock()
			t, ok := s.tasks[key]
			if !ok || t.seq != seq {
				s.mu.Unlock()
				return
			}
			delete(s.tasks, key)
			s.mu.Unlock()

			fn()
		}),
	}
}

// Cancel stops the pending task for key. It reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok {
		return false
	}

	t.timer.Stop()
	delete(s.tasks, key)

	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[key]
	return ok
}

// Stop cancels every pending task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
}
