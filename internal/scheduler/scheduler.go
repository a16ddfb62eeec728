// Package scheduler implements the bounded-concurrency, bounded-queue task
// scheduler described in spec §4.1. It is a process-wide singleton: one
// pool serves every HTTP handler in the process so that CPU-heavy pipeline
// work never runs unbounded.
package scheduler

import (
	"log"
	"sync"
	"time"

	"diarserver/internal/apierrors"
	"diarserver/internal/config"
)

// Work is the callable a task runs. It receives a cancellation channel that
// the scheduler closes on client cancellation or on timeout; well-behaved
// work checks it at its own suspension points and unwinds promptly.
type Work func(cancel <-chan struct{}) (interface{}, error)

// Result is the value posted to a task's done handle exactly once.
type Result struct {
	Value interface{}
	Err   error
}

// Event is an advisory lifecycle notification. No scheduler invariant
// depends on a consumer receiving one.
type Event struct {
	Kind      string // queued, started, completed, failed, removed, expired
	TaskID    string
	Position  int
	Active    int
	Pending   int
	ErrorKind string
}

// Status is the side-effect-free snapshot returned by Status().
type Status struct {
	Active        int
	Pending       int
	MaxConcurrent int
	MaxQueueSize  int
}

type task struct {
	id           string
	work         Work
	cancelSignal <-chan struct{}
	enqueuedAt   time.Time
	done         chan Result
	doneCh       chan struct{}
	doneOnce     sync.Once
}

func (t *task) markDone() {
	t.doneOnce.Do(func() { close(t.doneCh) })
}

// Scheduler is the bounded-concurrency admission controller fronting the
// diarization and separation pipelines.
type Scheduler struct {
	cfg config.Scheduler

	mu      sync.Mutex
	queue   []*task
	active  int

	listenersMu sync.RWMutex
	listeners   []func(Event)

	reaperStop chan struct{}
}

// New constructs a scheduler with the given configuration and starts its
// background reaper. Prefer Get() for the process-wide instance; New is
// exposed for tests that need an isolated scheduler.
func New(cfg config.Scheduler) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		reaperStop: make(chan struct{}),
	}
	go s.reapLoop()
	return s
}

// OnEvent registers an observer for lifecycle events. Order of delivery
// across listeners is unspecified.
func (s *Scheduler) OnEvent(fn func(Event)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Scheduler) emit(ev Event) {
	log.Printf("scheduler: task %s %s (active=%d pending=%d)", ev.TaskID, ev.Kind, ev.Active, ev.Pending)

	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(ev)
	}
}

// Status returns a point-in-time snapshot of the scheduler's load.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Active:        s.active,
		Pending:       len(s.queue),
		MaxConcurrent: s.cfg.MaxConcurrent,
		MaxQueueSize:  s.cfg.MaxQueueSize,
	}
}

// Enqueue submits work for execution and blocks until it completes, is
// cancelled, times out, or is rejected outright. See spec §4.1 for the
// full admission contract.
func (s *Scheduler) Enqueue(id string, work Work, cancelSignal <-chan struct{}) (interface{}, error) {
	if cancelSignal == nil {
		cancelSignal = make(chan struct{})
	}

	select {
	case <-cancelSignal:
		return nil, apierrors.ErrCancelled
	default:
	}

	t := &task{
		id:           id,
		work:         work,
		cancelSignal: cancelSignal,
		enqueuedAt:   time.Now(),
		done:         make(chan Result, 1),
		doneCh:       make(chan struct{}),
	}

	s.mu.Lock()
	if len(s.queue) >= s.cfg.MaxQueueSize {
		s.mu.Unlock()
		return nil, apierrors.ErrQueueFull
	}
	s.queue = append(s.queue, t)
	position := len(s.queue)
	s.mu.Unlock()

	s.emit(Event{Kind: "queued", TaskID: id, Position: position})
	go s.watchQueuedCancel(t)
	s.admit()

	res := <-t.done
	return res.Value, res.Err
}

// watchQueuedCancel removes a task from the queue the instant its
// cancellation signal fires, provided it has not already started running.
func (s *Scheduler) watchQueuedCancel(t *task) {
	select {
	case <-t.cancelSignal:
		s.mu.Lock()
		removed := s.removeFromQueue(t)
		s.mu.Unlock()
		if removed {
			t.markDone()
			t.done <- Result{Err: apierrors.ErrCancelled}
			s.emit(Event{Kind: "removed", TaskID: t.id})
		}
	case <-t.doneCh:
	}
}

func (s *Scheduler) removeFromQueue(t *task) bool {
	for i, qt := range s.queue {
		if qt == t {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// admit promotes as many queued tasks as the concurrency cap allows.
func (s *Scheduler) admit() {
	for {
		s.mu.Lock()
		if s.active >= s.cfg.MaxConcurrent || len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.active++
		active, pending := s.active, len(s.queue)
		s.mu.Unlock()

		s.emit(Event{Kind: "started", TaskID: t.id, Active: active, Pending: pending})
		go s.run(t)
	}
}

func (s *Scheduler) run(t *task) {
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		s.admit()
	}()

	remaining := s.cfg.TaskTimeout - time.Since(t.enqueuedAt)
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	stop := make(chan struct{})
	resultCh := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- Result{Err: apierrors.ErrInternal}
			}
		}()
		v, err := t.work(stop)
		resultCh <- Result{Value: v, Err: err}
	}()

	select {
	case res := <-resultCh:
		t.markDone()
		if res.Err != nil {
			t.done <- res
			s.emit(Event{Kind: "failed", TaskID: t.id, ErrorKind: classify(res.Err)})
		} else {
			t.done <- res
			s.emit(Event{Kind: "completed", TaskID: t.id})
		}
	case <-t.cancelSignal:
		close(stop)
		t.markDone()
		t.done <- Result{Err: apierrors.ErrCancelled}
		s.emit(Event{Kind: "failed", TaskID: t.id, ErrorKind: "Cancelled"})
		go func() { <-resultCh }()
	case <-timer.C:
		close(stop)
		t.markDone()
		t.done <- Result{Err: apierrors.ErrTimeout}
		s.emit(Event{Kind: "failed", TaskID: t.id, ErrorKind: "Timeout"})
		go func() { <-resultCh }()
	}
}

func classify(err error) string {
	switch {
	case err == apierrors.ErrCancelled:
		return "Cancelled"
	case err == apierrors.ErrTimeout:
		return "Timeout"
	default:
		return "InternalError"
	}
}

// reapLoop is the background reaper: every ReapInterval it fails any
// queued task that has been waiting longer than TaskTimeout. Running tasks
// have their own timeout and are unaffected.
func (s *Scheduler) reapLoop() {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.reaperStop:
			return
		case <-ticker.C:
			s.reapOnce()
		}
	}
}

func (s *Scheduler) reapOnce() {
	now := time.Now()
	var expired []*task

	s.mu.Lock()
	kept := s.queue[:0:0]
	for _, t := range s.queue {
		if now.Sub(t.enqueuedAt) > s.cfg.TaskTimeout {
			expired = append(expired, t)
		} else {
			kept = append(kept, t)
		}
	}
	s.queue = kept
	s.mu.Unlock()

	if len(expired) > 0 {
		log.Printf("scheduler: reaper sweep expired %d queued task(s)", len(expired))
	}
	for _, t := range expired {
		t.markDone()
		t.done <- Result{Err: apierrors.ErrExpired}
		s.emit(Event{Kind: "expired", TaskID: t.id})
	}
}

// Stop halts the background reaper. Intended for tests; the process-wide
// singleton is never stopped in production.
func (s *Scheduler) Stop() {
	close(s.reaperStop)
}
