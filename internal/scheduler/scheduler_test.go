package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"diarserver/internal/apierrors"
	"diarserver/internal/config"
)

func testConfig() config.Scheduler {
	return config.Scheduler{
		MaxConcurrent: 2,
		MaxQueueSize:  2,
		TaskTimeout:   2 * time.Second,
		ReapInterval:  50 * time.Millisecond,
	}
}

func TestEnqueue_HappyPath(t *testing.T) {
	s := New(testConfig())
	defer s.Stop()

	v, err := s.Enqueue("t1", func(cancel <-chan struct{}) (interface{}, error) {
		return 42, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int) != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestEnqueue_QueueFullFailsFast(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.MaxQueueSize = 1
	s := New(cfg)
	defer s.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	var executed int32

	go s.Enqueue("running", func(cancel <-chan struct{}) (interface{}, error) {
		atomic.AddInt32(&executed, 1)
		close(started)
		<-release
		return nil, nil
	}, nil)
	<-started

	go s.Enqueue("queued", func(cancel <-chan struct{}) (interface{}, error) {
		atomic.AddInt32(&executed, 1)
		return nil, nil
	}, nil)
	time.Sleep(20 * time.Millisecond) // let it land in the queue

	_, err := s.Enqueue("rejected", func(cancel <-chan struct{}) (interface{}, error) {
		atomic.AddInt32(&executed, 1)
		return nil, nil
	}, nil)
	if err != apierrors.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	if atomic.LoadInt32(&executed) > 2 {
		t.Fatalf("rejected work must never execute")
	}
}

func TestEnqueue_CancelledBeforeAdmission(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	s := New(cfg)
	defer s.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go s.Enqueue("running", func(cancel <-chan struct{}) (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	}, nil)
	<-started

	cancel := make(chan struct{})
	var ran int32
	resultCh := make(chan error, 1)
	go func() {
		_, err := s.Enqueue("cancelled", func(c <-chan struct{}) (interface{}, error) {
			atomic.AddInt32(&ran, 1)
			return nil, nil
		}, cancel)
		resultCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(cancel)

	select {
	case err := <-resultCh:
		if err != apierrors.ErrCancelled {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cancellation")
	}
	close(release)
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("cancelled-while-queued work must never execute")
	}
}

func TestEnqueue_AlreadyCancelledSignal(t *testing.T) {
	s := New(testConfig())
	defer s.Stop()

	cancel := make(chan struct{})
	close(cancel)

	_, err := s.Enqueue("t", func(c <-chan struct{}) (interface{}, error) {
		t.Fatal("work must not run")
		return nil, nil
	}, cancel)
	if err != apierrors.ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestEnqueue_RunningTaskObservesCancel(t *testing.T) {
	s := New(testConfig())
	defer s.Stop()

	cancel := make(chan struct{})
	observed := make(chan bool, 1)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(cancel)
	}()

	_, err := s.Enqueue("t", func(c <-chan struct{}) (interface{}, error) {
		select {
		case <-c:
			observed <- true
		case <-time.After(time.Second):
			observed <- false
		}
		return nil, nil
	}, cancel)

	if err != apierrors.ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !<-observed {
		t.Fatal("work never observed its cancellation channel")
	}
}

func TestEnqueue_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.TaskTimeout = 30 * time.Millisecond
	s := New(cfg)
	defer s.Stop()

	_, err := s.Enqueue("t", func(cancel <-chan struct{}) (interface{}, error) {
		<-cancel // wait for the scheduler to signal timeout
		return nil, nil
	}, nil)
	if err != apierrors.ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestReaper_ExpiresStaleQueuedTasks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.MaxQueueSize = 5
	cfg.TaskTimeout = 40 * time.Millisecond
	cfg.ReapInterval = 10 * time.Millisecond
	s := New(cfg)
	defer s.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go s.Enqueue("running", func(cancel <-chan struct{}) (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	}, nil)
	<-started

	_, err := s.Enqueue("stale", func(cancel <-chan struct{}) (interface{}, error) {
		t.Fatal("expired work must never execute")
		return nil, nil
	}, nil)
	if err != apierrors.ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	close(release)
}

func TestConcurrencyCapNeverExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 2
	cfg.MaxQueueSize = 10
	s := New(cfg)
	defer s.Stop()

	var wg sync.WaitGroup
	var current, max int32
	var mu sync.Mutex

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Enqueue("t", func(cancel <-chan struct{}) (interface{}, error) {
				mu.Lock()
				current++
				if current > max {
					max = current
				}
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				mu.Lock()
				current--
				mu.Unlock()
				return nil, nil
			}, nil)
		}(i)
	}
	wg.Wait()

	if max > int32(cfg.MaxConcurrent) {
		t.Fatalf("observed %d concurrent tasks, cap is %d", max, cfg.MaxConcurrent)
	}
}

func TestStatus(t *testing.T) {
	s := New(testConfig())
	defer s.Stop()

	st := s.Status()
	if st.MaxConcurrent != 2 || st.MaxQueueSize != 2 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Active != 0 || st.Pending != 0 {
		t.Fatalf("expected idle scheduler, got %+v", st)
	}
}
