package scheduler

import (
	"sync"

	"diarserver/internal/config"
)

var (
	instance *Scheduler
	once     sync.Once
)

// Get returns the process-wide scheduler, constructing it on first call
// with cfg. Subsequent calls ignore cfg and return the same instance —
// configuration is captured once, per spec §4.1's singleton contract.
func Get(cfg config.Scheduler) *Scheduler {
	once.Do(func() {
		instance = New(cfg)
	})
	return instance
}
