package cache

import (
	"sync"

	"diarserver/internal/config"
)

var (
	instance *Cache
	once     sync.Once
)

// Get returns the process-wide result cache, constructing it on first call
// with cfg. Subsequent calls ignore cfg, matching the scheduler's
// once-configured singleton contract.
func Get(cfg config.Cache) *Cache {
	once.Do(func() {
		instance = New(cfg)
	})
	return instance
}
