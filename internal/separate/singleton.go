package separate

import (
	"sync"

	"diarserver/internal/config"
)

var (
	instance *Pipeline
	once     sync.Once
)

// Get returns the process-wide separation pipeline, constructing it on
// first call. The busy latch (spec §4.5 "at most one separation may be in
// progress per process") only works as a process-wide invariant if every
// caller shares this instance.
func Get(cfg config.Separate, ffmpegBin string) *Pipeline {
	once.Do(func() {
		instance = New(cfg, ffmpegBin)
	})
	return instance
}
