package separate

import (
	"os"
	"sync"
)

// tempSet is an explicit set of temporary file paths owned by one
// pipeline run. cleanup removes every tracked path best-effort; it is the
// single operation invoked on every exit path (success, error, cancel)
// per spec §9 — there is no reliance on finalizers or destructors.
type tempSet struct {
	mu    sync.Mutex
	paths []string
}

func (t *tempSet) track(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, path)
}

// untrack removes path from the set without deleting it, for callers that
// need a tracked path to survive an earlier cleanup than the pipeline's own.
func (t *tempSet) untrack(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.paths {
		if p == path {
			t.paths = append(t.paths[:i], t.paths[i+1:]...)
			return
		}
	}
}

func (t *tempSet) cleanup() {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.mu.Unlock()

	for _, p := range paths {
		os.RemoveAll(p) // best-effort; covers tracked directories as well as files
	}
}
