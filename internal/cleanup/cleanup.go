// Package cleanup deletes temporary request artifacts, immediately or after
// a grace delay. Deletion is best-effort: failures are logged, never
// propagated, because cleanup must not fail a request.
package cleanup

import (
	"log/slog"
	"os"
	"time"

	"github.com/lbre/imgbatch/internal/storage"
)

// Scheduler removes files inside the temp-file boundary.
type Scheduler struct {
	store storage.Store
	log   *slog.Logger
}

// New creates a Scheduler bounded by store.
func New(store storage.Store) *Scheduler {
	return &Scheduler{store: store, log: slog.With("component", "cleanup")}
}

// RemoveNow unlinks every path immediately. Paths outside the boundary are
// refused and logged; a missing file is not an error.
func (s *Scheduler) RemoveNow(paths ...string) {
	for _, path := range paths {
		s.remove(path)
	}
}

// Schedule unlinks every path after delay. Used for the archive grace
// period, so the client has time to download before deletion.
func (s *Scheduler) Schedule(delay time.Duration, paths ...string) {
	targets := make([]string, len(paths))
	copy(targets, paths)
	time.AfterFunc(delay, func() {
		s.RemoveNow(targets...)
	})
}

func (s *Scheduler) remove(path string) {
	if !s.store.Within(path) {
		s.log.Warn("refusing to delete path outside boundary", "path", path)
		return
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		s.log.Debug("removed temp file", "path", path)
	case os.IsNotExist(err):
		// Already gone.
	default:
		s.log.Warn("could not remove temp file", "path", path, "error", err)
	}
}
