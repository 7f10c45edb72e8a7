// Package quota bounds daily request volume per client.
package quota

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Store is a keyed daily counter with atomic increment-then-compare
// semantics: an Allow call either consumes one unit and returns true, or
// leaves the counter untouched and returns false. Separate check and
// increment steps are deliberately not part of the contract.
type Store interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// KeyFunc derives the quota key for a request. The identity strategy is
// pluggable; swapping it never requires touching a Store implementation.
type KeyFunc func(r *http.Request) string

// CompositeKey keys quota on remote IP plus User-Agent.
func CompositeKey(r *http.Request) string {
	return clientIP(r) + "|" + r.UserAgent()
}

// IPKey keys quota on remote IP alone.
func IPKey(r *http.Request) string {
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr already without a port (e.g. behind RealIP middleware).
		return r.RemoteAddr
	}
	return host
}

// windowStart returns the beginning of the daily quota window containing t.
func windowStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
