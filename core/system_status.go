package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Pinger is a backing service that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemStatus is the /healthz body.
type SystemStatus struct {
	Status        string            `json:"status"` // "ok" or "degraded"
	Dependencies  map[string]string `json:"dependencies,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// HealthChecker pings the registered dependencies of the API process.
type HealthChecker struct {
	startedAt time.Time
	timeout   time.Duration
	deps      map[string]Pinger
}

func NewHealthChecker(startedAt time.Time) *HealthChecker {
	return &HealthChecker{startedAt: startedAt, timeout: 2 * time.Second, deps: map[string]Pinger{}}
}

// Add registers a dependency under name. It is not safe to call once the
// router is serving.
func (h *HealthChecker) Add(name string, p Pinger) {
	h.deps[name] = p
}

// Collect pings every dependency concurrently. Any failure marks the whole
// status degraded; the error text itself is only logged by the caller.
func (h *HealthChecker) Collect(ctx context.Context) (SystemStatus, map[string]error) {
	st := SystemStatus{Status: statusOK}
	if h == nil {
		return st, nil
	}
	if !h.startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(h.startedAt).Seconds())
	}
	if len(h.deps) == 0 {
		return st, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, p Pinger) {
			defer wg.Done()
			errs[i] = p.Ping(ctx)
		}(i, h.deps[name])
	}
	wg.Wait()

	st.Dependencies = make(map[string]string, len(names))
	failed := map[string]error{}
	for i, name := range names {
		if errs[i] != nil {
			st.Dependencies[name] = "down"
			st.Status = statusDegraded
			failed[name] = errs[i]
			continue
		}
		st.Dependencies[name] = "up"
	}
	return st, failed
}
