// internal/common/database/health.go
package database

import (
	"context"
	"sort"
	"time"
)

// Pinger is implemented by every backing service that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// CheckAll pings every dependency with a shared timeout and reports "ok" or the error text.
// ready is false when any dependency fails.
func CheckAll(ctx context.Context, timeout time.Duration, deps map[string]Pinger) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	status := make(map[string]string, len(deps))
	ready := true
	for _, name := range names {
		if err := deps[name].Ping(ctx); err != nil {
			status[name] = err.Error()
			ready = false
			continue
		}
		status[name] = "ok"
	}
	return status, ready
}
