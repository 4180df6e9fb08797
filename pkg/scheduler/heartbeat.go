// Package scheduler drives cron-triggered SystemEvent publications onto the
// swarm's router, e.g. a periodic heartbeat used by external monitors to
// tell a wedged bus apart from an idle one.
package scheduler

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/sipeed/picoclaw/pkg/bus"
)

// HeartbeatScheduler evaluates a cron expression once a second and publishes
// a "heartbeat" SystemEvent the first time each due window is observed.
type HeartbeatScheduler struct {
	router *bus.Router
	expr   string
	gron   *gronx.Gronx
}

// NewHeartbeatScheduler builds a scheduler that fires expr (standard cron
// syntax, or gronx's "@every"/"@daily"-style tags) against router.
func NewHeartbeatScheduler(router *bus.Router, expr string) *HeartbeatScheduler {
	return &HeartbeatScheduler{router: router, expr: expr, gron: gronx.New()}
}

// Run polls expr until ctx is cancelled, publishing one heartbeat per due
// minute window. Due-window granularity is one minute, matching gronx's own
// cron resolution, so a sub-minute "@every" expression fires at most once
// per minute here.
func (s *HeartbeatScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastFired time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			window := now.Truncate(time.Minute)
			due, err := s.gron.IsDue(s.expr, window)
			if err != nil {
				s.router.PublishSystem(bus.SystemEvent{Type: "scheduler.error", Source: "scheduler", Data: err.Error()})
				continue
			}
			if due && !window.Equal(lastFired) {
				lastFired = window
				s.router.PublishSystem(bus.SystemEvent{Type: "heartbeat", Source: "scheduler", Data: now})
			}
		}
	}
}
