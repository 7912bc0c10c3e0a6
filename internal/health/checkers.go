// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"
)

// ServerChecker probes connectivity to one configured media server.
type ServerChecker struct {
	name  string
	probe func(ctx context.Context) error
}

// NewServerChecker creates a connectivity checker for a media server.
func NewServerChecker(name string, probe func(ctx context.Context) error) *ServerChecker {
	return &ServerChecker{name: name, probe: probe}
}

func (c *ServerChecker) Name() string {
	return "server_" + c.name
}

func (c *ServerChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.probe(ctx); err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "media server reachable",
	}
}

// LastCycleChecker flags a patrol loop whose last successful cycle is
// stale. A loop that has not completed a cycle within three intervals
// is considered unhealthy.
type LastCycleChecker struct {
	name      string
	interval  time.Duration
	lastCycle func() time.Time
}

// NewLastCycleChecker creates a staleness checker for one patrol loop.
func NewLastCycleChecker(name string, interval time.Duration, lastCycle func() time.Time) *LastCycleChecker {
	return &LastCycleChecker{name: name, interval: interval, lastCycle: lastCycle}
}

func (c *LastCycleChecker) Name() string {
	return "patrol_" + c.name
}

func (c *LastCycleChecker) Check(ctx context.Context) CheckResult {
	last := c.lastCycle()
	if last.IsZero() {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no successful cycle yet",
		}
	}

	age := time.Since(last)
	if age > 3*c.interval {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   fmt.Sprintf("last successful cycle %s ago", age.Round(time.Second)),
			Message: "patrol loop stalled",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "patrol loop cycling",
	}
}
