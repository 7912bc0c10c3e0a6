// SPDX-License-Identifier: MIT

package patrol

import (
	"context"

	"github.com/jellypatrol/jellypatrol/internal/config"
	"github.com/jellypatrol/jellypatrol/internal/log"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs one loop per enabled server. Loops are fully
// independent: a slow or failing server never delays another server's
// cycle. The only shared state is the read-only policy.
type Orchestrator struct {
	loops []*Loop
}

// NewOrchestrator builds a loop for every enabled server.
func NewOrchestrator(pol config.Policy, servers []config.Server, newClient ClientFactory, metrics MetricsRecorder) *Orchestrator {
	o := &Orchestrator{}
	for _, srv := range servers {
		if !srv.Enabled {
			continue
		}
		o.loops = append(o.loops, NewLoop(Deps{
			Logger:  log.WithServer("patrol", srv.Name),
			Client:  newClient(srv),
			Metrics: metrics,
			Policy:  pol,
			Server:  srv,
		}))
	}
	return o
}

// Loops returns the per-server loops, for readiness checks.
func (o *Orchestrator) Loops() []*Loop {
	return o.loops
}

// Run starts all loops and blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, loop := range o.loops {
		loop := loop
		g.Go(func() error {
			loop.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}
