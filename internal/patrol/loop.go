// SPDX-License-Identifier: MIT

// Package patrol drives the poll/evaluate/enforce cycle against each
// configured media server.
package patrol

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellypatrol/jellypatrol/internal/log"
	"github.com/jellypatrol/jellypatrol/internal/mediaserver"
	"github.com/jellypatrol/jellypatrol/internal/policy"
)

// Loop polls one server on a fixed interval. All state it mutates is
// its own; the policy it evaluates against is read-only.
type Loop struct {
	deps      Deps
	busy      atomic.Bool
	lastCycle atomic.Value // time.Time of last successful cycle
}

// NewLoop creates a patrol loop for one server.
func NewLoop(deps Deps) *Loop {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Loop{deps: deps}
}

// Name returns the configured server name.
func (l *Loop) Name() string {
	return l.deps.Server.Name
}

// LastCycle returns the completion time of the last successful cycle,
// or the zero time if none has completed yet.
func (l *Loop) LastCycle() time.Time {
	if t, ok := l.lastCycle.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// Run blocks until ctx is cancelled. The first cycle runs immediately,
// subsequent cycles on the policy interval. A cycle that outlasts the
// interval causes ticks to be dropped rather than cycles to pile up.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.deps.Policy.Interval)
	defer ticker.Stop()

	l.tryRunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tryRunCycle(ctx)
		}
	}
}

func (l *Loop) tryRunCycle(ctx context.Context) {
	if !l.busy.CompareAndSwap(false, true) {
		return // Skip if a cycle is still in flight
	}
	defer l.busy.Store(false)

	l.runCycle(ctx)
}

// runCycle performs one fetch/evaluate/enforce pass. A fetch failure
// skips this cycle for this server only; a dispatch failure is
// isolated to its session.
func (l *Loop) runCycle(ctx context.Context) {
	logger := l.deps.Logger
	server := l.deps.Server.Name
	start := l.deps.Clock()

	sessions, err := l.deps.Client.Sessions(ctx)
	if err != nil {
		l.deps.Metrics.IncFetchFailure(server)
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "patrol.fetch_failed").
			Msg("failed to fetch sessions, skipping cycle")
		return
	}

	l.deps.Metrics.RecordActiveSessions(server, len(sessions))

	for _, session := range sessions {
		l.deps.Metrics.IncSessionEvaluated(server)
		verdict := policy.Evaluate(snapshotOf(session), l.deps.Policy.Rules)
		if verdict.Action != policy.ActionTerminate {
			logger.Debug().
				Str(log.FieldEvent, "patrol.session_ok").
				Str(log.FieldSessionID, session.ID).
				Str(log.FieldUser, session.User).
				Str(log.FieldPlayMethod, session.PlayMethod).
				Msg("session within policy")
			continue
		}

		for _, path := range verdict.Paths {
			l.deps.Metrics.IncViolation(server, path)
		}
		l.dispatch(ctx, session, verdict)
	}

	l.deps.Metrics.ObserveCycleDuration(server, l.deps.Clock().Sub(start).Seconds())
	l.lastCycle.Store(l.deps.Clock())
}

// dispatch executes the side effects for one terminate verdict. The
// pre-termination message is best-effort: a notify failure never
// suppresses the stop command.
func (l *Loop) dispatch(ctx context.Context, session mediaserver.Session, verdict policy.Verdict) {
	logger := l.deps.Logger.With().
		Str(log.FieldSessionID, verdict.SessionID).
		Str(log.FieldUser, session.User).
		Str(log.FieldClient, session.Client).
		Logger()
	server := l.deps.Server.Name
	pol := l.deps.Policy

	if !pol.KillEnabled {
		l.deps.Metrics.IncDryRun(server)
		logger.Info().
			Str(log.FieldEvent, "patrol.dry_run").
			Str(log.FieldAction, string(verdict.Action)).
			Str(log.FieldReasons, verdict.Reason).
			Msg("dry run: would terminate session")
		return
	}

	logger.Warn().
		Str(log.FieldEvent, "patrol.terminating").
		Str(log.FieldReasons, verdict.Reason).
		Msg("terminating session")

	if err := l.deps.Client.SendMessage(ctx, verdict.SessionID, pol.MessageHeader, pol.MessageBody, pol.MessageTimeout); err != nil {
		l.deps.Metrics.IncNotifyFailure(server)
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "patrol.notify_failed").
			Msg("failed to deliver message, proceeding with termination")
	}

	if err := l.deps.Client.StopPlayback(ctx, verdict.SessionID); err != nil {
		l.deps.Metrics.IncTermination(server, "failure")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "patrol.terminate_failed").
			Msg("failed to stop playback")
		return
	}

	l.deps.Metrics.IncTermination(server, "success")
	logger.Info().
		Str(log.FieldEvent, "patrol.terminated").
		Msg("session terminated")
}

func snapshotOf(s mediaserver.Session) policy.Snapshot {
	return policy.Snapshot{
		ID:               s.ID,
		User:             s.User,
		Client:           s.Client,
		Width:            s.Width,
		Height:           s.Height,
		Codec:            s.Codec,
		TargetWidth:      s.TargetWidth,
		TargetHeight:     s.TargetHeight,
		Reasons:          s.TranscodeReasons,
		VideoTranscoding: s.VideoTranscoding,
		AudioTranscoding: s.AudioTranscoding,
	}
}
