// SPDX-License-Identifier: MIT

package patrol

import (
	"context"
	"time"

	"github.com/jellypatrol/jellypatrol/internal/config"
	"github.com/jellypatrol/jellypatrol/internal/mediaserver"
	"github.com/rs/zerolog"
)

// SessionClient is the capability set the loop needs from a media
// server, shared by the Jellyfin and Emby variants.
type SessionClient interface {
	Sessions(ctx context.Context) ([]mediaserver.Session, error)
	SendMessage(ctx context.Context, sessionID, header, text string, timeout time.Duration) error
	StopPlayback(ctx context.Context, sessionID string) error
}

// MetricsRecorder defines the interface for recording patrol metrics.
type MetricsRecorder interface {
	RecordActiveSessions(server string, n int)
	IncSessionEvaluated(server string)
	IncViolation(server, path string)
	IncTermination(server, outcome string)
	IncDryRun(server string)
	IncNotifyFailure(server string)
	IncFetchFailure(server string)
	ObserveCycleDuration(server string, seconds float64)
}

// ClientFactory builds a session client for one configured server.
type ClientFactory func(srv config.Server) SessionClient

// Deps holds all dependencies for one server loop.
type Deps struct {
	Logger  zerolog.Logger
	Client  SessionClient
	Metrics MetricsRecorder
	Policy  config.Policy
	Server  config.Server
	Clock   func() time.Time
}

type nopMetrics struct{}

func (nopMetrics) RecordActiveSessions(string, int)     {}
func (nopMetrics) IncSessionEvaluated(string)           {}
func (nopMetrics) IncViolation(string, string)          {}
func (nopMetrics) IncTermination(string, string)        {}
func (nopMetrics) IncDryRun(string)                     {}
func (nopMetrics) IncNotifyFailure(string)              {}
func (nopMetrics) IncFetchFailure(string)               {}
func (nopMetrics) ObserveCycleDuration(string, float64) {}
