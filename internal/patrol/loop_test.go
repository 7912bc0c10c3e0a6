// SPDX-License-Identifier: MIT

package patrol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jellypatrol/jellypatrol/internal/config"
	"github.com/jellypatrol/jellypatrol/internal/mediaserver"
	"github.com/jellypatrol/jellypatrol/internal/policy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu         sync.Mutex
	sessions   []mediaserver.Session
	fetchErr   error
	messageErr error
	stopErr    error
	calls      []string
}

func (f *fakeClient) Sessions(ctx context.Context) ([]mediaserver.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "sessions")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.sessions, nil
}

func (f *fakeClient) SendMessage(ctx context.Context, sessionID, header, text string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "message:"+sessionID)
	return f.messageErr
}

func (f *fakeClient) StopPlayback(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop:"+sessionID)
	return f.stopErr
}

func (f *fakeClient) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeMetrics struct {
	mu             sync.Mutex
	evaluated      int
	violations     map[string]int
	terminations   map[string]int
	dryRuns        int
	notifyFailures int
	fetchFailures  int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		violations:   make(map[string]int),
		terminations: make(map[string]int),
	}
}

func (m *fakeMetrics) RecordActiveSessions(string, int) {}
func (m *fakeMetrics) IncSessionEvaluated(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluated++
}
func (m *fakeMetrics) IncViolation(_ string, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations[path]++
}
func (m *fakeMetrics) totalViolations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.violations {
		n += c
	}
	return n
}
func (m *fakeMetrics) IncTermination(_ string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminations[outcome]++
}
func (m *fakeMetrics) IncDryRun(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dryRuns++
}
func (m *fakeMetrics) IncNotifyFailure(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyFailures++
}
func (m *fakeMetrics) IncFetchFailure(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchFailures++
}
func (m *fakeMetrics) ObserveCycleDuration(string, float64) {}

func testPolicy() config.Policy {
	return config.Policy{
		Rules: policy.Rules{
			Resolution:      policy.Resolution4K,
			VideoIndicators: policy.IndicatorSet(policy.DefaultVideoIndicators()),
			AudioIndicators: policy.IndicatorSet(policy.DefaultAudioIndicators()),
			ContainerExempt: true,
			AssumeWorst:     true,
		},
		KillEnabled:    true,
		MessageHeader:  "Playback Terminated",
		MessageBody:    "Server policy violation.",
		MessageTimeout: 7 * time.Second,
		Interval:       10 * time.Millisecond,
	}
}

func violatingSession(id string) mediaserver.Session {
	return mediaserver.Session{
		ID:               id,
		User:             "alice",
		Client:           "web",
		Width:            3840,
		Height:           2160,
		TranscodeReasons: []string{"VideoCodecNotSupported"},
		VideoTranscoding: true,
	}
}

func newTestLoop(client SessionClient, metrics MetricsRecorder, pol config.Policy) *Loop {
	return NewLoop(Deps{
		Logger:  zerolog.Nop(),
		Client:  client,
		Metrics: metrics,
		Policy:  pol,
		Server:  config.Server{Name: "test", Enabled: true},
	})
}

func TestCycleTerminatesViolation(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sessions: []mediaserver.Session{violatingSession("bad")}}
	metrics := newFakeMetrics()
	loop := newTestLoop(client, metrics, testPolicy())

	loop.runCycle(context.Background())

	require.Equal(t, []string{"sessions", "message:bad", "stop:bad"}, client.callLog(),
		"message must be sent before the stop command")
	assert.Equal(t, 1, metrics.evaluated)
	assert.Equal(t, 1, metrics.violations["video"])
	assert.Equal(t, 1, metrics.terminations["success"])
	assert.False(t, loop.LastCycle().IsZero())
}

func TestCycleDryRunSkipsSideEffects(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sessions: []mediaserver.Session{violatingSession("bad")}}
	metrics := newFakeMetrics()
	pol := testPolicy()
	pol.KillEnabled = false
	loop := newTestLoop(client, metrics, pol)

	loop.runCycle(context.Background())

	require.Equal(t, []string{"sessions"}, client.callLog(),
		"dry run must not touch the remote server")
	assert.Equal(t, 1, metrics.totalViolations(), "verdict is still computed in dry-run mode")
	assert.Equal(t, 1, metrics.dryRuns)
	assert.Empty(t, metrics.terminations)
}

func TestCycleNotifyFailureDoesNotSuppressStop(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		sessions:   []mediaserver.Session{violatingSession("bad")},
		messageErr: errors.New("client gone"),
	}
	metrics := newFakeMetrics()
	loop := newTestLoop(client, metrics, testPolicy())

	loop.runCycle(context.Background())

	require.Equal(t, []string{"sessions", "message:bad", "stop:bad"}, client.callLog())
	assert.Equal(t, 1, metrics.notifyFailures)
	assert.Equal(t, 1, metrics.terminations["success"])
}

func TestCycleStopFailureIsRecorded(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		sessions: []mediaserver.Session{violatingSession("one"), violatingSession("two")},
		stopErr:  errors.New("upstream 500"),
	}
	metrics := newFakeMetrics()
	loop := newTestLoop(client, metrics, testPolicy())

	loop.runCycle(context.Background())

	// Both sessions are still processed; a dispatch failure is isolated.
	require.Equal(t, []string{"sessions", "message:one", "stop:one", "message:two", "stop:two"}, client.callLog())
	assert.Equal(t, 2, metrics.terminations["failure"])
}

func TestCycleFetchFailureSkipsCycle(t *testing.T) {
	t.Parallel()

	client := &fakeClient{fetchErr: errors.New("connection refused")}
	metrics := newFakeMetrics()
	loop := newTestLoop(client, metrics, testPolicy())

	loop.runCycle(context.Background())

	require.Equal(t, []string{"sessions"}, client.callLog())
	assert.Equal(t, 1, metrics.fetchFailures)
	assert.True(t, loop.LastCycle().IsZero(), "failed cycle must not count as successful")
}

func TestCycleCompliantSessionsUntouched(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sessions: []mediaserver.Session{
		{
			ID: "hd", User: "bob", Width: 1920, Height: 1080,
			TranscodeReasons: []string{"VideoCodecNotSupported"},
			VideoTranscoding: true,
		},
		{
			ID: "direct", User: "carol", Width: 3840, Height: 2160,
		},
	}}
	metrics := newFakeMetrics()
	loop := newTestLoop(client, metrics, testPolicy())

	loop.runCycle(context.Background())

	require.Equal(t, []string{"sessions"}, client.callLog())
	assert.Equal(t, 2, metrics.evaluated, "compliant sessions still count as evaluated")
	assert.Zero(t, metrics.totalViolations())
}

func TestCycleCountsViolationsPerPath(t *testing.T) {
	t.Parallel()

	audio := violatingSession("mixed")
	audio.TranscodeReasons = append(audio.TranscodeReasons, "AudioCodecNotSupported")
	audio.AudioTranscoding = true

	client := &fakeClient{sessions: []mediaserver.Session{audio}}
	metrics := newFakeMetrics()
	pol := testPolicy()
	pol.Rules.CheckAudio = true
	loop := newTestLoop(client, metrics, pol)

	loop.runCycle(context.Background())

	assert.Equal(t, 1, metrics.violations["video"])
	assert.Equal(t, 1, metrics.violations["audio"])
}

func TestRunLoopsUntilCancelled(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	loop := newTestLoop(client, newFakeMetrics(), testPolicy())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	calls := client.callLog()
	require.NotEmpty(t, calls, "first cycle must run immediately")
	assert.GreaterOrEqual(t, len(calls), 2, "ticker cycles expected within the test window")
}

func TestOrchestratorRunsEnabledServersOnly(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	built := []string{}

	pol := testPolicy()
	servers := []config.Server{
		{Name: "a", BaseURL: "http://a:8096", Enabled: true},
		{Name: "b", BaseURL: "http://b:8096", Enabled: false},
		{Name: "c", BaseURL: "http://c:8096", Enabled: true},
	}

	clients := map[string]*fakeClient{}
	o := NewOrchestrator(pol, servers, func(srv config.Server) SessionClient {
		mu.Lock()
		defer mu.Unlock()
		built = append(built, srv.Name)
		c := &fakeClient{}
		clients[srv.Name] = c
		return c
	}, newFakeMetrics())

	require.Equal(t, []string{"a", "c"}, built)
	require.Len(t, o.Loops(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, o.Run(ctx))

	assert.NotEmpty(t, clients["a"].callLog())
	assert.NotEmpty(t, clients["c"].callLog())
}

func TestOrchestratorIsolatesServerFailures(t *testing.T) {
	t.Parallel()

	pol := testPolicy()
	servers := []config.Server{
		{Name: "healthy", BaseURL: "http://a:8096", Enabled: true},
		{Name: "broken", BaseURL: "http://b:8096", Enabled: true},
	}

	healthy := &fakeClient{}
	broken := &fakeClient{fetchErr: errors.New("unreachable")}
	o := NewOrchestrator(pol, servers, func(srv config.Server) SessionClient {
		if srv.Name == "broken" {
			return broken
		}
		return healthy
	}, newFakeMetrics())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, o.Run(ctx))

	assert.GreaterOrEqual(t, len(healthy.callLog()), 2,
		"healthy server must keep cycling while the broken one fails")
}
