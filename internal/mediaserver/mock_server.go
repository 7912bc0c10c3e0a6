// SPDX-License-Identifier: MIT

package mediaserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockServer provides a configurable Jellyfin/Emby mock for testing.
type MockServer struct {
	*httptest.Server
	mu       sync.RWMutex
	token    string
	sessions []map[string]any
	failures map[string]int // Number of failures before success per endpoint

	messages []MockMessage
	stops    []string
}

// MockMessage records a message delivered to a session.
type MockMessage struct {
	SessionID string
	Header    string `json:"Header"`
	Text      string `json:"Text"`
	TimeoutMs int64  `json:"TimeoutMs"`
}

// NewMockServer creates a mock media server answering the session API
// under both the Jellyfin and Emby path layouts.
func NewMockServer(token string) *MockServer {
	mock := &MockServer{
		token:    token,
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/Sessions", mock.handleSessions)
	mux.HandleFunc("/Sessions/", mock.handleSessionCommand)
	mux.HandleFunc("/emby/Sessions", mock.handleSessions)
	mux.HandleFunc("/emby/Sessions/", mock.handleSessionCommand)

	mock.Server = httptest.NewServer(mux)
	return mock
}

// SetSessions replaces the raw session objects returned by /Sessions.
func (m *MockServer) SetSessions(sessions []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = sessions
}

// FailNext makes the next n requests to the endpoint return 500.
func (m *MockServer) FailNext(endpoint string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[endpoint] = n
}

// Messages returns the messages delivered so far.
func (m *MockServer) Messages() []MockMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MockMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Stops returns the session ids that received a stop command.
func (m *MockServer) Stops() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.stops))
	copy(out, m.stops)
	return out
}

func (m *MockServer) authorized(r *http.Request) bool {
	return m.token == "" || r.Header.Get("X-Emby-Token") == m.token
}

func (m *MockServer) consumeFailure(endpoint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[endpoint] > 0 {
		m.failures[endpoint]--
		return true
	}
	return false
}

func (m *MockServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if m.consumeFailure("sessions") {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}

	m.mu.RLock()
	sessions := m.sessions
	m.mu.RUnlock()
	if sessions == nil {
		sessions = []map[string]any{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sessions)
}

func (m *MockServer) handleSessionCommand(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/emby")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 3 && parts[2] == "Message":
		if m.consumeFailure("message") {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return
		}
		var msg MockMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		msg.SessionID = parts[1]
		m.mu.Lock()
		m.messages = append(m.messages, msg)
		m.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 4 && parts[2] == "Playing" && parts[3] == "Stop":
		if m.consumeFailure("stop") {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return
		}
		m.mu.Lock()
		m.stops = append(m.stops, parts[1])
		m.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// TranscodingSession builds a raw session object in the server's wire
// format, for use with SetSessions.
func TranscodingSession(id, user string, width, height int, reasons []string) map[string]any {
	return map[string]any{
		"Id":       id,
		"UserName": user,
		"Client":   "Test Client",
		"PlayState": map[string]any{
			"PlayMethod": "Transcode",
		},
		"NowPlayingItem": map[string]any{
			"MediaType": "Video",
			"MediaStreams": []map[string]any{
				{"Type": "Video", "Width": width, "Height": height, "Codec": "hevc"},
				{"Type": "Audio", "Codec": "truehd"},
			},
		},
		"TranscodingInfo": map[string]any{
			"Width":            1920,
			"Height":           1080,
			"TranscodeReasons": reasons,
			"IsVideoDirect":    false,
			"IsAudioDirect":    false,
		},
	}
}
