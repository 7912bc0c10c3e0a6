// SPDX-License-Identifier: MIT

// Package config loads the patrol policy and the server list from the
// environment and validates them eagerly, before any loop starts.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jellypatrol/jellypatrol/internal/mediaserver"
	"github.com/jellypatrol/jellypatrol/internal/policy"
)

// MaxServers bounds the SERVER{N}_* slot scan.
const MaxServers = 10

const (
	defaultMessageHeader = "Playback Terminated"
	defaultMessageBody   = "Your video transcode session is being terminated due to server policy. " +
		"Please adjust your quality settings for future playback."
	defaultMessageTimeout = 7 * time.Second
	defaultInterval       = 30 * time.Second
)

// Policy is the process-wide patrol policy. It is constructed once at
// startup and shared read-only across all server loops.
type Policy struct {
	Rules          policy.Rules
	KillEnabled    bool
	MessageHeader  string
	MessageBody    string
	MessageTimeout time.Duration
	Interval       time.Duration
}

// Server describes one configured media server slot.
type Server struct {
	Name    string
	BaseURL string
	APIKey  string
	Kind    mediaserver.Kind
	Enabled bool
}

// LoadPolicy reads the patrol policy from JELLYPATROL_* environment
// variables and validates it.
func LoadPolicy() (Policy, error) {
	resName := ParseString("JELLYPATROL_RESOLUTION_POLICY", "4k")
	res, err := policy.ParseResolution(resName)
	if err != nil {
		return Policy{}, &ConfigError{Field: "JELLYPATROL_RESOLUTION_POLICY", Value: resName, Reason: err.Error()}
	}

	interval := ParseDuration("JELLYPATROL_INTERVAL", defaultInterval)
	if interval <= 0 {
		return Policy{}, &ConfigError{Field: "JELLYPATROL_INTERVAL", Value: interval.String(), Reason: "must be positive"}
	}

	p := Policy{
		Rules: policy.Rules{
			Resolution:      res,
			VideoIndicators: policy.IndicatorSet(ParseStringList("JELLYPATROL_VIDEO_INDICATORS", policy.DefaultVideoIndicators())),
			AudioIndicators: policy.IndicatorSet(ParseStringList("JELLYPATROL_AUDIO_INDICATORS", policy.DefaultAudioIndicators())),
			CheckAudio:      ParseBool("JELLYPATROL_CHECK_AUDIO", false),
			ContainerExempt: ParseBool("JELLYPATROL_CONTAINER_EXEMPT", true),
			AssumeWorst:     ParseBool("JELLYPATROL_ASSUME_WORST", true),
		},
		KillEnabled:    ParseBool("JELLYPATROL_KILL_STREAMS", true),
		MessageHeader:  ParseString("JELLYPATROL_MESSAGE_HEADER", defaultMessageHeader),
		MessageBody:    ParseString("JELLYPATROL_MESSAGE_BODY", defaultMessageBody),
		MessageTimeout: ParseDuration("JELLYPATROL_MESSAGE_TIMEOUT", defaultMessageTimeout),
		Interval:       interval,
	}
	return p, nil
}

// LoadServers scans the SERVER1_* .. SERVER10_* slots and returns the
// configured servers in slot order. A slot is configured when its URL
// is set; an enabled slot with missing or malformed fields is a fatal
// configuration error.
func LoadServers() ([]Server, error) {
	servers := make([]Server, 0, MaxServers)
	for n := 1; n <= MaxServers; n++ {
		prefix := fmt.Sprintf("SERVER%d", n)

		baseURL := ParseString(prefix+"_URL", "")
		enabled := ParseBool(prefix+"_ENABLED", baseURL != "")
		if baseURL == "" && !enabled {
			continue
		}

		srv := Server{
			Name:    ParseString(prefix+"_NAME", fmt.Sprintf("server%d", n)),
			BaseURL: baseURL,
			APIKey:  ParseString(prefix+"_API_KEY", ""),
			Enabled: enabled,
		}

		kindName := ParseString(prefix+"_TYPE", "jellyfin")
		kind, err := mediaserver.ParseKind(kindName)
		if err != nil {
			return nil, &ConfigError{Field: prefix + "_TYPE", Value: kindName, Reason: "unknown server type (want jellyfin or emby)"}
		}
		srv.Kind = kind

		if srv.Enabled {
			if srv.BaseURL == "" {
				return nil, &ConfigError{Field: prefix + "_URL", Reason: "required for an enabled server"}
			}
			if u, err := url.Parse(srv.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				return nil, &ConfigError{Field: prefix + "_URL", Value: srv.BaseURL, Reason: "must be an absolute http(s) URL"}
			}
			if srv.APIKey == "" {
				return nil, &ConfigError{Field: prefix + "_API_KEY", Reason: "required for an enabled server"}
			}
		}

		servers = append(servers, srv)
	}
	return servers, nil
}

// Load reads and validates the full configuration. At least one
// enabled server is required.
func Load() (Policy, []Server, error) {
	pol, err := LoadPolicy()
	if err != nil {
		return Policy{}, nil, err
	}
	servers, err := LoadServers()
	if err != nil {
		return Policy{}, nil, err
	}

	enabled := 0
	for _, s := range servers {
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return Policy{}, nil, &ConfigError{Field: "SERVER1_URL", Reason: "no enabled servers configured"}
	}
	return pol, servers, nil
}
