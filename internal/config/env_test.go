// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		envSet       bool
		want         string
	}{
		{
			name:         "environment variable set",
			key:          "TEST_STRING",
			defaultValue: "default",
			envValue:     "from-env",
			envSet:       true,
			want:         "from-env",
		},
		{
			name:         "environment variable not set",
			key:          "TEST_STRING_UNSET",
			defaultValue: "default",
			envSet:       false,
			want:         "default",
		},
		{
			name:         "environment variable empty string",
			key:          "TEST_STRING_EMPTY",
			defaultValue: "default",
			envValue:     "",
			envSet:       true,
			want:         "default",
		},
		{
			name:         "sensitive variable (api key)",
			key:          "TEST_API_KEY",
			defaultValue: "default",
			envValue:     "secret123",
			envSet:       true,
			want:         "secret123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}
			if got := ParseString(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("ParseString(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     int
	}{
		{"valid integer", "42", true, 42},
		{"invalid integer falls back", "not-a-number", true, 7},
		{"unset uses default", "", false, 7},
		{"empty uses default", "", true, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_INT", tt.envValue)
			}
			if got := ParseInt("TEST_INT", 7); got != tt.want {
				t.Errorf("ParseInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		envSet       bool
		defaultValue bool
		want         bool
	}{
		{"true", "true", true, false, true},
		{"numeric one", "1", true, false, true},
		{"yes", "yes", true, false, true},
		{"false", "false", true, true, false},
		{"numeric zero", "0", true, true, false},
		{"invalid falls back", "maybe", true, true, true},
		{"unset uses default", "", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_BOOL", tt.envValue)
			}
			if got := ParseBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("ParseBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     time.Duration
	}{
		{"go duration format", "45s", true, 45 * time.Second},
		{"bare seconds for compatibility", "30", true, 30 * time.Second},
		{"invalid falls back", "soon", true, 10 * time.Second},
		{"unset uses default", "", false, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_DURATION", tt.envValue)
			}
			if got := ParseDuration("TEST_DURATION", 10*time.Second); got != tt.want {
				t.Errorf("ParseDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStringList(t *testing.T) {
	def := []string{"a", "b"}

	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     []string
	}{
		{"comma separated", "x,y,z", true, []string{"x", "y", "z"}},
		{"whitespace trimmed", " x , y ", true, []string{"x", "y"}},
		{"empty entries dropped", "x,,y,", true, []string{"x", "y"}},
		{"only separators uses default", ",,", true, def},
		{"unset uses default", "", false, def},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_LIST", tt.envValue)
			}
			if got := ParseStringList("TEST_LIST", def); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseStringList() = %v, want %v", got, tt.want)
			}
		})
	}
}
