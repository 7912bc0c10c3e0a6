// SPDX-License-Identifier: MIT

package config

import "fmt"

// ConfigError describes a fatal configuration problem. It is raised
// before any patrol loop starts; the daemon must not come up with a
// partially valid configuration.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config: %s=%q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}
