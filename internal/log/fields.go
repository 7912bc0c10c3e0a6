// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldServer    = "server"
	FieldSessionID = "session_id"
	FieldUser      = "user"
	FieldClient    = "client"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldAction    = "action"

	// Media / stream fields
	FieldCodec      = "codec"
	FieldResolution = "resolution"
	FieldReasons    = "reasons"
	FieldPlayMethod = "play_method"

	// Network fields
	FieldBaseURL = "base_url"
)
