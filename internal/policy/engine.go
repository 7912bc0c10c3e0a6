// SPDX-License-Identifier: MIT

// Package policy implements the session evaluation core: the resolution
// threshold, the transcode-reason classifier and the verdict builder.
// Everything in this package is pure and stateless; evaluating the same
// snapshot against the same rules always yields the same verdict.
package policy

import (
	"fmt"
	"strings"
)

// Resolution is the configured enforcement threshold.
type Resolution string

const (
	ResolutionAll   Resolution = "all"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4k"
)

// Reason codes that indicate container repackaging rather than a real
// video transcode. Stripped from the session's reason set when the
// container exemption is active.
const (
	ReasonContainerNotSupported        = "ContainerNotSupported"
	ReasonContainerBitrateExceedsLimit = "ContainerBitrateExceedsLimit"
)

// Action is the outcome of evaluating one session.
type Action string

const (
	ActionNone      Action = "none"
	ActionTerminate Action = "terminate"
)

// Evaluation paths a terminate verdict can fire on.
const (
	PathVideo = "video"
	PathAudio = "audio"
)

// Snapshot is a point-in-time view of one active playback session as
// reported by a media server. It is created fresh each poll cycle and
// never shared across cycles.
type Snapshot struct {
	ID               string
	User             string
	Client           string
	Width            int
	Height           int
	Codec            string
	TargetWidth      int
	TargetHeight     int
	Reasons          []string
	VideoTranscoding bool
	AudioTranscoding bool
}

// Rules is the read-only evaluation policy shared by all server loops.
type Rules struct {
	Resolution      Resolution
	VideoIndicators map[string]struct{}
	AudioIndicators map[string]struct{}
	CheckAudio      bool
	ContainerExempt bool

	// AssumeWorst treats a video-transcoding session at or above the
	// threshold that reports no transcode reasons as a violation. Some
	// server versions omit TranscodingInfo reasons entirely.
	AssumeWorst bool
}

// Verdict is the outcome of evaluating one snapshot. Paths names the
// evaluation paths that fired (PathVideo, PathAudio), in that order.
type Verdict struct {
	Action    Action
	SessionID string
	Reason    string
	Matched   []string
	Paths     []string
}

// ParseResolution maps a configured policy name to a Resolution.
// Unknown names are a configuration error and must be rejected before
// any evaluation happens.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "any":
		return ResolutionAll, nil
	case "1080p", "1080":
		return Resolution1080p, nil
	case "4k", "2160p", "uhd":
		return Resolution4K, nil
	default:
		return "", fmt.Errorf("unknown resolution policy %q (want 4k, 1080p or all)", s)
	}
}

// MeetsThreshold reports whether the given source resolution is at or
// above the enforcement threshold. Zero or missing dimensions fail
// closed, except under ResolutionAll where resolution is irrelevant.
func MeetsThreshold(res Resolution, width, height int) bool {
	switch res {
	case ResolutionAll:
		return true
	case Resolution1080p:
		return width >= 1920 || height >= 1080
	case Resolution4K:
		return width >= 3840 || height >= 2160
	default:
		return false
	}
}

// Classify intersects the session's reported reason codes with the
// configured indicator set and returns the matches in report order.
// When containerExempt is set, container-only reasons are removed from
// the session's set first so that live-TV repackaging never counts as
// a violation.
func Classify(reasons []string, indicators map[string]struct{}, containerExempt bool) []string {
	matched := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		if containerExempt && isContainerReason(reason) {
			continue
		}
		if _, ok := indicators[reason]; ok {
			matched = append(matched, reason)
		}
	}
	return matched
}

func isContainerReason(reason string) bool {
	return reason == ReasonContainerNotSupported || reason == ReasonContainerBitrateExceedsLimit
}

// Evaluate decides whether the session violates the policy. Any single
// matching indicator is sufficient; there is no weighting among
// reasons. The audio path ignores the container exemption because
// container repackaging never explains an audio transcode.
func Evaluate(snap Snapshot, rules Rules) Verdict {
	v := Verdict{Action: ActionNone, SessionID: snap.ID}

	var parts []string

	if snap.VideoTranscoding && MeetsThreshold(rules.Resolution, snap.Width, snap.Height) {
		matched := Classify(snap.Reasons, rules.VideoIndicators, rules.ContainerExempt)
		switch {
		case len(matched) > 0:
			v.Matched = append(v.Matched, matched...)
			v.Paths = append(v.Paths, PathVideo)
			parts = append(parts, fmt.Sprintf(
				"video transcode of %dx%d source (reasons: %s)",
				snap.Width, snap.Height, strings.Join(matched, ", ")))
		case len(snap.Reasons) == 0 && rules.AssumeWorst:
			v.Paths = append(v.Paths, PathVideo)
			parts = append(parts, fmt.Sprintf(
				"video transcode of %dx%d source (no transcode reasons reported, assuming video transcode)",
				snap.Width, snap.Height))
		}
	}

	if rules.CheckAudio && snap.AudioTranscoding {
		matched := Classify(snap.Reasons, rules.AudioIndicators, false)
		if len(matched) > 0 {
			v.Matched = append(v.Matched, matched...)
			v.Paths = append(v.Paths, PathAudio)
			parts = append(parts, fmt.Sprintf(
				"audio transcode (reasons: %s)", strings.Join(matched, ", ")))
		}
	}

	if len(parts) == 0 {
		return v
	}

	v.Action = ActionTerminate
	v.Reason = strings.Join(parts, "; ")
	return v
}
