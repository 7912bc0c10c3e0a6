// SPDX-License-Identifier: MIT

package policy

// DefaultVideoIndicators are the transcode reason codes that indicate
// the video component is being processed. Container reasons are
// included because container remux often forces video processing; the
// container exemption removes them again where that is not wanted.
func DefaultVideoIndicators() []string {
	return []string{
		"VideoCodecNotSupported",
		"VideoResolutionNotSupported",
		"VideoBitrateNotSupported",
		"VideoFramerateNotSupported",
		"VideoLevelNotSupported",
		"VideoProfileNotSupported",
		"AnamorphicVideoNotSupported",
		"VideoRangeNotSupported",
		"VideoRangeTypeNotSupported",
		ReasonContainerNotSupported,
		ReasonContainerBitrateExceedsLimit,
	}
}

// DefaultAudioIndicators are the reason codes that indicate an audio
// transcode.
func DefaultAudioIndicators() []string {
	return []string{
		"AudioCodecNotSupported",
		"AudioChannelsNotSupported",
		"AudioProfileNotSupported",
		"AudioSampleRateNotSupported",
		"AudioBitDepthNotSupported",
		"SecondaryAudioNotSupported",
	}
}

// IndicatorSet converts a list of reason codes into a lookup set.
func IndicatorSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	return set
}
