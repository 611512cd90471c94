package format

import (
	"strings"

	"github.com/ytget/mediadl/internal/model"
)

// matchesKind reports whether a descriptor belongs to the filter's stream class
func matchesKind(f model.FormatDescriptor, kind model.StreamKind) bool {
	switch kind {
	case model.StreamVideo:
		return f.IsVideoOnly()
	case model.StreamAudio:
		return f.IsAudioOnly()
	case model.StreamCombined:
		return f.IsCombined()
	default:
		return false
	}
}

// withinHeight checks the height cap; 0 means no cap.
// A stream with unknown height passes a cap only if it has no video.
func withinHeight(f model.FormatDescriptor, maxHeight int) bool {
	if maxHeight <= 0 {
		return true
	}
	if f.Height <= 0 {
		return !f.HasVideo
	}
	return f.Height <= maxHeight
}

// containerEquals compares containers case-insensitively; empty want matches anything
func containerEquals(f model.FormatDescriptor, want string) bool {
	want = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(want)), ".")
	if want == "" {
		return true
	}
	return strings.ToLower(f.Container) == want
}

// matches applies every constraint of a filter
func matches(f model.FormatDescriptor, filter model.StreamFilter) bool {
	return matchesKind(f, filter.Kind) &&
		withinHeight(f, filter.MaxHeight) &&
		containerEquals(f, filter.Container)
}

// betterByHeightThenBitrate returns true when candidate beats current,
// height first and bitrate as the tiebreaker
func betterByHeightThenBitrate(candidate, current model.FormatDescriptor) bool {
	if candidate.Height != current.Height {
		return candidate.Height > current.Height
	}
	return candidate.Bitrate > current.Bitrate
}

// pickBest returns the best descriptor satisfying filter.
// Earlier descriptors win ties so engine order is respected.
func pickBest(formats []model.FormatDescriptor, filter model.StreamFilter) (model.FormatDescriptor, bool) {
	var best model.FormatDescriptor
	found := false
	for _, f := range formats {
		if !matches(f, filter) {
			continue
		}
		if !found || betterByHeightThenBitrate(f, best) {
			best = f
			found = true
		}
	}
	return best, found
}
