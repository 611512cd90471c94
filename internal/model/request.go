package model

import (
	"fmt"
	"strings"
)

// Mode selects whether the request produces a video file or an audio track
type Mode string

const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a mode label (case-insensitive)
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "video":
		return ModeVideo, nil
	case "audio", "mp3":
		return ModeAudio, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}

// Quality is the requested upper bound for the video stream height
type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
	Quality360p  Quality = "360p"
	Quality240p  Quality = "240p"
)

// Qualities lists every supported quality in presentation order
var Qualities = []Quality{QualityBest, Quality1080p, Quality720p, Quality480p, Quality360p, Quality240p}

var qualityHeights = map[Quality]int{
	QualityBest:  0,
	Quality1080p: 1080,
	Quality720p:  720,
	Quality480p:  480,
	Quality360p:  360,
	Quality240p:  240,
}

// String returns the string representation of Quality
func (q Quality) String() string {
	return string(q)
}

// Height returns the height cap in pixels, 0 for QualityBest
func (q Quality) Height() int {
	return qualityHeights[q]
}

// IsValid reports whether q is one of the supported qualities
func (q Quality) IsValid() bool {
	_, ok := qualityHeights[q]
	return ok
}

// ParseQuality accepts labels like "best", "720p" or "720"
func ParseQuality(s string) (Quality, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	if label == "" {
		return QualityBest, nil
	}
	if !strings.HasSuffix(label, "p") && label != string(QualityBest) {
		label += "p"
	}
	q := Quality(label)
	if !q.IsValid() {
		return "", fmt.Errorf("unknown quality: %q", s)
	}
	return q, nil
}

// DownloadRequest describes one user action. Build it with NewDownloadRequest
// so the audio/quality invariant holds.
type DownloadRequest struct {
	ID                   string
	URL                  string
	Mode                 Mode
	Quality              Quality
	IncludePlaylist      bool
	IncludeSubtitles     bool
	CredentialBundlePath string // optional cookies file, passed through untouched
	DestinationDir       string
}

// NewDownloadRequest returns a normalized request. Quality is forced to best
// for audio requests since only the codec matters there.
func NewDownloadRequest(url string, mode Mode, quality Quality, destinationDir string) DownloadRequest {
	req := DownloadRequest{
		URL:            strings.TrimSpace(url),
		Mode:           mode,
		Quality:        quality,
		DestinationDir: destinationDir,
	}
	return req.Normalized()
}

// WithPlaylist returns a copy with playlist expansion set
func (r DownloadRequest) WithPlaylist(include bool) DownloadRequest {
	r.IncludePlaylist = include
	return r
}

// WithSubtitles returns a copy with subtitle capture set
func (r DownloadRequest) WithSubtitles(include bool) DownloadRequest {
	r.IncludeSubtitles = include
	return r
}

// WithCredentialBundle returns a copy using the given cookies file
func (r DownloadRequest) WithCredentialBundle(path string) DownloadRequest {
	r.CredentialBundlePath = strings.TrimSpace(path)
	return r
}

// WithID returns a copy carrying the given correlation ID
func (r DownloadRequest) WithID(id string) DownloadRequest {
	r.ID = id
	return r
}

// Normalized applies defaults and the audio invariant
func (r DownloadRequest) Normalized() DownloadRequest {
	if r.Mode == "" {
		r.Mode = ModeVideo
	}
	if r.Quality == "" || r.Mode == ModeAudio {
		r.Quality = QualityBest
	}
	return r
}

// IsAudio reports whether the request extracts audio only
func (r DownloadRequest) IsAudio() bool {
	return r.Mode == ModeAudio
}

// HasCredentialBundle reports whether a cookies file was supplied
func (r DownloadRequest) HasCredentialBundle() bool {
	return r.CredentialBundlePath != ""
}
