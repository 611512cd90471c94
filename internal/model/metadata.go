package model

import (
	"fmt"
	"strings"
)

// FormatDescriptor is one stream offered by the source platform
type FormatDescriptor struct {
	ID        string
	Container string // file extension reported by the engine: mp4, m4a, webm, mp3
	Height    int    // 0 for audio-only or unknown
	HasVideo  bool
	HasAudio  bool
	Bitrate   float64 // total bitrate in kbps, 0 if unknown
	Size      int64   // bytes, 0 if unknown
}

// IsVideoOnly reports whether the stream carries video without audio
func (f FormatDescriptor) IsVideoOnly() bool {
	return f.HasVideo && !f.HasAudio
}

// IsAudioOnly reports whether the stream carries audio without video
func (f FormatDescriptor) IsAudioOnly() bool {
	return f.HasAudio && !f.HasVideo
}

// IsCombined reports whether the stream is pre-muxed audio+video
func (f FormatDescriptor) IsCombined() bool {
	return f.HasAudio && f.HasVideo
}

// PlaylistEntry is a single item of an expanded playlist
type PlaylistEntry struct {
	ID    string
	Title string
	URL   string
	Index int
}

// MediaMetadata is what the engine reports before any bytes are fetched
type MediaMetadata struct {
	ID              string
	Title           string
	Uploader        string
	DurationSeconds int   // -1 if unknown
	ViewCount       int64 // -1 if unknown
	ThumbnailURL    string
	Formats         []FormatDescriptor
	Entries         []PlaylistEntry // populated for playlists when expansion is on
}

// HasDuration reports whether the duration is known
func (m MediaMetadata) HasDuration() bool {
	return m.DurationSeconds >= 0
}

// HasViewCount reports whether the view count is known
func (m MediaMetadata) HasViewCount() bool {
	return m.ViewCount >= 0
}

// IsPlaylist reports whether the probe expanded a playlist
func (m MediaMetadata) IsPlaylist() bool {
	return len(m.Entries) > 0
}

// DurationString returns the duration as m:ss or h:mm:ss, or "—" if unknown
func (m MediaMetadata) DurationString() string {
	if m.DurationSeconds < 0 {
		return "—"
	}

	hours := m.DurationSeconds / 3600
	minutes := (m.DurationSeconds % 3600) / 60
	seconds := m.DurationSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// DisplayTitle returns the title, falling back to the ID and then "Unknown"
func (m MediaMetadata) DisplayTitle() string {
	if t := strings.TrimSpace(m.Title); t != "" && !strings.HasPrefix(t, "http") {
		return t
	}
	if m.ID != "" {
		return m.ID
	}
	return "Unknown"
}

// DisplayUploader returns the uploader or "Unknown"
func (m MediaMetadata) DisplayUploader() string {
	if u := strings.TrimSpace(m.Uploader); u != "" {
		return u
	}
	return "Unknown"
}
