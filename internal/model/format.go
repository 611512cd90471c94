package model

import (
	"fmt"
	"strings"
)

// StreamKind is the stream class a filter picks from
type StreamKind string

const (
	// StreamVideo picks video-only streams (yt-dlp "bestvideo")
	StreamVideo StreamKind = "bestvideo"
	// StreamAudio picks audio-only streams (yt-dlp "bestaudio")
	StreamAudio StreamKind = "bestaudio"
	// StreamCombined picks pre-muxed streams (yt-dlp "best")
	StreamCombined StreamKind = "best"
)

// StreamFilter selects the best stream of a kind under optional constraints
type StreamFilter struct {
	Kind      StreamKind
	MaxHeight int    // 0 means unconstrained
	Container string // empty means any container
}

// IsConstrained reports whether the filter narrows its kind
func (f StreamFilter) IsConstrained() bool {
	return f.MaxHeight > 0 || f.Container != ""
}

// String renders the filter in yt-dlp selector syntax
func (f StreamFilter) String() string {
	var b strings.Builder
	b.WriteString(string(f.Kind))
	if f.MaxHeight > 0 {
		b.WriteString(fmt.Sprintf("[height<=%d]", f.MaxHeight))
	}
	if f.Container != "" {
		b.WriteString("[ext=" + f.Container + "]")
	}
	return b.String()
}

// Candidate is one alternative of the fallback chain: either a single
// stream or a video stream merged with an audio stream
type Candidate struct {
	Primary StreamFilter
	Audio   *StreamFilter
}

// IsMerge reports whether the candidate needs two streams muxed together
func (c Candidate) IsMerge() bool {
	return c.Audio != nil
}

// String renders the candidate; constrained merge pairs are parenthesized
func (c Candidate) String() string {
	if c.Audio == nil {
		return c.Primary.String()
	}
	pair := c.Primary.String() + "+" + c.Audio.String()
	if c.Primary.IsConstrained() || c.Audio.IsConstrained() {
		return "(" + pair + ")"
	}
	return pair
}

// Resolution records which candidate the probed formats satisfy first
type Resolution struct {
	Index   int
	Primary FormatDescriptor
	Audio   *FormatDescriptor
}

// PostProcessKind names the post-processing step applied after fetching
type PostProcessKind string

const (
	PostExtractAudio PostProcessKind = "extract-audio"
	PostConvertVideo PostProcessKind = "convert-video"
)

// Post-processing targets
const (
	AudioCodecMP3     = "mp3"
	AudioBitrateKbps  = 320
	VideoContainerMP4 = "mp4"
	AudioContainerM4A = "m4a"
	AudioContainerMP3 = "mp3"
)

// PostProcess is the directive handed to the transcode step
type PostProcess struct {
	Kind        PostProcessKind
	Codec       string // audio codec for PostExtractAudio
	BitrateKbps int    // audio bitrate for PostExtractAudio
	Container   string // target container for PostConvertVideo
}

// ExtractAudioMP3 returns the fixed audio directive: mp3 at 320 kbps
func ExtractAudioMP3() PostProcess {
	return PostProcess{Kind: PostExtractAudio, Codec: AudioCodecMP3, BitrateKbps: AudioBitrateKbps}
}

// ConvertToMP4 returns the fixed video directive
func ConvertToMP4() PostProcess {
	return PostProcess{Kind: PostConvertVideo, Container: VideoContainerMP4}
}

// OutputExt returns the extension of the file produced by the directive
func (p PostProcess) OutputExt() string {
	if p.Kind == PostExtractAudio {
		return p.Codec
	}
	return p.Container
}

// String returns a human readable description of the directive
func (p PostProcess) String() string {
	switch p.Kind {
	case PostExtractAudio:
		return fmt.Sprintf("extract audio to %s@%dkbps", p.Codec, p.BitrateKbps)
	case PostConvertVideo:
		return "convert to " + p.Container
	default:
		return "none"
	}
}

// FormatSpec is the concrete plan derived from a request and its metadata
type FormatSpec struct {
	Expression  string
	Candidates  []Candidate
	Resolved    *Resolution // nil when metadata listed no matching formats
	PostProcess PostProcess
}

// IsEmpty reports whether the spec has no usable selection
func (s FormatSpec) IsEmpty() bool {
	return strings.TrimSpace(s.Expression) == "" || len(s.Candidates) == 0
}

// ResolvedCandidate returns the candidate chosen against metadata, if any
func (s FormatSpec) ResolvedCandidate() (Candidate, bool) {
	if s.Resolved == nil || s.Resolved.Index < 0 || s.Resolved.Index >= len(s.Candidates) {
		return Candidate{}, false
	}
	return s.Candidates[s.Resolved.Index], true
}
