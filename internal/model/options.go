package model

// Network resilience defaults
const (
	DefaultRetries         = 10
	DefaultFragmentRetries = 10
)

// Request header defaults sent to the source platform
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultReferer   = "https://www.google.com/"
)

// OutputTemplateSuffix is appended to the destination directory
const OutputTemplateSuffix = "%(title)s.%(ext)s"

// SubtitleLangEnglish is the only subtitle language requested
const SubtitleLangEnglish = "en"

// FetchOptions carries every engine setting for one request
type FetchOptions struct {
	Playlist                 bool
	SubtitleLangs            []string // empty means no subtitles
	CredentialBundlePath     string
	Retries                  int
	FragmentRetries          int
	SkipUnavailableFragments bool
	UserAgent                string
	Referer                  string
	NoCheckCertificate       bool
	GeoBypass                bool
	Overwrite                bool
	ContinuePartial          bool
	RateLimitBps             int64 // 0 disables limiting
	DestinationDir           string
	OutputTemplate           string
}

// WantsSubtitles reports whether any subtitle language was requested
func (o FetchOptions) WantsSubtitles() bool {
	return len(o.SubtitleLangs) > 0
}
