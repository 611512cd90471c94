package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// SupportedDomains lists the hosts accepted for download. Subdomains match.
var SupportedDomains = []string{"youtube.com", "youtu.be", "vimeo.com", "dailymotion.com"}

// URL parameters
const (
	PlaylistParam = "list"
	VideoParam    = "v"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// IsSupportedURL reports whether rawURL is an http(s) URL on a supported host
func IsSupportedURL(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	for _, domain := range SupportedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// IsYouTubeURL reports whether rawURL points at YouTube
func IsYouTubeURL(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

// ExtractPlaylistID returns the list= parameter of a URL, or "" if absent
func ExtractPlaylistID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Query().Get(PlaylistParam)
}

// VideoURL builds a watch URL from a YouTube video ID
func VideoURL(videoID string) string {
	return fmt.Sprintf(YouTubeVideoURLTemplate, videoID)
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("missing host")
	}
	return host, nil
}
