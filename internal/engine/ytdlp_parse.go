package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ytget/mediadl/internal/model"
)

// ytdlpInfo is the subset of yt-dlp's -J output we use
type ytdlpInfo struct {
	Type       string        `json:"_type"`
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Uploader   string        `json:"uploader"`
	Channel    string        `json:"channel"`
	Duration   *float64      `json:"duration"`
	ViewCount  *int64        `json:"view_count"`
	Thumbnail  string        `json:"thumbnail"`
	WebpageURL string        `json:"webpage_url"`
	Formats    []ytdlpFormat `json:"formats"`
	Entries    []ytdlpEntry  `json:"entries"`
}

type ytdlpFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Height         *int     `json:"height"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	TBR            *float64 `json:"tbr"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
}

type ytdlpEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

const codecNone = "none"

// ParseProbeJSON converts -J output into MediaMetadata
func ParseProbeJSON(data []byte) (*model.MediaMetadata, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}

	meta := &model.MediaMetadata{
		ID:              info.ID,
		Title:           info.Title,
		Uploader:        info.Uploader,
		DurationSeconds: -1,
		ViewCount:       -1,
		ThumbnailURL:    info.Thumbnail,
	}
	if meta.Uploader == "" {
		meta.Uploader = info.Channel
	}
	if info.Duration != nil && *info.Duration >= 0 {
		meta.DurationSeconds = int(math.Round(*info.Duration))
	}
	if info.ViewCount != nil && *info.ViewCount >= 0 {
		meta.ViewCount = *info.ViewCount
	}

	for _, f := range info.Formats {
		meta.Formats = append(meta.Formats, descriptorFromYtDlp(f))
	}
	for i, e := range info.Entries {
		meta.Entries = append(meta.Entries, model.PlaylistEntry{
			ID:    e.ID,
			Title: e.Title,
			URL:   e.URL,
			Index: i + 1,
		})
	}
	return meta, nil
}

func descriptorFromYtDlp(f ytdlpFormat) model.FormatDescriptor {
	d := model.FormatDescriptor{
		ID:        f.FormatID,
		Container: strings.ToLower(f.Ext),
		// A missing codec field means yt-dlp could not tell; assume present
		HasVideo: f.VCodec != codecNone,
		HasAudio: f.ACodec != codecNone,
	}
	if f.Height != nil {
		d.Height = *f.Height
	}
	if d.Height == 0 && f.VCodec == "" {
		d.HasVideo = false
	}
	if f.TBR != nil {
		d.Bitrate = *f.TBR
	}
	switch {
	case f.Filesize != nil:
		d.Size = *f.Filesize
	case f.FilesizeApprox != nil:
		d.Size = *f.FilesizeApprox
	}
	return d
}

// ParseProgressLine parses a line printed through ProgressTemplate
func ParseProgressLine(line string) (model.RawEvent, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ProgressPrefix) {
		return model.RawEvent{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, ProgressPrefix))
	if len(fields) != 4 {
		return model.RawEvent{}, false
	}

	ev := model.RawEvent{
		Status:             model.RawStatus(fields[0]),
		DownloadedBytes:    parseBytesField(fields[1]),
		TotalBytes:         parseBytesField(fields[2]),
		TotalBytesEstimate: parseBytesField(fields[3]),
	}
	switch ev.Status {
	case model.RawDownloading, model.RawFinished, model.RawError:
		return ev, true
	default:
		return model.RawEvent{}, false
	}
}

// parseBytesField reads an integer or float byte count; NA and garbage are 0
func parseBytesField(s string) int64 {
	if s == "" || s == "NA" || s == "None" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(v)
}

var (
	mergerRegex       = regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`)
	moveRegex         = regexp.MustCompile(`\[MoveFiles\] Moving file ".+" to "(.+)"`)
	destRegex         = regexp.MustCompile(`\[download\] Destination: (.+)`)
	alreadyRegex      = regexp.MustCompile(`\[download\] (.+) has already been downloaded`)
	extractAudioRegex = regexp.MustCompile(`\[ExtractAudio\] Destination: (.+)`)
	convertorRegex    = regexp.MustCompile(`\[VideoConvertor\] Converting video from \w+ to \w+; Destination: (.+)`)
)

// ExtractFilePath returns the file named by a yt-dlp status line, if any.
// Post-processor lines name the final file and so come first.
func ExtractFilePath(line string) string {
	for _, re := range []*regexp.Regexp{moveRegex, convertorRegex, extractAudioRegex, mergerRegex, destRegex, alreadyRegex} {
		if m := re.FindStringSubmatch(line); len(m) >= 2 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// errorPrefix starts yt-dlp's fatal messages on stderr
const errorPrefix = "ERROR:"

// lastErrorLine returns the last "ERROR:" line, or the last non-empty line
func lastErrorLine(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), errorPrefix) {
			return strings.TrimSpace(lines[i])
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
