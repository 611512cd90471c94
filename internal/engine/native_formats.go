package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/mediadl/internal/model"
)

var heightRe = regexp.MustCompile(`([0-9]{3,4})p`)

// audioCodecs are the codec prefixes that mark audio inside a video mime type
var audioCodecs = []string{"mp4a", "opus", "vorbis", "ac-3", "ec-3"}

// getSubtype returns the mime subtype, e.g. "mp4" for `video/mp4; codecs="..."`
func getSubtype(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	parts := strings.Split(mime, "/")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}

func parseHeight(label string) int {
	m := heightRe.FindStringSubmatch(label)
	if len(m) >= 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

// descriptorFromLibrary maps a library format to a FormatDescriptor.
// audio/mp4 is reported as m4a, matching yt-dlp's naming.
func descriptorFromLibrary(f ytdlp.Format) model.FormatDescriptor {
	mime := strings.ToLower(f.MimeType)
	subtype := getSubtype(mime)

	d := model.FormatDescriptor{
		ID:        strconv.Itoa(f.Itag),
		Container: subtype,
		Height:    parseHeight(f.Quality),
		Bitrate:   float64(f.Bitrate) / 1000,
		Size:      f.Size,
	}

	switch {
	case strings.HasPrefix(mime, "audio/"):
		d.HasAudio = true
		if subtype == "mp4" {
			d.Container = model.AudioContainerM4A
		}
	case strings.HasPrefix(mime, "video/"):
		d.HasVideo = true
		for _, codec := range audioCodecs {
			if strings.Contains(mime, codec) {
				d.HasAudio = true
				break
			}
		}
	}
	return d
}

func descriptorsFromLibrary(formats []ytdlp.Format) []model.FormatDescriptor {
	out := make([]model.FormatDescriptor, 0, len(formats))
	for _, f := range formats {
		out = append(out, descriptorFromLibrary(f))
	}
	return out
}

// itagSelector is the library's selector for one exact stream
func itagSelector(d model.FormatDescriptor) string {
	return "itag=" + d.ID
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)

const maxFilenameLength = 200

// SafeFilename turns a title into a portable file name stem
func SafeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, "_")
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, ". ")
	if runes := []rune(name); len(runes) > maxFilenameLength {
		name = strings.TrimSpace(string(runes[:maxFilenameLength]))
	}
	if name == "" {
		name = "video"
	}
	return name
}

// RenderTemplate expands the %(title)s, %(id)s and %(ext)s fields of an
// output template
func RenderTemplate(tmpl, title, id, ext string) string {
	r := strings.NewReplacer(
		"%(title)s", SafeFilename(title),
		"%(id)s", id,
		"%(ext)s", ext,
	)
	return r.Replace(tmpl)
}
