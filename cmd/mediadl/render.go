package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/ytget/mediadl/internal/config"
	"github.com/ytget/mediadl/internal/history"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/progress"
)

const (
	renderInterval = 200 * time.Millisecond
	barWidth       = 30

	playlistWarning = "Warning: You are about to download an entire playlist. " +
		"This may take a very long time and use significant storage space."
)

// renderer draws mailbox events, at most one line per renderInterval
type renderer struct {
	w       io.Writer
	label   string
	inline  bool
	limiter *rate.Limiter
	lastLen int
}

func newRenderer(w io.Writer, label string, inline bool) *renderer {
	return &renderer{
		w:       w,
		label:   label,
		inline:  inline,
		limiter: rate.NewLimiter(rate.Every(renderInterval), 1),
	}
}

// follow renders until the terminal event arrives
func (r *renderer) follow(m *progress.Mailbox) {
	for range m.Notify() {
		ev, ok := m.Latest()
		if !ok {
			continue
		}
		if ev.Phase.IsTerminal() {
			r.draw(ev)
			if r.inline {
				fmt.Fprintln(r.w)
			}
			return
		}
		if r.limiter.Allow() {
			r.draw(ev)
		}
	}
}

func (r *renderer) draw(ev model.ProgressEvent) {
	line := formatProgress(ev)
	if r.label != "" {
		line = "[" + r.label + "] " + line
	}
	if !r.inline {
		fmt.Fprintln(r.w, line)
		return
	}
	pad := ""
	if n := r.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	r.lastLen = len(line)
	fmt.Fprintf(r.w, "\r%s%s", line, pad)
}

// formatProgress renders one event. Estimated totals get a "~" prefix.
// From the second stream on, the line shows that stream's own progress.
func formatProgress(ev model.ProgressEvent) string {
	switch ev.Phase {
	case model.PhaseFinished:
		return progressBar(1) + " 100.0% done"
	case model.PhaseFailed:
		return "failed"
	}

	if ev.Stream > 0 {
		return fmt.Sprintf("part %d ", ev.Stream+1) +
			formatTransfer(ev.StreamBytesDone, ev.StreamBytesTotal, ev.Estimated, ev.StreamFraction, ev.HasStreamFraction)
	}
	return formatTransfer(ev.BytesDone, ev.BytesTotal, ev.Estimated, ev.Fraction, ev.HasFraction)
}

func formatTransfer(doneBytes, totalBytes int64, estimated bool, fraction float64, hasFraction bool) string {
	done := humanize.Bytes(uint64(doneBytes))
	if totalBytes <= 0 {
		if hasFraction {
			return fmt.Sprintf("%s %5.1f%% %s", progressBar(fraction), fraction*100, done)
		}
		return done + " downloaded"
	}

	total := humanize.Bytes(uint64(totalBytes))
	if estimated {
		total = "~" + total
	}
	return fmt.Sprintf("%s %5.1f%% %s of %s", progressBar(fraction), fraction*100, done, total)
}

func progressBar(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * barWidth)
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// printSettings echoes the request before it starts
func printSettings(w io.Writer, req model.DownloadRequest, engine config.EngineKind) {
	fmt.Fprintln(w, "Download Settings:")
	fmt.Fprintf(w, "- URL: %s\n", req.URL)
	fmt.Fprintf(w, "- Output Folder: %s\n", req.DestinationDir)
	fmt.Fprintf(w, "- Audio Only: %s\n", yesNo(req.IsAudio()))
	fmt.Fprintf(w, "- Download Playlist: %s\n", yesNo(req.IncludePlaylist))
	fmt.Fprintf(w, "- Download Subtitles: %s\n", yesNo(req.IncludeSubtitles))
	if !req.IsAudio() {
		fmt.Fprintf(w, "- Quality: %s\n", req.Quality)
	}
	if req.HasCredentialBundle() {
		fmt.Fprintln(w, "- Cookies: Using supplied file")
	}
	fmt.Fprintf(w, "- Engine: %s\n", engine)
	if req.IncludePlaylist {
		fmt.Fprintln(w, playlistWarning)
	}
	fmt.Fprintln(w)
}

// printOutcome writes successes to stdout and failures to stderr
func printOutcome(stdout, stderr io.Writer, o model.Outcome) {
	if !o.IsSuccess() {
		fmt.Fprintf(stderr, "Error [%s]: %s\n", o.Category, o.Message)
		return
	}

	fmt.Fprintln(stdout, o.Message)
	if m := o.Metadata; m != nil {
		fmt.Fprintf(stdout, "Title: %s\n", m.DisplayTitle())
		if m.DurationSeconds > 0 {
			fmt.Fprintf(stdout, "Duration: %s\n", m.DurationString())
		}
		fmt.Fprintf(stdout, "Uploader: %s\n", m.DisplayUploader())
		if m.ViewCount > 0 {
			fmt.Fprintf(stdout, "View Count: %s\n", humanize.Comma(m.ViewCount))
		}
		if m.ThumbnailURL != "" {
			fmt.Fprintf(stdout, "Thumbnail: %s\n", m.ThumbnailURL)
		}
		if m.IsPlaylist() {
			fmt.Fprintf(stdout, "Playlist Items: %d\n", len(m.Entries))
		}
	}
	fmt.Fprintf(stdout, "Download Location: %s\n", o.DestinationDir)
	fmt.Fprintf(stdout, "Elapsed: %s\n", o.Elapsed().Round(time.Second))
}

// printHistory renders entries as an aligned table
func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No downloads recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tSTATUS\tCATEGORY\tMODE\tTITLE\tURL")
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "-"
		}
		category := "-"
		if e.Category != model.CategoryNone {
			category = e.Category.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(e.FinishedAt), e.Status, category, e.Mode, title, e.URL)
	}
	tw.Flush()
}
