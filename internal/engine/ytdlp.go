package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/platform"
)

const (
	// stderrTailLines bounds how much of yt-dlp's stderr is kept for errors
	stderrTailLines = 40

	maxLineBytes = 1 << 20
)

// YtDlp drives the yt-dlp executable
type YtDlp struct {
	path       string
	ffmpegPath string
	log        *logger.ComponentLogger
}

// NewYtDlp creates an engine. Empty paths fall back to PATH lookup;
// ffmpegPath is forwarded to yt-dlp only when set explicitly.
func NewYtDlp(path, ffmpegPath string) *YtDlp {
	if ffmpegPath == platform.ToolFFmpeg {
		ffmpegPath = ""
	}
	return &YtDlp{
		path:       path,
		ffmpegPath: ffmpegPath,
		log:        logger.WithComponent(logger.ComponentEngine).With(logger.Fields{"engine": "yt-dlp"}),
	}
}

// Name identifies the engine in logs and history
func (y *YtDlp) Name() string { return "yt-dlp" }

// Probe fetches metadata without downloading media
func (y *YtDlp) Probe(ctx context.Context, url string, opts model.FetchOptions) (*model.MediaMetadata, error) {
	bin, err := platform.LookupTool(y.path, platform.ToolYtDlp)
	if err != nil {
		return nil, err
	}

	args := BuildProbeArgs(url, opts)
	y.log.Debug("probe", logger.Fields{"url": url, "args": strings.Join(args, " ")})

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp probe: %w", ctxErr)
		}
		return nil, fmt.Errorf("yt-dlp probe: %s: %w", lastErrorLine(strings.Split(stderr.String(), "\n")), err)
	}

	meta, err := ParseProbeJSON(output)
	if err != nil {
		return nil, err
	}
	y.log.Info("probe finished", logger.Fields{"title": meta.DisplayTitle(), "formats": len(meta.Formats), "entries": len(meta.Entries)})
	return meta, nil
}

// Fetch downloads and post-processes according to spec
func (y *YtDlp) Fetch(ctx context.Context, url string, spec model.FormatSpec, opts model.FetchOptions, onEvent func(model.RawEvent)) error {
	bin, err := platform.LookupTool(y.path, platform.ToolYtDlp)
	if err != nil {
		return err
	}

	args := BuildFetchArgs(url, spec, opts, y.ffmpegPath)
	y.log.Debug("fetch", logger.Fields{"url": url, "format": spec.Expression})

	cmd := exec.CommandContext(ctx, bin, args...)
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		tail     []string
		lastFile string
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		y.scanStdout(stdoutPipe, onEvent, func(path string) {
			mu.Lock()
			lastFile = path
			mu.Unlock()
		})
	}()

	go func() {
		defer wg.Done()
		err := scanLines(stderrPipe, func(line string) {
			mu.Lock()
			tail = append(tail, line)
			if len(tail) > stderrTailLines {
				tail = tail[1:]
			}
			mu.Unlock()
		})
		if err != nil {
			y.log.Warn("stderr scan stopped", logger.Fields{"error": err.Error()})
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()

	mu.Lock()
	defer mu.Unlock()
	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("yt-dlp fetch: %w", ctxErr)
		}
		return fmt.Errorf("yt-dlp fetch: %s: %w", lastErrorLine(tail), waitErr)
	}
	y.log.Info("fetch finished", logger.Fields{"file": lastFile})
	return nil
}

// scanStdout forwards in-flight progress and reports file names as they appear
func (y *YtDlp) scanStdout(r io.Reader, onEvent func(model.RawEvent), onFile func(string)) {
	err := scanLines(r, func(line string) {
		if ev, ok := ParseProgressLine(line); ok {
			if ev.Status == model.RawDownloading && onEvent != nil {
				onEvent(ev)
			}
			return
		}
		if path := ExtractFilePath(line); path != "" {
			onFile(path)
			y.log.Trace("file", logger.Fields{"path": path})
		}
	})
	if err != nil {
		y.log.Warn("stdout scan stopped", logger.Fields{"error": err.Error()})
	}
}

// scanLines calls fn for every line of r. A line over maxLineBytes stops the
// scan; r is then drained so the child process never blocks on a full pipe.
func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	err := scanner.Err()
	io.Copy(io.Discard, r)
	return err
}
