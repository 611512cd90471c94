package engine

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/mediadl/internal/errs"
	"github.com/ytget/mediadl/internal/format"
	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/platform"
	"github.com/ytget/mediadl/internal/transcode"
)

const (
	fallbackSelector = "best"
	fallbackExt      = model.VideoContainerMP4
	audioStreamTag   = "audio."
	playlistTitleFmt = "Playlist %s"
)

// Native downloads YouTube streams in-process and post-processes them with ffmpeg
type Native struct {
	lib        library
	transcoder transcode.Transcoder
	backoff    time.Duration
	log        *logger.ComponentLogger

	mu        sync.Mutex
	probed    map[string]*ytdlp.VideoInfo
	playlists map[string][]model.PlaylistEntry // by list ID
}

// NewNative creates the native engine
func NewNative(transcoder transcode.Transcoder) *Native {
	return &Native{
		lib:        ytdlpLibrary{},
		transcoder: transcoder,
		backoff:    initialBackoff,
		log:        logger.WithComponent(logger.ComponentEngine).With(logger.Fields{"engine": "native"}),
		probed:     make(map[string]*ytdlp.VideoInfo),
		playlists:  make(map[string][]model.PlaylistEntry),
	}
}

// Name identifies the engine in logs and history
func (n *Native) Name() string { return "native" }

// Probe resolves metadata for a video, or lists a playlist when expansion is on
func (n *Native) Probe(ctx context.Context, url string, opts model.FetchOptions) (*model.MediaMetadata, error) {
	if !platform.IsYouTubeURL(url) {
		return nil, errs.NewValidationError("url", url, "the native engine supports YouTube only")
	}
	client, err := n.client(opts)
	if err != nil {
		return nil, err
	}

	if listID := platform.ExtractPlaylistID(url); opts.Playlist && listID != "" {
		entries, err := n.playlistEntries(ctx, client, listID, opts)
		if err != nil {
			return nil, err
		}
		return &model.MediaMetadata{
			ID:              listID,
			Title:           fmt.Sprintf(playlistTitleFmt, listID),
			DurationSeconds: -1,
			ViewCount:       -1,
			Entries:         entries,
		}, nil
	}

	info, err := n.videoInfo(ctx, client, url, opts)
	if err != nil {
		return nil, err
	}
	return metadataFromLibrary(info), nil
}

// Fetch downloads the selected streams and applies the post-processing directive
func (n *Native) Fetch(ctx context.Context, url string, spec model.FormatSpec, opts model.FetchOptions, onEvent func(model.RawEvent)) error {
	client, err := n.client(opts)
	if err != nil {
		return err
	}
	if opts.WantsSubtitles() {
		n.log.Warn("subtitles are not supported by the native engine", logger.Fields{"url": url})
	}

	listID := platform.ExtractPlaylistID(url)
	if !opts.Playlist || listID == "" {
		return n.fetchOne(ctx, client, url, spec, opts, onEvent)
	}

	entries, err := n.playlistEntries(ctx, client, listID, opts)
	if err != nil {
		return err
	}
	for _, e := range entries {
		n.log.Info("playlist item", logger.Fields{"index": e.Index, "total": len(entries), "title": e.Title})
		if err := n.fetchOne(ctx, client, e.URL, spec, opts, onEvent); err != nil {
			return fmt.Errorf("playlist item %d (%s): %w", e.Index, e.ID, err)
		}
	}
	return nil
}

func (n *Native) fetchOne(ctx context.Context, client *http.Client, url string, spec model.FormatSpec, opts model.FetchOptions, onEvent func(model.RawEvent)) error {
	info, err := n.videoInfo(ctx, client, url, opts)
	if err != nil {
		return err
	}

	tmpl := opts.OutputTemplate
	if tmpl == "" {
		tmpl = OutputTemplate(opts.DestinationDir)
	}
	final := RenderTemplate(tmpl, info.Title, info.ID, spec.PostProcess.OutputExt())
	if !opts.Overwrite {
		if _, err := os.Stat(final); err == nil {
			n.log.Info("already downloaded", logger.Fields{"file": final})
			return nil
		}
	}
	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(final)); err != nil {
		return errs.NewFilesystemError(errs.OpCreateDir, filepath.Dir(final), err)
	}

	res := format.Resolve(descriptorsFromLibrary(info.Formats), spec.Candidates)

	primary := streamRequest{URL: url, Selector: fallbackSelector, Ext: fallbackExt, RateLimitBps: opts.RateLimitBps}
	primaryExt := fallbackExt
	if res != nil {
		primary.Selector, primary.Ext = itagSelector(res.Primary), ""
		primaryExt = res.Primary.Container
	}
	primary.OutputPath = RenderTemplate(tmpl, info.Title, info.ID, primaryExt)
	primary.OnProgress = progressForwarder(onEvent, primary.OutputPath)

	if err := n.download(ctx, client, primary, opts); err != nil {
		return err
	}

	var audioPath string
	if res != nil && res.Audio != nil {
		audio := streamRequest{
			URL:          url,
			Selector:     itagSelector(*res.Audio),
			OutputPath:   RenderTemplate(tmpl, info.Title, info.ID, audioStreamTag+res.Audio.Container),
			RateLimitBps: opts.RateLimitBps,
		}
		audio.OnProgress = progressForwarder(onEvent, audio.OutputPath)
		if err := n.download(ctx, client, audio, opts); err != nil {
			return err
		}
		audioPath = audio.OutputPath
	}

	job := transcode.NewJob(primary.OutputPath, audioPath, spec.PostProcess)
	job.OutputPath = final
	out, err := n.transcoder.Apply(ctx, job, nil)
	if err != nil {
		return err
	}
	n.log.Info("saved", logger.Fields{"file": out})
	return nil
}

func (n *Native) download(ctx context.Context, client *http.Client, req streamRequest, opts model.FetchOptions) error {
	r := retrier{retries: opts.Retries, backoff: n.backoff, log: n.log}
	return r.do(ctx, "download "+req.Selector, func(ctx context.Context) error {
		return n.lib.Download(ctx, client, req)
	})
}

// videoInfo returns cached probe results or resolves the URL with retries
func (n *Native) videoInfo(ctx context.Context, client *http.Client, url string, opts model.FetchOptions) (*ytdlp.VideoInfo, error) {
	n.mu.Lock()
	info, ok := n.probed[url]
	n.mu.Unlock()
	if ok {
		return info, nil
	}

	r := retrier{retries: opts.Retries, backoff: n.backoff, log: n.log}
	err := r.do(ctx, "resolve", func(ctx context.Context) error {
		var err error
		info, err = n.lib.Resolve(ctx, client, url)
		return err
	})
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.probed[url] = info
	n.mu.Unlock()
	return info, nil
}

// playlistEntries returns cached entries or lists the playlist with retries
func (n *Native) playlistEntries(ctx context.Context, client *http.Client, listID string, opts model.FetchOptions) ([]model.PlaylistEntry, error) {
	n.mu.Lock()
	entries, ok := n.playlists[listID]
	n.mu.Unlock()
	if ok {
		return entries, nil
	}

	r := retrier{retries: opts.Retries, backoff: n.backoff, log: n.log}
	err := r.do(ctx, "playlist", func(ctx context.Context) error {
		items, err := n.lib.PlaylistItems(ctx, client, listID)
		if err != nil {
			return err
		}
		entries = entries[:0]
		for i, it := range items {
			index := it.Index
			if index <= 0 {
				index = i + 1
			}
			entries = append(entries, model.PlaylistEntry{
				ID:    it.VideoID,
				Title: it.Title,
				URL:   platform.VideoURL(it.VideoID),
				Index: index,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.playlists[listID] = entries
	n.mu.Unlock()
	return entries, nil
}

func (n *Native) client(opts model.FetchOptions) (*http.Client, error) {
	client, err := NewHTTPClient(opts)
	if err != nil {
		return nil, errs.NewValidationError("credential bundle", opts.CredentialBundlePath, err.Error())
	}
	return client, nil
}

// progressForwarder adapts library progress to raw engine events for one stream file
func progressForwarder(onEvent func(model.RawEvent), filename string) func(ytdlp.Progress) {
	if onEvent == nil {
		return nil
	}
	return func(p ytdlp.Progress) {
		onEvent(model.RawEvent{
			Status:          model.RawDownloading,
			DownloadedBytes: p.DownloadedSize,
			TotalBytes:      p.TotalSize,
			Filename:        filename,
		})
	}
}

func metadataFromLibrary(info *ytdlp.VideoInfo) *model.MediaMetadata {
	meta := &model.MediaMetadata{
		ID:              info.ID,
		Title:           info.Title,
		Uploader:        info.Author,
		DurationSeconds: -1,
		ViewCount:       -1,
		Formats:         descriptorsFromLibrary(info.Formats),
	}
	if info.Duration > 0 {
		meta.DurationSeconds = info.Duration
	}
	return meta
}
