package engine

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ytget/ytdlp/v2"
	"github.com/ytget/ytdlp/v2/types"

	"github.com/ytget/mediadl/internal/errs"
	"github.com/ytget/mediadl/internal/format"
	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/transcode"
)

type fakeLibrary struct {
	mu            sync.Mutex
	info          map[string]*ytdlp.VideoInfo
	items         []types.PlaylistItem
	resolveCalls  int
	playlistCalls int
	downloads     []streamRequest
	failDownloads int
}

func (f *fakeLibrary) Resolve(ctx context.Context, client *http.Client, url string) (*ytdlp.VideoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	info, ok := f.info[url]
	if !ok {
		return nil, errors.New("no such video")
	}
	return info, nil
}

func (f *fakeLibrary) Download(ctx context.Context, client *http.Client, req streamRequest) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, req)
	if f.failDownloads > 0 {
		f.failDownloads--
		f.mu.Unlock()
		return errors.New("connection reset by peer")
	}
	f.mu.Unlock()

	if req.OnProgress != nil {
		req.OnProgress(ytdlp.Progress{TotalSize: 100, DownloadedSize: 50, Percent: 50})
		req.OnProgress(ytdlp.Progress{TotalSize: 100, DownloadedSize: 100, Percent: 100})
	}
	return nil
}

func (f *fakeLibrary) PlaylistItems(ctx context.Context, client *http.Client, playlistID string) ([]types.PlaylistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlistCalls++
	return f.items, nil
}

type fakeTranscoder struct {
	jobs []transcode.Job
	err  error
}

func (f *fakeTranscoder) Apply(ctx context.Context, job transcode.Job, onProgress func(float64)) (string, error) {
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return "", f.err
	}
	return job.OutputPath, nil
}

func newTestNative(lib library, tc transcode.Transcoder) *Native {
	return &Native{
		lib:        lib,
		transcoder: tc,
		backoff:    time.Millisecond,
		log:        logger.Discard(logger.ComponentEngine),
		probed:     make(map[string]*ytdlp.VideoInfo),
		playlists:  make(map[string][]model.PlaylistEntry),
	}
}

const testVideoURL = "https://www.youtube.com/watch?v=abc"

func testLibrary() *fakeLibrary {
	return &fakeLibrary{info: map[string]*ytdlp.VideoInfo{
		testVideoURL: {
			ID:       "abc",
			Title:    "My Clip",
			Author:   "Uploader",
			Duration: 125,
			Formats: []ytdlp.Format{
				{Itag: 18, Quality: "360p", MimeType: `video/mp4; codecs="avc1, mp4a.40.2"`},
				{Itag: 137, Quality: "1080p", MimeType: `video/mp4; codecs="avc1"`},
				{Itag: 136, Quality: "720p", MimeType: `video/mp4; codecs="avc1"`},
				{Itag: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 128000},
			},
		},
		"https://www.youtube.com/watch?v=b": {ID: "b", Title: "Second"},
	}}
}

func TestNativeProbeRejectsOtherSites(t *testing.T) {
	n := newTestNative(testLibrary(), &fakeTranscoder{})
	_, err := n.Probe(context.Background(), "https://vimeo.com/123", model.FetchOptions{})

	var validation *errs.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestNativeProbeVideo(t *testing.T) {
	lib := testLibrary()
	n := newTestNative(lib, &fakeTranscoder{})

	meta, err := n.Probe(context.Background(), testVideoURL, model.FetchOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if meta.Title != "My Clip" || meta.Uploader != "Uploader" {
		t.Errorf("Unexpected metadata: %+v", meta)
	}
	if meta.DurationSeconds != 125 {
		t.Errorf("Expected duration 125, got %d", meta.DurationSeconds)
	}
	if meta.ViewCount != -1 {
		t.Errorf("Expected unknown view count, got %d", meta.ViewCount)
	}
	if len(meta.Formats) != 4 {
		t.Errorf("Expected 4 formats, got %d", len(meta.Formats))
	}

	if _, err := n.Probe(context.Background(), testVideoURL, model.FetchOptions{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if lib.resolveCalls != 1 {
		t.Errorf("Expected cached resolve, got %d calls", lib.resolveCalls)
	}
}

func TestNativeFetchMergesVideoAndAudio(t *testing.T) {
	lib := testLibrary()
	tc := &fakeTranscoder{}
	n := newTestNative(lib, tc)
	dir := t.TempDir()

	spec := model.FormatSpec{Candidates: format.VideoChain(720), PostProcess: model.ConvertToMP4()}
	opts := model.FetchOptions{DestinationDir: dir, Overwrite: true, RateLimitBps: 500}

	var events []model.RawEvent
	err := n.Fetch(context.Background(), testVideoURL, spec, opts, func(ev model.RawEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(lib.downloads) != 2 {
		t.Fatalf("Expected 2 stream downloads, got %d", len(lib.downloads))
	}
	video, audio := lib.downloads[0], lib.downloads[1]
	if video.Selector != "itag=136" {
		t.Errorf("Expected 720p video stream, got %s", video.Selector)
	}
	if audio.Selector != "itag=140" {
		t.Errorf("Expected m4a audio stream, got %s", audio.Selector)
	}
	if video.RateLimitBps != 500 || audio.RateLimitBps != 500 {
		t.Errorf("Expected rate limit on both streams, got %d and %d", video.RateLimitBps, audio.RateLimitBps)
	}
	if video.OutputPath != filepath.Join(dir, "My Clip.mp4") {
		t.Errorf("Unexpected video path %s", video.OutputPath)
	}
	if audio.OutputPath != filepath.Join(dir, "My Clip.audio.m4a") {
		t.Errorf("Unexpected audio path %s", audio.OutputPath)
	}

	if len(events) != 4 {
		t.Fatalf("Expected 4 progress events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Status != model.RawDownloading {
			t.Errorf("Expected only downloading events, got %s", ev.Status)
		}
	}
	if events[0].Filename != video.OutputPath || events[3].Filename != audio.OutputPath {
		t.Errorf("Expected events tagged with stream files, got %q and %q", events[0].Filename, events[3].Filename)
	}

	if len(tc.jobs) != 1 {
		t.Fatalf("Expected 1 transcode job, got %d", len(tc.jobs))
	}
	job := tc.jobs[0]
	if job.InputPath != video.OutputPath || job.AudioPath != audio.OutputPath {
		t.Errorf("Unexpected job inputs: %+v", job)
	}
	if job.OutputPath != filepath.Join(dir, "My Clip.mp4") {
		t.Errorf("Unexpected job output %s", job.OutputPath)
	}
	if job.PostProcess != model.ConvertToMP4() {
		t.Errorf("Expected mp4 conversion, got %s", job.PostProcess)
	}
}

func TestNativeFetchAudio(t *testing.T) {
	lib := testLibrary()
	tc := &fakeTranscoder{}
	n := newTestNative(lib, tc)
	dir := t.TempDir()

	spec := model.FormatSpec{Candidates: format.AudioChain(), PostProcess: model.ExtractAudioMP3()}
	err := n.Fetch(context.Background(), testVideoURL, spec, model.FetchOptions{DestinationDir: dir, Overwrite: true}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(lib.downloads) != 1 || lib.downloads[0].Selector != "itag=140" {
		t.Fatalf("Expected a single m4a download, got %+v", lib.downloads)
	}
	if got := tc.jobs[0].OutputPath; got != filepath.Join(dir, "My Clip.mp3") {
		t.Errorf("Expected mp3 output, got %s", got)
	}
}

func TestNativeFetchFallsBackToBest(t *testing.T) {
	lib := testLibrary()
	lib.info[testVideoURL].Formats = nil
	n := newTestNative(lib, &fakeTranscoder{})

	spec := model.FormatSpec{Candidates: format.VideoChain(0), PostProcess: model.ConvertToMP4()}
	err := n.Fetch(context.Background(), testVideoURL, spec, model.FetchOptions{DestinationDir: t.TempDir(), Overwrite: true}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := lib.downloads[0]; got.Selector != fallbackSelector || got.Ext != fallbackExt {
		t.Errorf("Expected fallback selector, got %+v", got)
	}
}

func TestNativeFetchRetriesDownloads(t *testing.T) {
	lib := testLibrary()
	lib.failDownloads = 2
	n := newTestNative(lib, &fakeTranscoder{})

	spec := model.FormatSpec{Candidates: format.AudioChain(), PostProcess: model.ExtractAudioMP3()}
	opts := model.FetchOptions{DestinationDir: t.TempDir(), Overwrite: true, Retries: 3}
	if err := n.Fetch(context.Background(), testVideoURL, spec, opts, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(lib.downloads) != 3 {
		t.Errorf("Expected 3 attempts, got %d", len(lib.downloads))
	}
}

func TestNativeFetchRetriesExhausted(t *testing.T) {
	lib := testLibrary()
	lib.failDownloads = 10
	tc := &fakeTranscoder{}
	n := newTestNative(lib, tc)

	spec := model.FormatSpec{Candidates: format.AudioChain(), PostProcess: model.ExtractAudioMP3()}
	opts := model.FetchOptions{DestinationDir: t.TempDir(), Overwrite: true, Retries: 1}
	err := n.Fetch(context.Background(), testVideoURL, spec, opts, nil)
	if !errors.Is(err, errs.ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got %v", err)
	}
	if len(tc.jobs) != 0 {
		t.Error("Expected no transcode after failed download")
	}
}

func TestNativeFetchTranscodeFailure(t *testing.T) {
	tc := &fakeTranscoder{err: errs.ErrTranscode}
	n := newTestNative(testLibrary(), tc)

	spec := model.FormatSpec{Candidates: format.VideoChain(0), PostProcess: model.ConvertToMP4()}
	err := n.Fetch(context.Background(), testVideoURL, spec, model.FetchOptions{DestinationDir: t.TempDir(), Overwrite: true}, nil)
	if !errors.Is(err, errs.ErrTranscode) {
		t.Errorf("Expected ErrTranscode, got %v", err)
	}
}

func TestNativePlaylist(t *testing.T) {
	lib := testLibrary()
	lib.items = []types.PlaylistItem{
		{VideoID: "abc", Title: "My Clip", Index: 1},
		{VideoID: "b", Title: "Second"},
	}
	tc := &fakeTranscoder{}
	n := newTestNative(lib, tc)
	url := "https://www.youtube.com/playlist?list=PL42"
	opts := model.FetchOptions{Playlist: true, DestinationDir: t.TempDir(), Overwrite: true}

	meta, err := n.Probe(context.Background(), url, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if meta.ID != "PL42" || len(meta.Entries) != 2 {
		t.Fatalf("Unexpected playlist metadata: %+v", meta)
	}
	if meta.Entries[1].Index != 2 {
		t.Errorf("Expected missing index to default to position, got %d", meta.Entries[1].Index)
	}
	if meta.Entries[1].URL != "https://www.youtube.com/watch?v=b" {
		t.Errorf("Unexpected entry url %s", meta.Entries[1].URL)
	}

	spec := model.FormatSpec{Candidates: format.AudioChain(), PostProcess: model.ExtractAudioMP3()}
	if err := n.Fetch(context.Background(), url, spec, opts, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(tc.jobs) != 2 {
		t.Errorf("Expected 2 transcode jobs, got %d", len(tc.jobs))
	}
	if lib.playlistCalls != 1 {
		t.Errorf("Expected the playlist listed once across probe and fetch, got %d", lib.playlistCalls)
	}
}
