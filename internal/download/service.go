package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ytget/mediadl/internal/errs"
	"github.com/ytget/mediadl/internal/format"
	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/platform"
	"github.com/ytget/mediadl/internal/progress"
)

const (
	// SuccessMessage opens every successful outcome
	SuccessMessage = "Download completed successfully!"

	progressLogInterval = 2 * time.Second
)

// Service handles download requests against one engine
type Service struct {
	engine       Engine
	base         model.FetchOptions
	probeTimeout time.Duration
	recorder     Recorder
	log          *logger.ComponentLogger
	now          func() time.Time
	mkdirAll     func(dir string) error
}

// NewService creates a download service. base carries the engine options
// shared by every request; per-request fields are filled in by Run.
func NewService(engine Engine, base model.FetchOptions) *Service {
	return &Service{
		engine:   engine,
		base:     base,
		log:      logger.WithComponent(logger.ComponentOrchestrator),
		now:      time.Now,
		mkdirAll: platform.CreateDirectoryIfNotExists,
	}
}

// WithProbeTimeout bounds the metadata probe; 0 disables the bound
func (s *Service) WithProbeTimeout(d time.Duration) *Service {
	s.probeTimeout = d
	return s
}

// WithRecorder stores every outcome through r
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// WithLogger replaces the component logger
func (s *Service) WithLogger(l *logger.ComponentLogger) *Service {
	s.log = l
	return s
}

// Run drives req to a single Outcome. It never panics and never returns
// without publishing a terminal event to mailbox.
func (s *Service) Run(ctx context.Context, req model.DownloadRequest, mailbox *progress.Mailbox) (outcome model.Outcome) {
	req = req.Normalized()
	if req.ID == "" {
		req = req.WithID(generateRequestID())
	}
	if mailbox == nil {
		mailbox = progress.NewMailbox()
	}
	tracker := progress.NewTracker(mailbox)
	log := s.log.With(logger.Fields{"request": req.ID})

	outcome = model.Outcome{
		RequestID:      req.ID,
		DestinationDir: req.DestinationDir,
		StartedAt:      s.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			raw := fmt.Sprintf("internal error: %v", r)
			log.Error("recovered from panic", logger.Fields{"panic": fmt.Sprint(r), "stack": string(debug.Stack())})
			tracker.Fail(raw)
			outcome.Status = model.StatusFailure
			outcome.Category = model.CategoryUnknown
			outcome.Message = raw
		}
		outcome.FinishedAt = s.now()
		s.finish(ctx, req, outcome, log)
	}()

	log.Info("request started", logger.Fields{
		"url":       req.URL,
		"mode":      req.Mode.String(),
		"quality":   req.Quality.String(),
		"playlist":  req.IncludePlaylist,
		"subtitles": req.IncludeSubtitles,
		"engine":    s.engine.Name(),
	})

	meta, err := s.execute(ctx, req, tracker, log)
	outcome.Metadata = meta
	if err != nil {
		raw := err.Error()
		tracker.Fail(raw)
		outcome.Status = model.StatusFailure
		outcome.Category, outcome.Message = errs.Classify(err)
		return outcome
	}

	tracker.Finish()
	outcome.Status = model.StatusSuccess
	outcome.Message = fmt.Sprintf("%s Files saved to: %s", SuccessMessage, req.DestinationDir)
	return outcome
}

// RunMany runs reqs with at most parallel requests in flight
func (s *Service) RunMany(ctx context.Context, reqs []model.DownloadRequest, parallel int, mailboxFor func(model.DownloadRequest) *progress.Mailbox) []model.Outcome {
	if parallel < 1 {
		parallel = 1
	}
	outcomes := make([]model.Outcome, len(reqs))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup

	for i, req := range reqs {
		if req.ID == "" {
			req = req.WithID(generateRequestID())
		}
		var mailbox *progress.Mailbox
		if mailboxFor != nil {
			mailbox = mailboxFor(req)
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, req model.DownloadRequest, mailbox *progress.Mailbox) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = s.Run(ctx, req, mailbox)
		}(i, req, mailbox)
	}

	wg.Wait()
	return outcomes
}

// execute is the linear pipeline. Metadata is returned whenever the probe succeeded.
func (s *Service) execute(ctx context.Context, req model.DownloadRequest, tracker *progress.Tracker, log *logger.ComponentLogger) (*model.MediaMetadata, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if err := s.mkdirAll(req.DestinationDir); err != nil {
		return nil, errs.NewFilesystemError(errs.OpCreateDir, req.DestinationDir, err)
	}
	if req.HasCredentialBundle() {
		if _, err := os.Stat(req.CredentialBundlePath); err != nil {
			return nil, errs.NewFilesystemError(errs.OpReadCredentials, req.CredentialBundlePath, err)
		}
	}

	opts := s.fetchOptions(req)

	meta, err := s.probe(ctx, req.URL, opts)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &model.MediaMetadata{DurationSeconds: -1, ViewCount: -1}
	}
	log.Info("metadata", logger.Fields{
		"title":    meta.DisplayTitle(),
		"uploader": meta.DisplayUploader(),
		"duration": meta.DurationString(),
		"formats":  len(meta.Formats),
		"entries":  len(meta.Entries),
	})

	spec := format.Select(meta, req)
	fields := logger.Fields{"expression": spec.Expression, "postprocess": spec.PostProcess.String()}
	if c, ok := spec.ResolvedCandidate(); ok {
		fields["resolved"] = c.String()
	}
	log.Info("format selected", fields)

	throttle := rate.Sometimes{First: 1, Interval: progressLogInterval}
	err = s.engine.Fetch(ctx, req.URL, spec, opts, func(raw model.RawEvent) {
		ev := tracker.OnEvent(raw)
		throttle.Do(func() {
			log.Debug("progress", logger.Fields{
				"bytes":     ev.BytesDone,
				"total":     ev.BytesTotal,
				"estimated": ev.Estimated,
				"percent":   fmt.Sprintf("%.1f", ev.Percent()),
				"stream":    ev.Stream,
				"stream_pc": fmt.Sprintf("%.1f", ev.StreamPercent()),
			})
		})
	})
	if err != nil {
		return meta, err
	}
	return meta, nil
}

func (s *Service) probe(ctx context.Context, url string, opts model.FetchOptions) (*model.MediaMetadata, error) {
	if s.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
	}
	return s.engine.Probe(ctx, url, opts)
}

// fetchOptions layers the request onto the shared options
func (s *Service) fetchOptions(req model.DownloadRequest) model.FetchOptions {
	opts := s.base
	opts.Playlist = req.IncludePlaylist
	opts.SubtitleLangs = nil
	if req.IncludeSubtitles {
		opts.SubtitleLangs = []string{model.SubtitleLangEnglish}
	}
	opts.CredentialBundlePath = req.CredentialBundlePath
	opts.DestinationDir = req.DestinationDir
	opts.OutputTemplate = filepath.Join(req.DestinationDir, model.OutputTemplateSuffix)
	return opts
}

func (s *Service) finish(ctx context.Context, req model.DownloadRequest, outcome model.Outcome, log *logger.ComponentLogger) {
	fields := logger.Fields{
		"status":  outcome.Status.String(),
		"elapsed": outcome.Elapsed().Round(time.Millisecond).String(),
	}
	if outcome.IsSuccess() {
		log.Info("request finished", fields)
	} else {
		fields["category"] = outcome.Category.String()
		fields["message"] = outcome.Message
		log.Error("request failed", fields)
	}

	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), req, outcome); err != nil {
		log.Warn("failed to record outcome", logger.Fields{"error": err.Error()})
	}
}

// validate rejects requests that must never reach an engine
func validate(req model.DownloadRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return errs.NewValidationError("url", "", "is empty")
	}
	if !platform.IsSupportedURL(req.URL) {
		return errs.NewValidationError("url", req.URL,
			"unsupported site, expected one of "+strings.Join(platform.SupportedDomains, ", "))
	}
	if strings.TrimSpace(req.DestinationDir) == "" {
		return errs.NewValidationError("destination", "", "is empty")
	}
	if req.Mode != model.ModeAudio && req.Mode != model.ModeVideo {
		return errs.NewValidationError("mode", req.Mode.String(), "must be audio or video")
	}
	if !req.Quality.IsValid() {
		return errs.NewValidationError("quality", req.Quality.String(), "unsupported quality")
	}
	return nil
}

// generateRequestID returns a time-ordered request ID
func generateRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
