package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ytget/mediadl/internal/config"
	"github.com/ytget/mediadl/internal/download"
	"github.com/ytget/mediadl/internal/engine"
	"github.com/ytget/mediadl/internal/history"
	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/platform"
	"github.com/ytget/mediadl/internal/progress"
	"github.com/ytget/mediadl/internal/transcode"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const (
	cmdHistory = "history"
	cmdConfig  = "config"
	cmdVersion = "version"

	appConfigDir   = "mediadl"
	configFileName = "settings.json"
)

// downloadFlags holds the parsed command line of a download run
type downloadFlags struct {
	configPath  string
	dir         string
	mode        string
	quality     string
	playlist    bool
	subtitles   bool
	cookies     string
	engine      string
	parallel    int
	quiet       bool
	reveal      bool
	logLevel    string
	historyPath string
	urls        []string
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case cmdHistory:
			return runHistory(args[1:], stdout, stderr)
		case cmdConfig:
			return runConfig(args[1:], stdout, stderr)
		case cmdVersion:
			fmt.Fprintf(stdout, "mediadl v%s\n", version)
			return exitOK
		}
	}
	return runDownload(args, stdout, stderr)
}

func parseDownloadFlags(args []string, stderr io.Writer) (*downloadFlags, error) {
	f := &downloadFlags{}
	fs := flag.NewFlagSet("mediadl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", defaultConfigPath(), "Settings file (JSON)")
	fs.StringVar(&f.dir, "dir", "", "Destination directory (default from settings)")
	fs.StringVar(&f.mode, "mode", string(model.ModeVideo), "Output mode: video or audio")
	fs.StringVar(&f.quality, "quality", string(model.QualityBest), "Max video height: best, 1080p, 720p, 480p, 360p, 240p")
	fs.BoolVar(&f.playlist, "playlist", false, "Download the whole playlist when the URL references one")
	fs.BoolVar(&f.subtitles, "subs", false, "Download English subtitles (authored or auto-generated)")
	fs.StringVar(&f.cookies, "cookies", "", "Netscape cookies.txt for restricted content")
	fs.StringVar(&f.engine, "engine", "", "Extraction engine: ytdlp or native (default from settings)")
	fs.IntVar(&f.parallel, "parallel", 1, "Max concurrent requests when several URLs are given")
	fs.BoolVar(&f.quiet, "quiet", false, "Suppress progress output")
	fs.BoolVar(&f.reveal, "reveal", false, "Open the destination folder after a successful download")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.StringVar(&f.historyPath, "history", "", "SQLite history database (default from settings, empty disables)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: mediadl [flags] <url> [url...]\n")
		fmt.Fprintf(stderr, "       mediadl history [-limit N]\n")
		fmt.Fprintf(stderr, "       mediadl config [-save]\n")
		fmt.Fprintf(stderr, "       mediadl version\n")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	for _, u := range fs.Args() {
		if u = strings.TrimSpace(u); u != "" {
			f.urls = append(f.urls, u)
		}
	}
	if len(f.urls) == 0 {
		fs.Usage()
		return nil, errors.New("at least one URL is required")
	}
	return f, nil
}

// loadSettings reads the settings file, applies env overrides and installs the global logger
func loadSettings(path, logLevel string) (*config.Settings, error) {
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := settings.ApplyEnv(); err != nil {
		return nil, err
	}
	if logLevel != "" {
		settings.Log.Level = logLevel
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	cfg, err := settings.Log.Build()
	if err != nil {
		return nil, err
	}
	logger.SetGlobalLogger(logger.New(cfg))
	return settings, nil
}

func runDownload(args []string, stdout, stderr io.Writer) int {
	f, err := parseDownloadFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	settings, err := loadSettings(f.configPath, f.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if f.engine != "" {
		settings.Engine = config.EngineKind(strings.ToLower(f.engine))
	}
	if f.historyPath != "" {
		settings.HistoryPath = f.historyPath
	}
	if f.dir != "" {
		settings.DownloadDir = f.dir
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	reqs, err := buildRequests(f, settings.DownloadDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	log := logger.WithComponent(logger.ComponentApp)
	service := download.NewService(buildEngine(settings), settings.FetchOptions()).
		WithProbeTimeout(settings.ProbeTimeout())

	if settings.HistoryPath != "" {
		store, err := history.Open(settings.HistoryPath)
		if err != nil {
			log.Warn("history disabled", logger.Fields{"error": err.Error()})
		} else {
			defer store.Close()
			service = service.WithRecorder(store)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, req := range reqs {
		printSettings(stdout, req, settings.Engine)
	}

	renderers := &rendererGroup{}
	inline := len(reqs) == 1
	mailboxFor := func(req model.DownloadRequest) *progress.Mailbox {
		mailbox := progress.NewMailbox()
		if !f.quiet {
			label := ""
			if !inline {
				label = shortID(req.ID)
			}
			renderers.start(newRenderer(stdout, label, inline), mailbox)
		}
		return mailbox
	}

	outcomes := service.RunMany(ctx, reqs, f.parallel, mailboxFor)
	renderers.wait()

	code := exitOK
	for _, outcome := range outcomes {
		printOutcome(stdout, stderr, outcome)
		if !outcome.IsSuccess() {
			code = exitFailure
			continue
		}
		if f.reveal || settings.RevealOnComplete {
			if err := platform.RevealDirectory(outcome.DestinationDir); err != nil {
				log.Warn("failed to open destination", logger.Fields{"dir": outcome.DestinationDir, "error": err.Error()})
			}
		}
	}
	return code
}

// buildRequests turns parsed flags into validated-shape requests
func buildRequests(f *downloadFlags, dir string) ([]model.DownloadRequest, error) {
	mode, err := model.ParseMode(f.mode)
	if err != nil {
		return nil, err
	}
	quality, err := model.ParseQuality(f.quality)
	if err != nil {
		return nil, err
	}
	if f.cookies != "" {
		if f.cookies, err = filepath.Abs(f.cookies); err != nil {
			return nil, err
		}
	}

	reqs := make([]model.DownloadRequest, 0, len(f.urls))
	for _, u := range f.urls {
		reqs = append(reqs, model.NewDownloadRequest(u, mode, quality, dir).
			WithPlaylist(f.playlist).
			WithSubtitles(f.subtitles).
			WithCredentialBundle(f.cookies))
	}
	return reqs, nil
}

func buildEngine(settings *config.Settings) download.Engine {
	if settings.Engine == config.EngineNative {
		return engine.NewNative(transcode.NewService(settings.FFmpegPath, ffprobeFor(settings.FFmpegPath)))
	}
	return engine.NewYtDlp(settings.YtDlpPath, settings.FFmpegPath)
}

// ffprobeFor places ffprobe next to an explicitly configured ffmpeg
func ffprobeFor(ffmpegPath string) string {
	dir := filepath.Dir(ffmpegPath)
	if ffmpegPath == "" || dir == "." {
		return platform.ToolFFprobe
	}
	return filepath.Join(dir, platform.ToolFFprobe+filepath.Ext(ffmpegPath))
}

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mediadl history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath(), "Settings file (JSON)")
	historyPath := fs.String("history", "", "SQLite history database (default from settings)")
	limit := fs.Int("limit", 20, "Number of entries to show")
	prune := fs.Duration("prune", 0, "Delete entries older than this age before listing (e.g. 720h)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	settings, err := loadSettings(*configPath, "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if *historyPath != "" {
		settings.HistoryPath = *historyPath
	}
	if settings.HistoryPath == "" {
		fmt.Fprintf(stderr, "Error: history is disabled; set history_path, %s or -history\n", config.EnvHistoryPath)
		return exitFailure
	}

	store, err := history.Open(settings.HistoryPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer store.Close()

	ctx := context.Background()
	if *prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-*prune))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "Pruned %d entries\n", n)
	}

	entries, err := store.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	printHistory(stdout, entries)
	return exitOK
}

// runConfig prints the effective settings after file and env overrides
func runConfig(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mediadl config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath(), "Settings file (JSON)")
	save := fs.Bool("save", false, "Write the effective settings back to the file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	settings, err := loadSettings(*configPath, "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if *save {
		if err := settings.Save(*configPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintln(stdout, string(data))
	return exitOK
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appConfigDir, configFileName)
}

// rendererGroup tracks progress renderers until their terminal event
type rendererGroup struct {
	wg sync.WaitGroup
}

func (g *rendererGroup) start(r *renderer, mailbox *progress.Mailbox) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		r.follow(mailbox)
	}()
}

func (g *rendererGroup) wait() {
	g.wg.Wait()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
