package transcode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/mediadl/internal/errs"
	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/platform"
)

// FFmpeg constants for post-processing
const (
	// Re-encode settings for sources that cannot be stream-copied into mp4
	VideoCodec   = "libx264"
	VideoPreset  = "medium"
	VideoCRF     = "23"
	AudioCodec   = "aac"
	AudioBitrate = "192k"

	// MP3 extraction
	MP3Codec = "libmp3lame"

	// Container flags
	FastStartFlag = "+faststart"

	// I/O constants
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
	TaskIDPrefix        = "transcode-"
	stderrTailLines     = 20
)

// Service runs ffmpeg for post-processing
type Service struct {
	ffmpegPath  string
	ffprobePath string
	log         *logger.ComponentLogger
}

// NewService creates a transcode service. Empty paths fall back to PATH lookup.
func NewService(ffmpegPath, ffprobePath string) *Service {
	return &Service{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		log:         logger.WithComponent(logger.ComponentTranscode),
	}
}

// NewJob creates a job with a fresh ID and the output path derived from pp
func NewJob(inputPath, audioPath string, pp model.PostProcess) Job {
	return Job{
		ID:          generateTaskID(),
		InputPath:   inputPath,
		AudioPath:   audioPath,
		OutputPath:  OutputPath(inputPath, pp),
		PostProcess: pp,
	}
}

// Apply runs the job and returns the output path. Inputs other than the
// output are removed on success. onProgress receives values in [0, 1].
func (s *Service) Apply(ctx context.Context, job Job, onProgress func(float64)) (string, error) {
	log := s.log.With(logger.Fields{"job": job.ID})

	ffmpeg, err := platform.LookupTool(s.ffmpegPath, platform.ToolFFmpeg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrTranscode, err)
	}
	if _, err := os.Stat(job.InputPath); err != nil {
		return "", fmt.Errorf("input file does not exist: %s", job.InputPath)
	}

	// Writing in place would truncate the input, so go through a temp file
	output := job.OutputPath
	if samePath(output, job.InputPath) || samePath(output, job.AudioPath) {
		output = tempOutputPath(job)
	}

	duration, err := s.probeDuration(ctx, job.InputPath)
	if err != nil {
		log.Warn("duration unknown, progress disabled", logger.Fields{"error": err.Error()})
	}

	args := BuildFFmpegArgs(job.InputPath, job.AudioPath, output, job.PostProcess)
	log.Debug("starting ffmpeg", logger.Fields{"args": strings.Join(args, " ")})

	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: failed to start ffmpeg: %v", errs.ErrTranscode, err)
	}

	tail := make(chan string, 1)
	go func() {
		tail <- monitorProgress(stderr, duration, onProgress)
	}()

	waitErr := cmd.Wait()
	lastLines := <-tail
	if waitErr != nil {
		os.Remove(output)
		return "", fmt.Errorf("%w: %v: %s", errs.ErrTranscode, waitErr, lastLines)
	}

	if output != job.OutputPath {
		if err := os.Rename(output, job.OutputPath); err != nil {
			return "", fmt.Errorf("replace %s: %w", job.OutputPath, err)
		}
	}
	for _, p := range []string{job.InputPath, job.AudioPath} {
		if p != "" && !samePath(p, job.OutputPath) {
			os.Remove(p)
		}
	}

	log.Info("ffmpeg finished", logger.Fields{"output": job.OutputPath, "directive": job.PostProcess.String()})
	return job.OutputPath, nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments for a directive
func BuildFFmpegArgs(inputPath, audioPath, outputPath string, pp model.PostProcess) []string {
	args := []string{"-y", "-i", inputPath}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}

	switch pp.Kind {
	case model.PostExtractAudio:
		args = append(args,
			"-vn",
			"-c:a", MP3Codec,
			"-b:a", strconv.Itoa(pp.BitrateKbps)+"k",
		)
	default:
		if audioPath != "" {
			args = append(args, "-map", "0:v:0", "-map", "1:a:0")
		}
		if canStreamCopy(inputPath, audioPath) {
			args = append(args, "-c", "copy")
		} else {
			args = append(args,
				"-c:v", VideoCodec,
				"-preset", VideoPreset,
				"-crf", VideoCRF,
				"-c:a", AudioCodec,
				"-b:a", AudioBitrate,
			)
		}
		args = append(args, "-movflags", FastStartFlag)
	}

	return append(args,
		"-progress", ProgressPipeTarget,
		"-nostats",
		outputPath,
	)
}

// OutputPath returns the input path with the directive's extension
func OutputPath(inputPath string, pp model.PostProcess) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "." + pp.OutputExt()
}

// ParseProgressLine extracts microseconds from an "out_time_us=" line
func ParseProgressLine(line string) (int64, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ProgressTimePrefix) {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return us, true
}

// canStreamCopy reports whether the streams already fit an mp4 container
func canStreamCopy(inputPath, audioPath string) bool {
	if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".mp4" {
		return false
	}
	if audioPath == "" {
		return true
	}
	ext := strings.ToLower(filepath.Ext(audioPath))
	return ext == ".m4a" || ext == ".mp4"
}

// probeDuration gets the duration of a media file in seconds using ffprobe
func (s *Service) probeDuration(ctx context.Context, filePath string) (float64, error) {
	ffprobe, err := platform.LookupTool(s.ffprobePath, platform.ToolFFprobe)
	if err != nil {
		return 0, err
	}
	cmd := exec.CommandContext(ctx, ffprobe, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// monitorProgress reports progress from ffmpeg's stderr and returns its last lines
func monitorProgress(stderr io.Reader, totalDuration float64, onProgress func(float64)) string {
	var recent []string
	scanner := bufio.NewScanner(stderr)

	for scanner.Scan() {
		line := scanner.Text()
		us, ok := ParseProgressLine(line)
		if !ok {
			if !strings.Contains(line, "=") {
				recent = append(recent, line)
				if len(recent) > stderrTailLines {
					recent = recent[1:]
				}
			}
			continue
		}
		if totalDuration <= 0 || onProgress == nil {
			continue
		}
		progress := float64(us) / 1e6 / totalDuration
		if progress > 1.0 {
			progress = 1.0
		}
		onProgress(progress)
	}

	return strings.TrimSpace(strings.Join(recent, "\n"))
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func tempOutputPath(job Job) string {
	ext := filepath.Ext(job.OutputPath)
	return strings.TrimSuffix(job.OutputPath, ext) + "." + job.ID + ext
}

// generateTaskID generates a unique task ID using UUID v7 for time ordering
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
