package transcode

import (
	"context"

	"github.com/ytget/mediadl/internal/model"
)

// Transcoder applies a post-processing directive to fetched streams
type Transcoder interface {
	Apply(ctx context.Context, job Job, onProgress func(float64)) (string, error)
}

// Job describes one ffmpeg run. AudioPath is set when a separate audio
// stream must be merged into VideoPath.
type Job struct {
	ID          string
	InputPath   string
	AudioPath   string
	OutputPath  string
	PostProcess model.PostProcess
}
