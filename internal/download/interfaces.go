package download

import (
	"context"

	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/progress"
)

// Engine resolves metadata and fetches media for a URL.
// Fetch reports only in-flight events; the orchestrator emits the terminal one.
type Engine interface {
	Name() string
	Probe(ctx context.Context, url string, opts model.FetchOptions) (*model.MediaMetadata, error)
	Fetch(ctx context.Context, url string, spec model.FormatSpec, opts model.FetchOptions, onEvent func(model.RawEvent)) error
}

// Recorder stores terminal outcomes
type Recorder interface {
	Record(ctx context.Context, req model.DownloadRequest, outcome model.Outcome) error
}

// Orchestrator defines the interface for the download service.
type Orchestrator interface {
	// Run drives one request to its Outcome. mailbox may be nil.
	Run(ctx context.Context, req model.DownloadRequest, mailbox *progress.Mailbox) model.Outcome

	// RunMany runs requests with at most parallel in flight, outcomes in input order
	RunMany(ctx context.Context, reqs []model.DownloadRequest, parallel int, mailboxFor func(model.DownloadRequest) *progress.Mailbox) []model.Outcome
}
