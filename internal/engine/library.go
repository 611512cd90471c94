package engine

import (
	"context"
	"net/http"

	"github.com/ytget/ytdlp/v2"
	"github.com/ytget/ytdlp/v2/types"
)

// maxPlaylistItems caps playlist expansion in the native engine
const maxPlaylistItems = 5000

// library is the slice of github.com/ytget/ytdlp/v2 the native engine uses
type library interface {
	Resolve(ctx context.Context, client *http.Client, url string) (*ytdlp.VideoInfo, error)
	Download(ctx context.Context, client *http.Client, req streamRequest) error
	PlaylistItems(ctx context.Context, client *http.Client, playlistID string) ([]types.PlaylistItem, error)
}

// streamRequest is one stream download
type streamRequest struct {
	URL          string
	Selector     string
	Ext          string
	OutputPath   string
	RateLimitBps int64
	OnProgress   func(ytdlp.Progress)
}

// ytdlpLibrary calls the real library
type ytdlpLibrary struct{}

func (ytdlpLibrary) Resolve(ctx context.Context, client *http.Client, url string) (*ytdlp.VideoInfo, error) {
	_, info, err := ytdlp.New().WithHTTPClient(client).ResolveURL(ctx, url)
	return info, err
}

func (ytdlpLibrary) Download(ctx context.Context, client *http.Client, req streamRequest) error {
	d := ytdlp.New().
		WithHTTPClient(client).
		WithFormat(req.Selector, req.Ext).
		WithOutputPath(req.OutputPath).
		WithRateLimit(req.RateLimitBps)
	if req.OnProgress != nil {
		d = d.WithProgress(req.OnProgress)
	}
	_, err := d.Download(ctx, req.URL)
	return err
}

func (ytdlpLibrary) PlaylistItems(ctx context.Context, client *http.Client, playlistID string) ([]types.PlaylistItem, error) {
	return ytdlp.New().WithHTTPClient(client).GetPlaylistItemsAll(ctx, playlistID, maxPlaylistItems)
}
