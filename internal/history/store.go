package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/platform"
)

// DefaultFileName is used when the configured history path is a directory
const DefaultFileName = "history.db"

// busyTimeoutMillis lets concurrent writers wait instead of failing
const busyTimeoutMillis = 5000

// ErrNotFound is returned by Get for unknown request IDs
var ErrNotFound = errors.New("history entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	mode TEXT NOT NULL,
	quality TEXT NOT NULL,
	playlist INTEGER NOT NULL DEFAULT 0,
	subtitles INTEGER NOT NULL DEFAULT 0,
	destination TEXT NOT NULL,
	status TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_finished_at ON outcomes(finished_at);
`

const selectColumns = `id, url, mode, quality, playlist, subtitles, destination, status, category, message, title, started_at, finished_at`

// Entry is one recorded request
type Entry struct {
	RequestID      string
	URL            string
	Mode           model.Mode
	Quality        model.Quality
	Playlist       bool
	Subtitles      bool
	DestinationDir string
	Status         model.Status
	Category       model.Category
	Message        string
	Title          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Elapsed returns the recorded wall time
func (e Entry) Elapsed() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store is a SQLite-backed outcome log
type Store struct {
	db  *sql.DB
	log *logger.ComponentLogger
}

// Open opens or creates the database at path, creating parent directories
func Open(path string) (*Store, error) {
	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	s := &Store{db: db, log: logger.WithComponent(logger.ComponentHistory)}
	s.log.Debug("history opened", logger.Fields{"path": path})
	return s, nil
}

// dsn applies per-connection pragmas through the driver's _pragma parameter
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	q.Add("_pragma", "journal_mode(WAL)")
	return path + "?" + q.Encode()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the outcome of req, replacing any earlier row with the same ID
func (s *Store) Record(ctx context.Context, req model.DownloadRequest, outcome model.Outcome) error {
	title := ""
	if outcome.Metadata != nil {
		title = outcome.Metadata.Title
	}
	query := `INSERT OR REPLACE INTO outcomes (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		outcome.RequestID,
		req.URL,
		string(req.Mode),
		string(req.Quality),
		req.IncludePlaylist,
		req.IncludeSubtitles,
		req.DestinationDir,
		string(outcome.Status),
		string(outcome.Category),
		outcome.Message,
		title,
		outcome.StartedAt.UnixMilli(),
		outcome.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", outcome.RequestID, err)
	}
	s.log.Trace("recorded", logger.Fields{"request": outcome.RequestID, "status": outcome.Status.String()})
	return nil
}

// Get returns one entry by request ID
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM outcomes WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM outcomes ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Prune deletes entries that finished before cutoff and returns how many were removed
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outcomes WHERE finished_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                     Entry
		mode, quality         string
		status, category      string
		startedMs, finishedMs int64
	)
	err := row.Scan(&e.RequestID, &e.URL, &mode, &quality, &e.Playlist, &e.Subtitles,
		&e.DestinationDir, &status, &category, &e.Message, &e.Title, &startedMs, &finishedMs)
	if err != nil {
		return nil, err
	}
	e.Mode = model.Mode(mode)
	e.Quality = model.Quality(quality)
	e.Status = model.Status(status)
	e.Category = model.Category(category)
	e.StartedAt = time.UnixMilli(startedMs)
	e.FinishedAt = time.UnixMilli(finishedMs)
	return &e, nil
}
