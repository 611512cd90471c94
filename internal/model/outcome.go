package model

import "time"

// Outcome is the single terminal result of a request
type Outcome struct {
	RequestID      string
	Status         Status
	Category       Category
	Message        string
	DestinationDir string
	Metadata       *MediaMetadata // nil when the probe never completed
	StartedAt      time.Time
	FinishedAt     time.Time
}

// IsSuccess reports whether the request succeeded
func (o Outcome) IsSuccess() bool {
	return o.Status == StatusSuccess
}

// Elapsed returns the wall time spent on the request
func (o Outcome) Elapsed() time.Duration {
	if o.StartedAt.IsZero() || o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
