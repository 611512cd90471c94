package model

import "time"

// RawStatus is the status reported by an engine's transfer callback
type RawStatus string

const (
	RawDownloading RawStatus = "downloading"
	RawFinished    RawStatus = "finished"
	RawError       RawStatus = "error"
)

// RawEvent is a low-level transfer callback as reported by an engine.
// Zero byte counts mean unknown. Filename, when set, identifies the stream
// being transferred so a restart of the same file is not taken for a new one.
type RawEvent struct {
	Status             RawStatus
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate int64
	Filename           string
	Error              string
}

// ProgressEvent is the normalized progress report handed to presentation
type ProgressEvent struct {
	Phase       Phase
	BytesDone   int64
	BytesTotal  int64 // 0 if unknown
	Estimated   bool  // BytesTotal is an estimate
	Fraction    float64
	HasFraction bool
	Message     string // failure text for PhaseFailed
	Timestamp   time.Time

	// Current stream of a multi-stream item (merge halves, playlist entries)
	Stream            int // 0-based
	StreamBytesDone   int64
	StreamBytesTotal  int64 // 0 if unknown
	StreamFraction    float64
	HasStreamFraction bool
}

// Percent returns the fraction as a 0-100 value
func (e ProgressEvent) Percent() float64 {
	return e.Fraction * 100
}

// StreamPercent returns the current stream's fraction as a 0-100 value
func (e ProgressEvent) StreamPercent() float64 {
	return e.StreamFraction * 100
}
