package model

// Phase is the lifecycle phase carried by a normalized progress event
type Phase string

const (
	// PhaseDownloading means bytes are still being transferred
	PhaseDownloading Phase = "Downloading"

	// PhaseFinished means the item was fully fetched and post-processed
	PhaseFinished Phase = "Finished"

	// PhaseFailed means the transfer stopped with an error
	PhaseFailed Phase = "Failed"
)

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true for Finished and Failed
func (p Phase) IsTerminal() bool {
	return p == PhaseFinished || p == PhaseFailed
}

// Status is the terminal status of a request
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Category classifies a failed request into an actionable group
type Category string

const (
	// CategoryNone is used for successful outcomes
	CategoryNone Category = ""

	// CategoryValidation means the request was malformed and never attempted
	CategoryValidation Category = "Validation"

	// CategoryFilesystem means the destination could not be created or written
	CategoryFilesystem Category = "Filesystem"

	// CategoryTranscode means ffmpeg is missing or failed
	CategoryTranscode Category = "Transcode"

	// CategoryNetwork means extraction or transfer failed after retries
	CategoryNetwork Category = "Network"

	// CategoryUnknown is anything that matched no other signal
	CategoryUnknown Category = "Unknown"
)

// String returns the string representation of Category
func (c Category) String() string {
	if c == CategoryNone {
		return "None"
	}
	return string(c)
}
