package errs

import (
	"context"
	"errors"
	"strings"

	yterrs "github.com/ytget/ytdlp/v2/errs"

	"github.com/ytget/mediadl/internal/model"
)

// Remediation hints appended to classified messages
const (
	HintValidation = "Please enter a valid video URL from a supported platform."
	HintFilesystem = "Check that the destination folder exists and is writable."
	HintTranscode  = "Solution: Please install FFmpeg on your system. Download it from https://ffmpeg.org/download.html and add it to PATH."
	HintNetwork    = "Check your internet connection and try again."

	HintCredentials = "Check that the cookies file exists and is readable."
)

// UnknownErrorText is used when there is no error to describe
const UnknownErrorText = "unknown error"

var transcodeKeywords = []string{
	"ffmpeg",
	"ffprobe",
	"merging of multiple formats",
	"postprocessing",
	"post-processing",
}

var filesystemKeywords = []string{
	"permission denied",
	"read-only file system",
	"no space left on device",
	"disk quota exceeded",
	"access is denied",
}

var validationKeywords = []string{
	"unsupported url",
	"is not a valid url",
	"invalid url",
}

var networkKeywords = []string{
	"unable to download",
	"http error",
	"timed out",
	"timeout",
	"connection reset",
	"connection refused",
	"no such host",
	"network is unreachable",
	"temporary failure in name resolution",
	"tls handshake",
	"ssl",
	"certificate",
	"video unavailable",
	"unable to extract",
	"giving up after",
	"unexpected eof",
}

var networkSentinels = []error{
	ErrNetwork,
	context.DeadlineExceeded,
	yterrs.ErrVideoUnavailable,
	yterrs.ErrPrivate,
	yterrs.ErrAgeRestricted,
	yterrs.ErrCipherFailed,
	yterrs.ErrGeoBlocked,
	yterrs.ErrRateLimited,
}

// Classify maps err to a category and a user-facing message with a hint.
// Unknown errors keep their text verbatim. It never panics.
func Classify(err error) (model.Category, string) {
	if err == nil {
		return model.CategoryUnknown, UnknownErrorText
	}
	raw := err.Error()
	category := Categorize(err)

	var filesystem *FilesystemError
	if category == model.CategoryFilesystem && errors.As(err, &filesystem) {
		return category, filesystemMessage(filesystem.Op, raw)
	}
	return category, Message(category, raw)
}

// Categorize returns only the category of err
func Categorize(err error) model.Category {
	if err == nil {
		return model.CategoryUnknown
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return model.CategoryValidation
	}
	var filesystem *FilesystemError
	if errors.As(err, &filesystem) {
		return model.CategoryFilesystem
	}
	if errors.Is(err, ErrTranscode) {
		return model.CategoryTranscode
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, transcodeKeywords) {
		return model.CategoryTranscode
	}
	for _, sentinel := range networkSentinels {
		if errors.Is(err, sentinel) {
			return model.CategoryNetwork
		}
	}
	if containsAny(lower, filesystemKeywords) {
		return model.CategoryFilesystem
	}
	if containsAny(lower, validationKeywords) {
		return model.CategoryValidation
	}
	if containsAny(lower, networkKeywords) {
		return model.CategoryNetwork
	}
	return model.CategoryUnknown
}

// Message renders the user-facing text for a category
func Message(category model.Category, raw string) string {
	switch category {
	case model.CategoryValidation:
		return "Invalid request: " + raw + ". " + HintValidation
	case model.CategoryFilesystem:
		return "Filesystem error: " + raw + ". " + HintFilesystem
	case model.CategoryTranscode:
		return "FFmpeg Error: " + raw + "\n\n" + HintTranscode
	case model.CategoryNetwork:
		return "Network Error: " + raw + ". " + HintNetwork
	default:
		return raw
	}
}

// filesystemMessage names the failed operation of a typed filesystem error
func filesystemMessage(op, raw string) string {
	switch op {
	case OpCreateDir:
		return "Error creating output folder: " + raw + ". " + HintFilesystem
	case OpReadCredentials:
		return "Error reading cookies file: " + raw + ". " + HintCredentials
	default:
		return "Filesystem error (" + op + "): " + raw + ". " + HintFilesystem
	}
}

// Hint returns the remediation hint for a category, "" for Unknown
func Hint(category model.Category) string {
	switch category {
	case model.CategoryValidation:
		return HintValidation
	case model.CategoryFilesystem:
		return HintFilesystem
	case model.CategoryTranscode:
		return HintTranscode
	case model.CategoryNetwork:
		return HintNetwork
	default:
		return ""
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
