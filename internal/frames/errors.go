package frames

import "fmt"

// Kind classifies an extraction failure for HTTP error mapping.
type Kind string

const (
	KindInvalidQuality    Kind = "INVALID_QUALITY"
	KindMissingInput      Kind = "MISSING_INPUT"
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	KindUploadTooLarge    Kind = "UPLOAD_TOO_LARGE"
	KindDownloadFailed    Kind = "DOWNLOAD_FAILED"
	KindToolMissing       Kind = "TOOL_MISSING"
	KindExtractionFailed  Kind = "EXTRACTION_FAILED"
	KindNoFramesProduced  Kind = "NO_FRAMES_PRODUCED"
	KindArchiveIO         Kind = "ARCHIVE_IO_ERROR"
)

// Error is a classified extraction error. Message is safe to expose to
// clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with no underlying cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error wrapping an underlying cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
