// Package server provides the HTTP surface for the frame extraction API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// ExtractJSONRequest is the JSON request body for POST /extract_frames,
// the alternative to multipart form fields. Either url or youtube_url must
// be set; interval_seconds and every_s are aliases.
type ExtractJSONRequest struct {
	// URL is the remote video location.
	URL string `json:"url" validate:"omitempty,url"`
	// YouTubeURL is an alias for URL, kept for older clients.
	YouTubeURL string `json:"youtube_url" validate:"omitempty,url"`
	// IntervalSeconds is the frame sampling interval in seconds.
	IntervalSeconds *int `json:"interval_seconds"`
	// EveryS is an alias for IntervalSeconds.
	EveryS *int `json:"every_s"`
	// StartS is the trim window start in seconds.
	StartS int `json:"start_s"`
	// EndS is the trim window end in seconds, 0 meaning full length.
	EndS int `json:"end_s"`
	// Fmt is the output image format: jpg, jpeg, png, or webp.
	Fmt string `json:"fmt"`
	// Quality is the 1-100 image quality.
	Quality *int `json:"quality" validate:"omitempty,min=1,max=100"`
	// MaxFrames caps the number of emitted frames.
	MaxFrames *int `json:"max_frames" validate:"omitempty,min=1"`
	// ZipName is the archive filename returned to the caller.
	ZipName string `json:"zip_name"`
	// PushToS3 requests archive offload to object storage.
	PushToS3 bool `json:"push_to_s3"`
}

// ExtractOffloadResponse is returned when the archive was pushed to object
// storage instead of streamed back.
type ExtractOffloadResponse struct {
	// URL is the object storage location of the archive.
	URL string `json:"url"`
	// ZipName is the sanitized archive filename.
	ZipName string `json:"zip_name"`
	// FrameCount is the number of frames in the archive.
	FrameCount int `json:"frame_count"`
	// ArchiveBytes is the archive size in bytes.
	ArchiveBytes int64 `json:"archive_bytes"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// OK reports liveness. No dependency checks are performed.
	OK bool `json:"ok"`
}
