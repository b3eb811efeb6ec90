// Package frames provides the frame-extraction use case: input resolution,
// parameter normalization, and orchestration of the download, extraction,
// and archiving steps.
package frames

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Format is an output image format for extracted frames.
type Format string

const (
	FormatJPG  Format = "jpg"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// Defaults applied when the caller omits a field.
const (
	DefaultEveryS    = 1
	DefaultQuality   = 95
	DefaultMaxFrames = 1000
	DefaultZipName   = "frames.zip"
)

// ParseFormat parses a caller-supplied format string, case-insensitively.
// An empty string resolves to jpg.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpg":
		return FormatJPG, nil
	case "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", NewError(KindUnsupportedFormat,
			fmt.Sprintf("unsupported format %q: must be one of jpg, jpeg, png, webp", s))
	}
}

// InputKind identifies where the source video comes from.
type InputKind int

const (
	// InputUpload is a multipart file upload.
	InputUpload InputKind = iota + 1
	// InputRemoteURL is a remote video URL fetched server-side.
	InputRemoteURL
)

// Input is the resolved video source for one request. Exactly one of the
// upload fields or URL is populated, according to Kind.
type Input struct {
	Kind InputKind

	// Filename is the original upload filename, used to pick the source
	// file extension. Upload only.
	Filename string
	// Data is the upload content. Upload only; the caller owns closing it.
	Data io.Reader

	// URL is the remote video location. Remote only.
	URL string
}

// RawParams are the extraction parameters as supplied by the caller,
// before validation and clamping.
type RawParams struct {
	EveryS    int
	StartS    int
	EndS      int
	Fmt       string
	Quality   int
	MaxFrames int
	ZipName   string
	PushToS3  bool
}

// Params are normalized extraction parameters, safe to hand to the
// extractor. Produced by RawParams.Normalize.
type Params struct {
	// EveryS is the sampling interval in whole seconds, always >= 1.
	EveryS int
	// StartS is the seek offset in seconds, >= 0.
	StartS int
	// DurationS limits decoding to this many seconds after the seek.
	// Zero means decode to the end of the source.
	DurationS int
	// Format is the validated output image format.
	Format Format
	// Quality is the caller-facing 0-100 quality value.
	Quality int
	// MaxFrames caps the number of emitted frames.
	MaxFrames int
	// ZipName is the sanitized archive filename, always ending in ".zip".
	ZipName string
	// PushToS3 requests archive offload to object storage.
	PushToS3 bool
}

var zipNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeZipName replaces every character outside [A-Za-z0-9._-] with an
// underscore and enforces a ".zip" suffix. Empty input falls back to
// DefaultZipName.
func SanitizeZipName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultZipName
	}
	name = zipNameUnsafe.ReplaceAllString(name, "_")
	if !strings.HasSuffix(strings.ToLower(name), ".zip") {
		name += ".zip"
	}
	return name
}

// Normalize validates and clamps raw parameters into Params.
// Validation failures are returned as *Error before any subprocess or
// filesystem work happens.
func (r RawParams) Normalize() (Params, error) {
	if r.Quality < 1 || r.Quality > 100 {
		return Params{}, NewError(KindInvalidQuality,
			fmt.Sprintf("quality must be between 1 and 100, got %d", r.Quality))
	}

	format, err := ParseFormat(r.Fmt)
	if err != nil {
		return Params{}, err
	}

	p := Params{
		EveryS:    r.EveryS,
		StartS:    r.StartS,
		Format:    format,
		Quality:   r.Quality,
		MaxFrames: r.MaxFrames,
		ZipName:   SanitizeZipName(r.ZipName),
		PushToS3:  r.PushToS3,
	}

	if p.EveryS < 1 {
		p.EveryS = 1
	}
	if p.StartS < 0 {
		p.StartS = 0
	}
	if p.MaxFrames <= 0 {
		p.MaxFrames = DefaultMaxFrames
	}

	// An end before the start is silently ignored: the full remaining
	// duration is decoded. Callers that care must send end_s > start_s.
	if r.EndS > 0 && r.EndS > p.StartS {
		p.DurationS = r.EndS - p.StartS
	}

	return p, nil
}
