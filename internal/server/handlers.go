package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/framegrab/framegrab-api/internal/frames"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to disk. Uploads larger than this are backed by temp files that
// net/http removes itself.
const multipartMemory = 32 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *frames.Service
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewHandlers creates a new Handlers instance. maxUploadBytes bounds the
// request body size; bodies beyond it fail with 413.
func NewHandlers(service *frames.Service, logger *slog.Logger, maxUploadBytes int64) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true})
}

// extractRequest is the resolved input union plus raw parameters for one
// extraction request.
type extractRequest struct {
	input frames.Input
	raw   frames.RawParams
	// closer releases the multipart upload file, if any.
	closer io.Closer
}

// ExtractFrames handles POST /extract_frames requests.
func (h *Handlers) ExtractFrames(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	req, err := h.parseExtractRequest(r)
	if err != nil {
		h.writeExtractError(w, err)
		return
	}
	if req.closer != nil {
		defer func() { _ = req.closer.Close() }()
	}

	params, err := req.raw.Normalize()
	if err != nil {
		h.writeExtractError(w, err)
		return
	}

	// Detached context: a client disconnect must not kill the subprocess
	// mid-extraction; the workspace is still cleaned up below.
	res, err := h.service.Extract(context.WithoutCancel(r.Context()), req.input, params)
	if err != nil {
		h.logger.Error("extraction failed",
			slog.String("error", err.Error()),
		)
		h.writeExtractError(w, err)
		return
	}
	defer func() { _ = res.Close() }()

	if res.URL != "" {
		writeJSON(w, http.StatusOK, ExtractOffloadResponse{
			URL:          res.URL,
			ZipName:      res.ZipName,
			FrameCount:   res.FrameCount,
			ArchiveBytes: res.ArchiveSize,
		})
		return
	}

	h.streamArchive(w, res)
}

// parseExtractRequest resolves the input union from one of the three
// sources, in priority order: multipart file upload, multipart URL field,
// JSON body. The JSON body is only consulted when the content type says so.
func (h *Handlers) parseExtractRequest(r *http.Request) (*extractRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return h.parseMultipart(r)
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return h.parseJSON(r)
	default:
		return nil, frames.NewError(frames.KindMissingInput,
			"send multipart/form-data with a file or youtube_url field, or an application/json body")
	}
}

func (h *Handlers) parseMultipart(r *http.Request) (*extractRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return nil, h.tooLargeError()
		}
		return nil, frames.WrapError(frames.KindMissingInput, "could not parse multipart form", err)
	}

	req := &extractRequest{
		raw: frames.RawParams{
			EveryS:    formInt(r, "every_s", frames.DefaultEveryS),
			StartS:    formInt(r, "start_s", 0),
			EndS:      formInt(r, "end_s", 0),
			Fmt:       r.FormValue("fmt"),
			Quality:   formInt(r, "quality", frames.DefaultQuality),
			MaxFrames: formInt(r, "max_frames", frames.DefaultMaxFrames),
			ZipName:   r.FormValue("zip_name"),
			PushToS3:  formBool(r, "push_to_s3"),
		},
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		req.input = frames.Input{
			Kind:     frames.InputUpload,
			Filename: header.Filename,
			Data:     file,
		}
		req.closer = file
		return req, nil
	}

	if url := strings.TrimSpace(r.FormValue("youtube_url")); url != "" {
		req.input = frames.Input{Kind: frames.InputRemoteURL, URL: url}
		return req, nil
	}

	return nil, frames.NewError(frames.KindMissingInput,
		"provide a file upload or a youtube_url field")
}

func (h *Handlers) parseJSON(r *http.Request) (*extractRequest, error) {
	var body ExtractJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if isBodyTooLarge(err) {
			return nil, h.tooLargeError()
		}
		return nil, frames.WrapError(frames.KindMissingInput, "invalid JSON body", err)
	}

	if err := h.validator.Struct(body); err != nil {
		return nil, jsonValidationError(err)
	}

	url := strings.TrimSpace(body.YouTubeURL)
	if url == "" {
		url = strings.TrimSpace(body.URL)
	}
	if url == "" {
		return nil, frames.NewError(frames.KindMissingInput,
			"provide a url or youtube_url field")
	}

	return &extractRequest{
		input: frames.Input{Kind: frames.InputRemoteURL, URL: url},
		raw: frames.RawParams{
			EveryS:    intOrDefault(body.IntervalSeconds, body.EveryS, frames.DefaultEveryS),
			StartS:    body.StartS,
			EndS:      body.EndS,
			Fmt:       body.Fmt,
			Quality:   intOrDefault(body.Quality, nil, frames.DefaultQuality),
			MaxFrames: intOrDefault(body.MaxFrames, nil, frames.DefaultMaxFrames),
			ZipName:   body.ZipName,
			PushToS3:  body.PushToS3,
		},
	}, nil
}

// streamArchive sends the finished ZIP as an attachment with its exact
// byte length.
func (h *Handlers) streamArchive(w http.ResponseWriter, res *frames.Result) {
	f, err := os.Open(res.ArchivePath)
	if err != nil {
		h.logger.Error("could not open archive for response",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not read archive", string(frames.KindArchiveIO))
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.ZipName))
	w.Header().Set("Content-Length", strconv.FormatInt(res.ArchiveSize, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		// Transport failure; the deferred Result.Close still removes the workspace.
		h.logger.Warn("archive stream interrupted",
			slog.String("error", err.Error()),
		)
	}
}

// writeExtractError maps a pipeline error onto the HTTP error taxonomy.
func (h *Handlers) writeExtractError(w http.ResponseWriter, err error) {
	var fe *frames.Error
	if errors.As(err, &fe) {
		writeError(w, statusForKind(fe.Kind), fe.Message, string(fe.Kind))
		return
	}
	writeError(w, http.StatusInternalServerError, "processing failed", "INTERNAL_ERROR")
}

func statusForKind(k frames.Kind) int {
	switch k {
	case frames.KindInvalidQuality, frames.KindUnsupportedFormat, frames.KindDownloadFailed, kindValidation:
		return http.StatusBadRequest
	case frames.KindMissingInput:
		return http.StatusUnprocessableEntity
	case frames.KindUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) tooLargeError() *frames.Error {
	return frames.NewError(frames.KindUploadTooLarge,
		fmt.Sprintf("request body exceeds %dMB limit", h.maxUploadBytes>>20))
}

// kindValidation covers structurally invalid JSON fields that have no
// dedicated taxonomy kind, such as a malformed URL.
const kindValidation frames.Kind = "VALIDATION_ERROR"

// jsonValidationError maps validator failures onto taxonomy kinds where one
// fits, falling back to a generic 400.
func jsonValidationError(err error) *frames.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			if ve.Field() == "Quality" {
				return frames.NewError(frames.KindInvalidQuality,
					"quality must be between 1 and 100")
			}
		}
	}
	return frames.WrapError(kindValidation, "invalid request body", err)
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	// multipart readers do not always wrap the MaxBytesError.
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

func formInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func intOrDefault(primary, alias *int, def int) int {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return def
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
