package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	"github.com/ironsheep/image-edit-mcp/internal/form"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/pipeline"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const multipartMemory = 32 << 20

// Handler serves the editing endpoints.
type Handler struct {
	pipeline  *pipeline.Pipeline
	logger    zerolog.Logger
	maxUpload int64
}

// NewHandler creates a new handler.
func NewHandler(p *pipeline.Pipeline, logger zerolog.Logger, maxUpload int64) *Handler {
	return &Handler{
		pipeline:  p,
		logger:    logger,
		maxUpload: maxUpload,
	}
}

// UnifyResponseDTO is the POST /api/unify response body.
type UnifyResponseDTO struct {
	BatchID string   `json:"batchId"`
	Images  []string `json:"images"`

	// Errors is index-aligned with Images and only present when some
	// images failed under the isolate failure policy.
	Errors []string `json:"errors,omitempty"`
}

// Unify handles POST /api/unify.
func (h *Handler) Unify(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "upload too large", err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, "form parse error", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	inputs, err := readImages(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read uploaded images", err.Error())
		return
	}
	if len(inputs) == 0 {
		h.writeError(w, http.StatusBadRequest, "no images uploaded", "")
		return
	}

	params := form.FromValues(r.MultipartForm.Value).Params()
	batchID := uuid.NewString()
	log := h.logger.With().Str("batch_id", batchID).Logger()
	log.Info().Int("images", len(inputs)).Msg("processing upload")

	result, err := h.pipeline.Run(r.Context(), inputs, params)
	if err != nil {
		status := statusFor(err)
		log.Error().Err(err).Int("status", status).Msg("batch failed")
		h.writeError(w, status, "image processing error", err.Error())
		return
	}

	resp := UnifyResponseDTO{
		BatchID: batchID,
		Images:  result.DataURLs(),
	}
	if result.Failed() > 0 {
		resp.Errors = make([]string, len(result.Images))
		for i, img := range result.Images {
			if !img.OK() {
				resp.Errors[i] = img.Err.Error()
			}
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// readImages reads every file part named "images", in upload order.
func readImages(r *http.Request) ([][]byte, error) {
	files := r.MultipartForm.File[form.FieldImages]
	inputs := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		inputs = append(inputs, data)
	}
	return inputs, nil
}

// OverlaySVG handles GET /api/overlay.svg.
func (h *Handler) OverlaySVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width := intParam(q.Get(form.FieldWidth), form.DefaultSize)
	height := intParam(q.Get(form.FieldHeight), form.DefaultSize)
	if width <= 0 || height <= 0 || width > pipeline.MaxDimension || height > pipeline.MaxDimension {
		h.writeError(w, http.StatusBadRequest, "invalid canvas size", fmt.Sprintf("%dx%d", width, height))
		return
	}

	spec := form.FromValues(q).Params().Text
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(edit.OverlaySVG(width, height, spec)))
}

func intParam(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrorTypeConfiguration):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrorTypeDecode):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	h.writeJSON(w, status, resp)
}
