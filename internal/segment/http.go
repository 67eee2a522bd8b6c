package segment

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultHTTPTimeout bounds a single remote segmentation call.
const DefaultHTTPTimeout = 30 * time.Second

// maxResponseBytes caps the size of a segmentation response.
const maxResponseBytes = 64 << 20

// HTTPSegmenter posts the image to a remote service.
//
// The request body is the PNG with Content-Type image/png. The service must
// answer 200 with the segmented PNG as the body.
type HTTPSegmenter struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPSegmenter creates a segmenter for endpoint. A timeout <= 0 selects
// DefaultHTTPTimeout.
func NewHTTPSegmenter(endpoint string, timeout time.Duration) *HTTPSegmenter {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPSegmenter{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Segment implements Segmenter.
func (h *HTTPSegmenter) Segment(ctx context.Context, image []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build segmentation request")
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "image/png")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "segmentation request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("segmentation service returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read segmentation response")
	}
	if len(body) > maxResponseBytes {
		return nil, errors.Errorf("segmentation response exceeds %d bytes", maxResponseBytes)
	}
	if len(body) == 0 {
		return nil, errors.New("segmentation service returned an empty body")
	}
	return body, nil
}
