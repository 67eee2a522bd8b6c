package pipeline

import (
	"encoding/base64"

	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Output is one processed image. Exactly one of Data and Err is set.
type Output struct {
	Index  int
	Data   []byte
	Width  int
	Height int
	Err    error
}

// OK reports whether the image was processed successfully.
func (o Output) OK() bool {
	return o.Err == nil
}

// DataURL frames the encoded image as a base64 data URL. It returns the
// empty string for failed images.
func (o Output) DataURL() string {
	if !o.OK() {
		return ""
	}
	return "data:" + edit.MimeType + ";base64," + base64.StdEncoding.EncodeToString(o.Data)
}

// BatchResult holds one Output per input, in input order.
type BatchResult struct {
	Images []Output
}

// Failed counts images that carry an error.
func (r *BatchResult) Failed() int {
	n := 0
	for _, img := range r.Images {
		if !img.OK() {
			n++
		}
	}
	return n
}

// DataURLs returns the data URL for every image, index-aligned with the
// input. Failed images map to the empty string.
func (r *BatchResult) DataURLs() []string {
	urls := make([]string, len(r.Images))
	for i, img := range r.Images {
		urls[i] = img.DataURL()
	}
	return urls
}
