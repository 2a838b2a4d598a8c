// Package ocr defines the OCR engine abstraction and the adapters behind it.
//
// Three engines are supported:
//   - Tesseract via the gosseract binding (local, CGO)
//   - PaddleOCR via the companion HTTP microservice
//   - Google Cloud Vision API (document text detection)
//
// Every engine produces the same shape of output: a list of detected text
// items with pixel bounding boxes and confidences in [0,1], suitable for
// multi-engine fusion. The package also provides a Document AI backed
// plain-text source for PDF documents.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Engine names as reported in Result.Engine. The set is open: fusion treats
// the engine name as an opaque tag, so a new engine only needs an entry in
// the bias configuration.
const (
	EngineTesseract = "tesseract"
	EnginePaddle    = "paddle"
	EngineVision    = "vision"
)

// BBox is an axis-aligned rectangle in image pixel coordinates, x0 <= x1 and
// y0 <= y1 for well-formed boxes. It marshals to the wire form
// [x0, y0, x1, y1] used by the OCR services.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// MarshalJSON encodes the box as a 4-element array.
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X0, b.Y0, b.X1, b.Y1})
}

// UnmarshalJSON decodes the box from a 4-element array.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("bbox must be a [x0,y0,x1,y1] array: %w", err)
	}
	b.X0, b.Y0, b.X1, b.Y1 = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// Item is one detected text fragment from one engine.
type Item struct {
	// Text is the recognized string, not yet trimmed or normalized.
	Text string `json:"text"`

	// Confidence is the detection confidence in the engine's native range.
	// Adapters in this package scale it to [0,1]; fusion clamps defensively.
	Confidence float64 `json:"confidence"`

	// BBox is the bounding box of the fragment in image pixel coordinates.
	BBox BBox `json:"bbox"`

	// Engine names the source engine. Fused items carry a derived
	// "<engine>_primary" tag instead.
	Engine string `json:"engine"`
}

// Result is one engine's complete output for one image.
type Result struct {
	Engine string `json:"engine"`
	Items  []Item `json:"items"`

	// TimeMS is the engine-reported processing time. Informational only.
	TimeMS int64 `json:"time_ms"`
}

// Engine recognizes text in an image and returns one Result per call.
type Engine interface {
	// Name returns the engine tag used in Result.Engine.
	Name() string

	// Recognize runs text detection on an encoded image (PNG or JPEG).
	Recognize(ctx context.Context, image []byte) (*Result, error)
}

// TextSource extracts the plain text of a document, for callers that want to
// feed the field extractor directly without going through item-level fusion.
type TextSource interface {
	ExtractText(ctx context.Context, doc io.Reader) (string, error)
}
