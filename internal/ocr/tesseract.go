package ocr

import (
	"context"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"multas/internal/logger"
)

// TesseractEngine runs a local Tesseract instance through the gosseract
// binding and reports word-level bounding boxes.
//
// A fresh gosseract client is created per Recognize call: the binding is not
// safe for concurrent use of one client, and per-call clients keep the
// engine stateless the same way the other adapters are.
type TesseractEngine struct {
	languages []string
	log       zerolog.Logger
}

// NewTesseractEngine creates the engine. With no languages it defaults to
// Portuguese, the language of the tickets this tool processes.
func NewTesseractEngine(languages ...string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"por"}
	}
	return &TesseractEngine{
		languages: languages,
		log:       logger.WithEngine(EngineTesseract),
	}
}

// Name returns the engine tag.
func (t *TesseractEngine) Name() string { return EngineTesseract }

// Recognize runs word-level text detection on an encoded image.
func (t *TesseractEngine) Recognize(ctx context.Context, image []byte) (*Result, error) {
	const op = "Recognize"

	if len(image) == 0 {
		return nil, WrapEngineError(EngineTesseract, op, ErrEmptyImage, "")
	}
	if err := ctx.Err(); err != nil {
		return nil, WrapEngineError(EngineTesseract, op, err, "context done before recognition")
	}

	start := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, WrapEngineError(EngineTesseract, op, ErrEngineUnavailable, err.Error())
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, WrapEngineError(EngineTesseract, op, err, "failed to load image")
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, WrapEngineError(EngineTesseract, op, ErrRecognitionFailed, err.Error())
	}

	items := make([]Item, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		items = append(items, Item{
			Text: box.Word,
			// Tesseract reports confidence in [0,100].
			Confidence: box.Confidence / 100,
			BBox: BBox{
				X0: float64(box.Box.Min.X),
				Y0: float64(box.Box.Min.Y),
				X1: float64(box.Box.Max.X),
				Y1: float64(box.Box.Max.Y),
			},
			Engine: EngineTesseract,
		})
	}

	elapsed := time.Since(start)
	t.log.Debug().
		Int("items", len(items)).
		Dur("duration", elapsed).
		Msg("Tesseract recognition completed")

	return &Result{
		Engine: EngineTesseract,
		Items:  items,
		TimeMS: elapsed.Milliseconds(),
	}, nil
}
