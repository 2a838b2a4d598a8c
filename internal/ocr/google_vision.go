package ocr

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"multas/internal/logger"
)

// VisionEngine runs Google Cloud Vision document text detection and reports
// word-level bounding boxes, making Vision usable as a fusion engine
// alongside Tesseract and PaddleOCR.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewVisionEngine creates the engine with credentials from the environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env, falling back to Application Default Credentials.
func NewVisionEngine(ctx context.Context) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapEngineError(EngineVision, op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapEngineError(EngineVision, op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapEngineError(EngineVision, op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &VisionEngine{
		client: client,
		log:    logger.WithEngine(EngineVision),
	}, nil
}

// NewVisionEngineWithClient creates the engine with an explicit client (for testing).
func NewVisionEngineWithClient(client *vision.ImageAnnotatorClient) *VisionEngine {
	return &VisionEngine{
		client: client,
		log:    logger.WithEngine(EngineVision),
	}
}

// Name returns the engine tag.
func (v *VisionEngine) Name() string { return EngineVision }

// Recognize runs document text detection and flattens the response into
// word-level items.
func (v *VisionEngine) Recognize(ctx context.Context, image []byte) (*Result, error) {
	const op = "Recognize"

	if len(image) == 0 {
		return nil, WrapEngineError(EngineVision, op, ErrEmptyImage, "")
	}

	start := time.Now()

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	})
	if err != nil {
		return nil, WrapEngineError(EngineVision, op, ErrRecognitionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapEngineError(EngineVision, op, ErrRecognitionFailed, "no response from Vision API")
	}

	imageResp := resp.Responses[0]
	if imageResp.Error != nil {
		return nil, WrapEngineError(EngineVision, op, ErrRecognitionFailed, fmt.Sprintf("Vision API error: %s", imageResp.Error.Message))
	}

	items := v.collectWords(imageResp.FullTextAnnotation)

	elapsed := time.Since(start)
	v.log.Debug().
		Int("items", len(items)).
		Dur("duration", elapsed).
		Msg("Vision recognition completed")

	return &Result{
		Engine: EngineVision,
		Items:  items,
		TimeMS: elapsed.Milliseconds(),
	}, nil
}

// collectWords walks the full text annotation down to word level, one item
// per word.
func (v *VisionEngine) collectWords(annotation *visionpb.TextAnnotation) []Item {
	var items []Item
	if annotation == nil {
		return items
	}

	for _, page := range annotation.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					var text strings.Builder
					for _, symbol := range word.Symbols {
						text.WriteString(symbol.Text)
					}
					if text.Len() == 0 {
						continue
					}
					items = append(items, Item{
						Text:       text.String(),
						Confidence: float64(word.Confidence),
						BBox:       boundingBoxOf(word.BoundingBox),
						Engine:     EngineVision,
					})
				}
			}
		}
	}
	return items
}

// boundingBoxOf converts a Vision bounding polygon into an axis-aligned box.
func boundingBoxOf(poly *visionpb.BoundingPoly) BBox {
	if poly == nil || len(poly.Vertices) == 0 {
		return BBox{}
	}

	box := BBox{
		X0: math.Inf(1), Y0: math.Inf(1),
		X1: math.Inf(-1), Y1: math.Inf(-1),
	}
	for _, v := range poly.Vertices {
		x, y := float64(v.X), float64(v.Y)
		box.X0 = math.Min(box.X0, x)
		box.Y0 = math.Min(box.Y0, y)
		box.X1 = math.Max(box.X1, x)
		box.Y1 = math.Max(box.Y1, y)
	}
	return box
}

// Close closes the underlying Vision client.
func (v *VisionEngine) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
