package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"multas/internal/logger"
)

// DefaultPaddleTimeout bounds a single PaddleOCR request.
const DefaultPaddleTimeout = 10 * time.Second

// paddleResponse is the wire format of the PaddleOCR microservice:
// {"engine":"paddleocr","time_ms":N,"results":[{text,confidence,bbox},...]}
type paddleResponse struct {
	Engine  string `json:"engine"`
	TimeMS  int64  `json:"time_ms"`
	Results []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		BBox       BBox    `json:"bbox"`
	} `json:"results"`
}

// PaddleEngine talks to the PaddleOCR HTTP microservice. The service accepts
// a raw image body and returns line-level detections with bounding boxes.
type PaddleEngine struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewPaddleEngine creates the engine for the given service URL.
func NewPaddleEngine(url string) *PaddleEngine {
	return &PaddleEngine{
		url:    url,
		client: &http.Client{Timeout: DefaultPaddleTimeout},
		log:    logger.WithEngine(EnginePaddle),
	}
}

// NewPaddleEngineWithClient creates the engine with an explicit HTTP client
// (for testing).
func NewPaddleEngineWithClient(url string, client *http.Client) *PaddleEngine {
	return &PaddleEngine{
		url:    url,
		client: client,
		log:    logger.WithEngine(EnginePaddle),
	}
}

// Name returns the engine tag.
func (p *PaddleEngine) Name() string { return EnginePaddle }

// Recognize posts the image to the PaddleOCR service and converts its
// response into engine items.
func (p *PaddleEngine) Recognize(ctx context.Context, image []byte) (*Result, error) {
	const op = "Recognize"

	if len(image) == 0 {
		return nil, WrapEngineError(EnginePaddle, op, ErrEmptyImage, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(image))
	if err != nil {
		return nil, WrapEngineError(EnginePaddle, op, err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, WrapEngineError(EnginePaddle, op, ErrEngineUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, WrapEngineError(EnginePaddle, op, ErrRecognitionFailed,
			fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	var payload paddleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, WrapEngineError(EnginePaddle, op, ErrRecognitionFailed,
			fmt.Sprintf("invalid response body: %v", err))
	}

	items := make([]Item, 0, len(payload.Results))
	for _, r := range payload.Results {
		items = append(items, Item{
			Text:       r.Text,
			Confidence: r.Confidence,
			BBox:       r.BBox,
			Engine:     EnginePaddle,
		})
	}

	p.log.Debug().
		Int("items", len(items)).
		Int64("service_time_ms", payload.TimeMS).
		Msg("PaddleOCR recognition completed")

	return &Result{
		Engine: EnginePaddle,
		Items:  items,
		TimeMS: payload.TimeMS,
	}, nil
}
