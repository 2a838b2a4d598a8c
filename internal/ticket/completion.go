package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"multas/internal/logger"
	"multas/pkg/models"
)

// CompletionConfig configures the LLM-backed field completion service.
type CompletionConfig struct {
	Model       string  // e.g. gpt-4o-mini, gpt-3.5-turbo
	Temperature float32 // sampling temperature, keep low for extraction
	MaxRetries  int     // attempts before giving up
}

// CompletionService fills ticket fields the pattern extractor could not find
// by asking an LLM to read the raw document text. Pattern-extracted values
// are never overwritten; only empty fields are completed.
type CompletionService struct {
	client *openai.Client
	config CompletionConfig
	log    zerolog.Logger
}

// chatResponse is the structured JSON answer requested from the model.
// Confidence arrives as a string because models are inconsistent about
// emitting bare numbers.
type chatResponse struct {
	DriverName string `json:"driver_name,omitempty"`
	Plate      string `json:"plate,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Location   string `json:"location,omitempty"`
	Infraction string `json:"infraction,omitempty"`
	Confidence string `json:"confidence,omitempty"`
}

// NewCompletionService creates the service with configuration from the
// environment. OPENAI_API_KEY is required; OPENAI_MODEL and
// OPENAI_TEMPERATURE are optional.
func NewCompletionService() (*CompletionService, error) {
	const op = "NewCompletionService"

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%s: OPENAI_API_KEY environment variable is required", op)
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	temperature := float32(0.1)
	if raw := os.Getenv("OPENAI_TEMPERATURE"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 32); err == nil {
			temperature = float32(v)
		}
	}

	return NewCompletionServiceWithClient(openai.NewClient(apiKey), CompletionConfig{
		Model:       model,
		Temperature: temperature,
		MaxRetries:  3,
	}), nil
}

// NewCompletionServiceWithClient creates the service with an explicit client
// and configuration (for testing).
func NewCompletionServiceWithClient(client *openai.Client, config CompletionConfig) *CompletionService {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &CompletionService{
		client: client,
		config: config,
		log:    logger.WithComponent("ticket-completion"),
	}
}

// Complete fills the missing fields of an extraction result from the raw
// document text. It returns the completed fields and a per-field confidence
// map covering the fields the model supplied. Fields already present are
// left untouched and do not appear in the confidence map.
func (s *CompletionService) Complete(ctx context.Context, fields models.TicketFields, text string) (models.TicketFields, map[string]float64, error) {
	const op = "Complete"

	missing := fields.Missing()
	if len(missing) == 0 {
		return fields, nil, nil
	}

	s.log.Debug().
		Strs("missing", missing).
		Int("text_length", len(text)).
		Msg("Requesting field completion")

	var resp chatResponse
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		resp, lastErr = s.ask(ctx, missing, text)
		if lastErr == nil {
			break
		}
		s.log.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Msg("Field completion attempt failed")
	}
	if lastErr != nil {
		return fields, nil, fmt.Errorf("%s: %w", op, lastErr)
	}

	confidence := parseConfidence(resp.Confidence)
	filled := make(map[string]float64)

	fill := func(name string, dst *string, value string) {
		if *dst != "" || value == "" {
			return
		}
		*dst = value
		filled[name] = confidence
	}

	fill("driver_name", &fields.DriverName, strings.TrimSpace(resp.DriverName))
	fill("plate", &fields.Plate, NormalizePlate(resp.Plate))
	fill("date", &fields.Date, extractDate(normalizeText(resp.Date)))
	fill("time", &fields.Time, extractTime(normalizeText(resp.Time)))
	fill("location", &fields.Location, strings.TrimSpace(resp.Location))
	fill("infraction", &fields.Infraction, strings.TrimSpace(resp.Infraction))

	s.log.Info().
		Int("requested", len(missing)).
		Int("filled", len(filled)).
		Float64("confidence", confidence).
		Msg("Field completion finished")

	return fields, filled, nil
}

func (s *CompletionService) ask(ctx context.Context, missing []string, text string) (chatResponse, error) {
	prompt := fmt.Sprintf(`You are reading the OCR text of a Portuguese traffic ticket (auto de contraordenação).
Extract ONLY the following fields, which automated pattern matching could not find: %s.

Respond with a single JSON object using these keys where found:
driver_name, plate (format XX-XX-XX), date (format DD-MM-YYYY), time (format HH:MM), location, infraction.
Also include "confidence": your overall confidence from 0.0 to 1.0 as a string.
Omit any field you cannot find. Do not guess.

Ticket text:
%s`, strings.Join(missing, ", "), text)

	result, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return chatResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(result.Choices) == 0 {
		return chatResponse{}, fmt.Errorf("chat completion returned no choices")
	}

	var resp chatResponse
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &resp); err != nil {
		return chatResponse{}, fmt.Errorf("invalid completion JSON: %w", err)
	}
	return resp, nil
}

// parseConfidence converts the model's confidence string to a float,
// defaulting to 0.5 so unparseable answers still land below the review
// threshold.
func parseConfidence(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 || v > 1 {
		return 0.5
	}
	return v
}
