package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"multas/internal/logger"
)

const (
	// MaxDocumentSizeBytes is the maximum document size for synchronous
	// Document AI processing (20MB).
	MaxDocumentSizeBytes = 20 * 1024 * 1024

	documentTextTimeout = 60 * time.Second
)

// DocumentTextConfig holds configuration for the Document AI text source.
type DocumentTextConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g. "us", "eu"). Should match
	// where the processor was created.
	Location string

	// ProcessorID is the Document AI OCR processor ID.
	ProcessorID string
}

// DocumentTextSource extracts the plain text of a PDF ticket through Google
// Document AI, for the extraction path that skips item-level fusion.
type DocumentTextSource struct {
	client *documentai.DocumentProcessorClient
	config DocumentTextConfig
	log    zerolog.Logger
}

// NewDocumentTextSource creates the source with credentials from the
// environment. Requires GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID;
// GOOGLE_CLOUD_LOCATION defaults to "eu".
func NewDocumentTextSource(ctx context.Context) (*DocumentTextSource, error) {
	const op = "NewDocumentTextSource"

	config := DocumentTextConfig{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
	}
	if config.ProjectID == "" {
		return nil, WrapEngineError("documentai", op, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required"), "")
	}
	if config.ProcessorID == "" {
		return nil, WrapEngineError("documentai", op, fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required"), "")
	}
	if config.Location == "" {
		config.Location = "eu"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapEngineError("documentai", op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapEngineError("documentai", op, err, fmt.Sprintf("failed to create Document AI client for location %s", config.Location))
	}

	return NewDocumentTextSourceWithClient(config, client), nil
}

// NewDocumentTextSourceWithClient creates the source with an explicit config
// and client (for testing).
func NewDocumentTextSourceWithClient(config DocumentTextConfig, client *documentai.DocumentProcessorClient) *DocumentTextSource {
	return &DocumentTextSource{
		client: client,
		config: config,
		log:    logger.WithComponent("document-text"),
	}
}

// ExtractText runs the Document AI OCR processor on a PDF and returns its
// full text in reading order.
func (s *DocumentTextSource) ExtractText(ctx context.Context, doc io.Reader) (string, error) {
	const op = "ExtractText"

	pdfBytes, err := io.ReadAll(doc)
	if err != nil {
		return "", WrapEngineError("documentai", op, err, "failed to read document data")
	}
	if len(pdfBytes) > MaxDocumentSizeBytes {
		return "", WrapEngineError("documentai", op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return "", WrapEngineError("documentai", op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, documentTextTimeout)
	defer cancel()

	processorName := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		s.config.ProjectID, s.config.Location, s.config.ProcessorID)

	resp, err := s.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return "", WrapEngineError("documentai", op, err, "Document AI processing failed")
	}
	if resp.Document == nil || strings.TrimSpace(resp.Document.Text) == "" {
		return "", WrapEngineError("documentai", op, ErrEmptyDocument, "")
	}

	s.log.Debug().
		Int("text_length", len(resp.Document.Text)).
		Msg("Document text extraction completed")

	return resp.Document.Text, nil
}

// Close closes the underlying Document AI client.
func (s *DocumentTextSource) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
