package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"multas/internal/config"
	"multas/internal/logger"
	"multas/internal/ocr"
	"multas/internal/ticket"
	"multas/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [text-file]",
	Short: "Extract ticket fields from free-form text",
	Long: `Scan the text of a traffic ticket and extract the structured fields
needed for a contestation letter: license plate, date, time, location,
infraction type and driver name.

Extraction is best effort: a field that cannot be found is simply absent
from the output, to be filled in manually. Pass "-" to read from stdin.

With --pdf the input file is treated as a PDF and its text is extracted
through Google Document AI first. That path requires:
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
  GOOGLE_CLOUD_PROJECT
  DOCUMENT_AI_PROCESSOR_ID

With --complete, fields still missing after pattern extraction are filled
by ChatGPT from the raw text (requires OPENAI_API_KEY).`,
	Example: `  # Extract fields from OCR text
  multas extract ticket.txt

  # From stdin
  cat ticket.txt | multas extract -

  # From a PDF through Document AI, completing gaps with ChatGPT
  multas extract auto.pdf --pdf --complete -o fields.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// extractOutput is the JSON output structure of the extract and ticket
// commands.
type extractOutput struct {
	Fields      models.TicketFields `json:"fields"`
	Missing     []string            `json:"missing,omitempty"`
	NeedsReview []string            `json:"needs_review,omitempty"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("pdf", false, "Treat input as PDF and extract text via Document AI")
	extractCmd.Flags().Bool("complete", false, "Fill missing fields using ChatGPT")
	extractCmd.Flags().Int("timeout", 120, "Processing timeout in seconds (network paths only)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	fromPDF, _ := cmd.Flags().GetBool("pdf")
	complete, _ := cmd.Flags().GetBool("complete")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	inputPath := args[0]

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	text, err := loadInputText(ctx, inputPath, fromPDF, log)
	if err != nil {
		return err
	}

	fields := ticket.Extract(text)
	confidence := make(map[string]float64)
	// Pattern matches carry no per-field score; treat them as trusted and
	// let review flagging focus on LLM-completed values.
	for _, name := range fieldNames(fields) {
		confidence[name] = 1
	}

	if complete {
		fields, confidence, err = completeFields(ctx, fields, text, confidence, log)
		if err != nil {
			return err
		}
	}

	return outputFields(fields, confidence, outputPath, log)
}

// loadInputText reads the extractor input, through Document AI for PDFs.
func loadInputText(ctx context.Context, inputPath string, fromPDF bool, log zerolog.Logger) (string, error) {
	if fromPDF {
		file, err := os.Open(inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to open PDF file: %w", err)
		}
		defer file.Close()

		source, err := ocr.NewDocumentTextSource(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Document AI text source")
			return "", err
		}
		defer source.Close()

		text, err := source.ExtractText(ctx, file)
		if err != nil {
			log.Error().Err(err).Str("file", inputPath).Msg("Document text extraction failed")
			return "", err
		}
		return text, nil
	}

	if inputPath == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

// completeFields runs the LLM completion service over still-missing fields.
func completeFields(ctx context.Context, fields models.TicketFields, text string, confidence map[string]float64, log zerolog.Logger) (models.TicketFields, map[string]float64, error) {
	if len(fields.Missing()) == 0 {
		return fields, confidence, nil
	}

	service, err := ticket.NewCompletionService()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create completion service")
		return fields, nil, err
	}

	completed, filled, err := service.Complete(ctx, fields, text)
	if err != nil {
		log.Error().Err(err).Msg("Field completion failed")
		return fields, nil, err
	}
	for name, conf := range filled {
		confidence[name] = conf
	}
	return completed, confidence, nil
}

// outputFields renders the final extraction result with review flags.
func outputFields(fields models.TicketFields, confidence map[string]float64, outputPath string, log zerolog.Logger) error {
	threshold := ticket.DefaultReviewThreshold
	if cfg, err := config.Load(); err == nil {
		threshold = cfg.ReviewThreshold
	}

	out := extractOutput{
		Fields:      fields,
		Missing:     fields.Missing(),
		NeedsReview: ticket.FlagForReview(fields, confidence, threshold),
	}

	log.Info().
		Int("extracted", 6-len(out.Missing)).
		Int("missing", len(out.Missing)).
		Strs("needs_review", out.NeedsReview).
		Msg("Extraction completed")

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	return writeOutput(append(data, '\n'), outputPath, log)
}

// fieldNames returns the JSON names of the fields present in the result.
func fieldNames(fields models.TicketFields) []string {
	all := []struct {
		name  string
		value string
	}{
		{"driver_name", fields.DriverName},
		{"plate", fields.Plate},
		{"date", fields.Date},
		{"time", fields.Time},
		{"location", fields.Location},
		{"infraction", fields.Infraction},
	}
	var names []string
	for _, f := range all {
		if f.value != "" {
			names = append(names, f.name)
		}
	}
	return names
}

// signalContext creates a context with timeout and interrupt handling.
func signalContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// engineList parses a comma-separated engine list flag.
func engineList(raw string) []string {
	var engines []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(strings.ToLower(name)); name != "" {
			engines = append(engines, name)
		}
	}
	return engines
}
