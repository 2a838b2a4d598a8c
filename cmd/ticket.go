package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"multas/internal/config"
	"multas/internal/fusion"
	"multas/internal/logger"
	"multas/internal/ocr"
	"multas/internal/ticket"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket [image-file]",
	Short: "Run the full pipeline: OCR engines, fusion, field extraction",
	Long: `Process a scanned ticket image end to end: run the selected OCR
engines, fuse their detections into one deduplicated list, and extract the
structured contestation fields from the combined text.

Engines:
  tesseract  local Tesseract (requires the tesseract library and the
             Portuguese language pack)
  paddle     PaddleOCR microservice (PADDLE_OCR_URL, default
             http://localhost:8866/ocr)
  vision     Google Cloud Vision (GOOGLE_APPLICATION_CREDENTIALS or
             GOOGLE_CREDENTIALS)

An engine failure is tolerated as long as at least one engine succeeds;
fusion simply works with the detections it gets.`,
	Example: `  # Default engine pair
  multas ticket auto.jpg

  # All three engines, ChatGPT completion for gaps
  multas ticket auto.jpg --engines tesseract,paddle,vision --complete

  # Save fields to a file
  multas ticket auto.jpg -o fields.json`,
	Args: cobra.ExactArgs(1),
	RunE: runTicket,
}

func init() {
	rootCmd.AddCommand(ticketCmd)

	ticketCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ticketCmd.Flags().String("engines", "tesseract,paddle", "Comma-separated engine list")
	ticketCmd.Flags().Float64("iou", 0, "IoU merge threshold (default from IOU_THRESHOLD env, 0.6)")
	ticketCmd.Flags().StringSlice("bias", nil, "Per-engine confidence bias, e.g. paddle=1.1 (repeatable)")
	ticketCmd.Flags().Bool("complete", false, "Fill missing fields using ChatGPT")
	ticketCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runTicket(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ticket")

	outputPath, _ := cmd.Flags().GetString("output")
	enginesFlag, _ := cmd.Flags().GetString("engines")
	complete, _ := cmd.Flags().GetBool("complete")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	opts, err := fusionOptions(cmd)
	if err != nil {
		return err
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image file: %w", err)
	}

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	engines, err := buildEngines(ctx, engineList(enginesFlag))
	if err != nil {
		return err
	}

	log.Info().
		Str("file", imagePath).
		Int("engines", len(engines)).
		Msg("Starting ticket processing")

	results := runEngines(ctx, engines, image, log)
	if len(results) == 0 {
		return fmt.Errorf("all OCR engines failed for %s", imagePath)
	}

	fused := fusion.Fuse(results, opts)
	text := fusion.JoinText(fused)

	log.Info().
		Int("succeeded_engines", len(results)).
		Int("fused_items", len(fused)).
		Int("text_length", len(text)).
		Msg("Fusion completed")

	fields := ticket.Extract(text)

	// Field confidence follows the fused detections: a field read from
	// low-agreement regions should face mandatory human review.
	confidence := make(map[string]float64)
	overall := overallConfidence(fused)
	for _, name := range fieldNames(fields) {
		confidence[name] = overall
	}

	if complete {
		fields, confidence, err = completeFields(ctx, fields, text, confidence, log)
		if err != nil {
			return err
		}
	}

	return outputFields(fields, confidence, outputPath, log)
}

// buildEngines constructs the requested engine adapters.
func buildEngines(ctx context.Context, names []string) ([]ocr.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	engines := make([]ocr.Engine, 0, len(names))
	for _, name := range names {
		switch name {
		case ocr.EngineTesseract:
			engines = append(engines, ocr.NewTesseractEngine(cfg.TesseractLanguages...))
		case ocr.EnginePaddle:
			engines = append(engines, ocr.NewPaddleEngine(cfg.PaddleOCRURL))
		case ocr.EngineVision:
			engine, err := ocr.NewVisionEngine(ctx)
			if err != nil {
				return nil, err
			}
			engines = append(engines, engine)
		default:
			return nil, fmt.Errorf("unknown OCR engine %q (expected tesseract, paddle or vision)", name)
		}
	}
	if len(engines) == 0 {
		return nil, fmt.Errorf("no OCR engines selected")
	}
	return engines, nil
}

// runEngines runs every engine on the image, tolerating individual failures.
func runEngines(ctx context.Context, engines []ocr.Engine, image []byte, log zerolog.Logger) []ocr.Result {
	var results []ocr.Result
	for _, engine := range engines {
		result, err := engine.Recognize(ctx, image)
		if err != nil {
			log.Warn().
				Err(err).
				Str("engine", engine.Name()).
				Msg("OCR engine failed, continuing without it")
			continue
		}
		log.Debug().
			Str("engine", engine.Name()).
			Int("items", len(result.Items)).
			Int64("time_ms", result.TimeMS).
			Msg("OCR engine completed")
		results = append(results, *result)
	}
	return results
}

// overallConfidence averages fused item confidences, clamped to [0,1].
func overallConfidence(items []ocr.Item) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		c := item.Confidence
		if c > 1 {
			c = 1
		}
		if c < 0 {
			c = 0
		}
		sum += c
	}
	return sum / float64(len(items))
}
