package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"multas/internal/config"
	"multas/internal/fusion"
	"multas/internal/logger"
	"multas/internal/ocr"
)

var fuseCmd = &cobra.Command{
	Use:   "fuse [result-file...]",
	Short: "Fuse OCR results from multiple engines into one list",
	Long: `Fuse per-engine OCR result files into a single deduplicated,
reading-order sorted list of text detections.

Each input file holds one engine's output as JSON:

  {"engine": "tesseract", "time_ms": 512,
   "items": [{"text": "...", "confidence": 0.9, "bbox": [x0,y0,x1,y1],
              "engine": "tesseract"}]}

Overlapping detections (IoU at or above the threshold) merge into one item:
the highest-confidence detection supplies the text, the combined confidence
is the harmonic mean across the cluster, and the bounding box is the union.
Per-engine bias multipliers are applied to confidence before comparison.`,
	Example: `  # Fuse two engine outputs
  multas fuse tesseract.json paddle.json

  # Tighter merging and a custom engine bias
  multas fuse tesseract.json paddle.json --iou 0.7 --bias paddle=1.2

  # Emit concatenated text instead of JSON items
  multas fuse tesseract.json paddle.json --text`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFuse,
}

func init() {
	rootCmd.AddCommand(fuseCmd)

	fuseCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	fuseCmd.Flags().Float64("iou", 0, "IoU merge threshold (default from IOU_THRESHOLD env, 0.6)")
	fuseCmd.Flags().StringSlice("bias", nil, "Per-engine confidence bias, e.g. paddle=1.1 (repeatable)")
	fuseCmd.Flags().Bool("text", false, "Output concatenated text instead of JSON items")
}

func runFuse(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("fuse")

	outputPath, _ := cmd.Flags().GetString("output")
	textOutput, _ := cmd.Flags().GetBool("text")

	opts, err := fusionOptions(cmd)
	if err != nil {
		return err
	}

	results := make([]ocr.Result, 0, len(args))
	for _, path := range args {
		result, err := readResultFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to read result file")
			return err
		}
		log.Debug().
			Str("file", path).
			Str("engine", result.Engine).
			Int("items", len(result.Items)).
			Msg("Loaded engine result")
		results = append(results, *result)
	}

	fused := fusion.Fuse(results, opts)

	log.Info().
		Int("engines", len(results)).
		Int("fused_items", len(fused)).
		Msg("Fusion completed")

	var outputData []byte
	if textOutput {
		outputData = []byte(fusion.JoinText(fused) + "\n")
	} else {
		outputData, err = json.MarshalIndent(fused, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		outputData = append(outputData, '\n')
	}

	return writeOutput(outputData, outputPath, log)
}

// fusionOptions builds fusion options from environment config overridden by
// command flags.
func fusionOptions(cmd *cobra.Command) (*fusion.Options, error) {
	opts := fusion.DefaultOptions()

	if cfg, err := config.Load(); err == nil {
		opts.IoUThreshold = cfg.IoUThreshold
		for engine, bias := range cfg.EngineBias {
			opts.Bias[engine] = bias
		}
	}

	if iou, _ := cmd.Flags().GetFloat64("iou"); iou > 0 {
		if iou > 1 {
			return nil, fmt.Errorf("--iou must be in (0, 1], got %v", iou)
		}
		opts.IoUThreshold = iou
	}

	biasFlags, _ := cmd.Flags().GetStringSlice("bias")
	for _, entry := range biasFlags {
		engine, raw, found := strings.Cut(entry, "=")
		if !found || engine == "" {
			return nil, fmt.Errorf("invalid --bias entry %q, expected engine=value", entry)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			return nil, fmt.Errorf("--bias for %q must be a positive number, got %q", engine, raw)
		}
		opts.Bias[engine] = value
	}

	return opts, nil
}

func readResultFile(path string) (*ocr.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var result ocr.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid result JSON in %s: %w", path, err)
	}
	// Items sometimes arrive without their engine tag; backfill from the
	// result header so bias lookup works.
	for i := range result.Items {
		if result.Items[i].Engine == "" {
			result.Items[i].Engine = result.Engine
		}
	}
	return &result, nil
}
