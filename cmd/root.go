package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"multas/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "multas",
	Short: "Multas CLI - OCR fusion and field extraction for Portuguese traffic tickets",
	Long: `Multas CLI processes scanned Portuguese traffic tickets
(autos de contraordenação).

It fuses the text detections of multiple OCR engines (Tesseract, PaddleOCR,
Google Cloud Vision) into one deduplicated, confidence-ranked result, and
extracts the structured fields needed for a contestation letter: license
plate, date, time, location, infraction type and driver name.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Multas CLI executed")

		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
