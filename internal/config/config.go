package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"multas/internal/logger"
)

type Config struct {
	// PaddleOCR microservice
	PaddleOCRURL string

	// Tesseract Configuration
	TesseractLanguages []string

	// Fusion Configuration
	IoUThreshold float64
	EngineBias   map[string]float64

	// Review Configuration
	ReviewThreshold float64

	// OpenAI Configuration (optional, enables --complete)
	OpenAIAPIKey string
	OpenAIModel  string

	// Google Cloud Configuration (optional, enables vision engine and
	// Document AI text extraction)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		PaddleOCRURL:          getEnv("PADDLE_OCR_URL", "http://localhost:8866/ocr"),
		TesseractLanguages:    splitList(getEnv("TESSERACT_LANGUAGES", "por")),
		IoUThreshold:          getEnvFloat("IOU_THRESHOLD", 0.6),
		EngineBias:            parseBias(getEnv("ENGINE_BIAS", "tesseract=1.0,paddle=1.1")),
		ReviewThreshold:       getEnvFloat("REVIEW_THRESHOLD", 0.75),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", ""),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "eu"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("IOU_THRESHOLD must be in (0, 1], got %v", c.IoUThreshold)
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("REVIEW_THRESHOLD must be in [0, 1], got %v", c.ReviewThreshold)
	}
	for engine, bias := range c.EngineBias {
		if bias <= 0 {
			return fmt.Errorf("ENGINE_BIAS for %q must be positive, got %v", engine, bias)
		}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// parseBias parses an engine bias list of the form "paddle=1.1,tesseract=1.0".
// Malformed entries are skipped; unknown engines are allowed (the engine set
// is open).
func parseBias(raw string) map[string]float64 {
	bias := make(map[string]float64)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		bias[strings.TrimSpace(name)] = v
	}
	return bias
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}
