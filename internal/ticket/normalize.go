package ticket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	crlf       = strings.NewReplacer("\r\n", "\n")
	whitespace = regexp.MustCompile(`\s+`)

	plateShape     = regexp.MustCompile(`^[A-Z0-9]{2}-[A-Z0-9]{2}-[A-Z0-9]{2}$`)
	plateSeparator = regexp.MustCompile(`[\s.-]+`)
)

// normalizeText prepares raw OCR text for pattern matching: line endings are
// unified, whitespace runs collapse to single spaces, and the result is
// trimmed.
func normalizeText(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(crlf.Replace(text), " "))
}

// NormalizePlate normalizes a plate candidate to the canonical XX-XX-XX
// uppercase form. Separators read by OCR as spaces, dots or stray hyphens are
// discarded before regrouping. Inputs too short to be a plate are returned
// uppercased as-is.
func NormalizePlate(plate string) string {
	if plate == "" {
		return ""
	}

	normalized := strings.ToUpper(strings.TrimSpace(plate))
	if plateShape.MatchString(normalized) {
		return normalized
	}

	normalized = plateSeparator.ReplaceAllString(normalized, "")
	if utf8.RuneCountInString(normalized) >= 6 {
		return normalized[0:2] + "-" + normalized[2:4] + "-" + normalized[4:6]
	}
	return normalized
}

// formatDate builds the canonical DD-MM-YYYY form from day, month and
// four-digit year strings.
func formatDate(day, month, year string) string {
	return fmt.Sprintf("%s-%s-%s", padTwo(day), padTwo(month), year)
}

// expandYear resolves a two-digit year with pivot 50: values below 50 are
// 20YY, the rest 19YY.
func expandYear(year string) string {
	n, err := strconv.Atoi(year)
	if err != nil {
		return year
	}
	if n < 50 {
		return strconv.Itoa(2000 + n)
	}
	return strconv.Itoa(1900 + n)
}

// formatTime builds the canonical zero-padded HH:MM form.
func formatTime(hours, minutes string) string {
	return padTwo(hours) + ":" + padTwo(minutes)
}

func padTwo(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%02d", n)
}

// window returns up to n bytes of text starting at the byte offset, clipped
// to rune boundaries so a multi-byte character is never split.
func window(text string, start, n int) string {
	if start < 0 {
		start = 0
	}
	if start >= len(text) {
		return ""
	}
	end := start + n
	if end > len(text) {
		end = len(text)
	}
	for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[start:end]
}
