// Package ticket extracts structured fields from the free-form text of a
// Portuguese traffic ticket (auto de contraordenação).
//
// Extraction is best-effort pattern matching, not validation: each field is
// scanned independently through an ordered rule cascade with contextual
// keyword fallbacks, and a field that cannot be found is simply left empty.
// The function never fails, holds no state, and is safe to call concurrently.
package ticket

import (
	"regexp"
	"strings"

	"multas/pkg/models"
)

const (
	// Marker windows: how far past a contextual keyword each scanner looks.
	plateWindowBytes = 30
	dateWindowBytes  = 50
	timeWindowBytes  = 30
	nameWindowBytes  = 60
)

// Extract scans free-form ticket text and returns whatever fields it can
// find. Fields are extracted independently; absence of one never affects
// another, and empty or garbage input yields the zero value.
func Extract(text string) models.TicketFields {
	normalized := normalizeText(text)
	if normalized == "" {
		return models.TicketFields{}
	}

	return models.TicketFields{
		DriverName: extractDriverName(normalized),
		Plate:      extractPlate(normalized),
		Date:       extractDate(normalized),
		Time:       extractTime(normalized),
		Location:   extractLocation(normalized),
		Infraction: extractInfraction(normalized),
	}
}

func extractPlate(text string) string {
	for _, re := range plateRules {
		if m := re.FindStringSubmatch(text); m != nil {
			return NormalizePlate(m[1] + "-" + m[2] + "-" + m[3])
		}
	}

	// Contextual fallback: anything plate-shaped near a marker word.
	lower := strings.ToLower(text)
	for _, marker := range plateMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		if m := plateWindowRule.FindString(window(text, idx, len(marker)+plateWindowBytes)); m != "" {
			return NormalizePlate(m)
		}
	}

	return ""
}

func extractDate(text string) string {
	for _, rule := range dateRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			return rule.build(m)
		}
	}

	if m := monthNameRule.FindStringSubmatch(text); m != nil {
		month, ok := monthNumbers[strings.ToLower(m[2])]
		if !ok {
			month = "01"
		}
		year := m[3]
		if len(year) == 2 {
			year = expandYear(year)
		}
		return formatDate(m[1], month, year)
	}

	// Contextual fallback: a date shape near "data", "dia", "ocorreu", ...
	lower := strings.ToLower(text)
	for _, marker := range dateMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		segment := window(text, idx, len(marker)+dateWindowBytes)
		for _, rule := range dateRules {
			if m := rule.re.FindStringSubmatch(segment); m != nil {
				return rule.build(m)
			}
		}
	}

	return ""
}

func extractTime(text string) string {
	for _, re := range timeRules {
		if m := re.FindStringSubmatch(text); m != nil {
			return formatTime(m[1], m[2])
		}
	}

	// Contextual fallback: a time shape near "hora", "às", "pelas", ...
	lower := strings.ToLower(text)
	for _, marker := range timeMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		segment := window(text, idx, len(marker)+timeWindowBytes)
		for _, re := range timeRules {
			if m := re.FindStringSubmatch(segment); m != nil {
				return formatTime(m[1], m[2])
			}
		}
	}

	return ""
}

func extractLocation(text string) string {
	// A national road identifier is the strongest signal; widen to its
	// surroundings to pick up direction and km marker.
	if loc := roadIDRule.FindStringIndex(text); loc != nil {
		context := window(text, loc[0]-20, 20+40)
		if m := roadContextRule.FindStringSubmatch(context); m != nil {
			return strings.TrimSpace(m[1])
		}
		return text[loc[0]:loc[1]]
	}

	for _, re := range locationRules {
		if m := re.FindStringSubmatch(text); m != nil && len(m[1]) > 2 {
			return strings.TrimSpace(m[1])
		}
	}

	// Last resort: any street-address shape.
	if m := addressRule.FindStringSubmatch(text); m != nil && len(m[1]) > 3 {
		return strings.TrimSpace(m[0])
	}

	return ""
}

func extractInfraction(text string) string {
	lower := strings.ToLower(text)

	for _, re := range infractionRules {
		if m := re.FindStringSubmatch(lower); m != nil && len(m[1]) > 3 {
			return strings.TrimSpace(m[1])
		}
	}

	for _, entry := range infractionCatalog {
		idx := strings.Index(lower, entry.keyword)
		if idx < 0 {
			continue
		}

		// A quantity after the keyword ("velocidade de 147 km/h") makes the
		// description more specific.
		context := window(lower, idx-30, 30+len(entry.keyword)+50)
		detail := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(entry.keyword) + `\s+(?:de|a)\s+(\d+[\w\s,.À-ÿ-]+?)(?:\.|$)`)
		if m := detail.FindStringSubmatch(context); m != nil && len(m[1]) > 1 {
			return entry.description + " " + strings.TrimSpace(m[1])
		}

		return entry.description
	}

	// No keyword matched: synthesize a description from the legal citation.
	if m := articleRule.FindStringSubmatch(text); m != nil {
		ref := "Artigo " + m[1]
		if m[2] != "" {
			ref += ", N.º " + m[2]
		}
		return ref + " do Código da Estrada"
	}

	return ""
}

func extractDriverName(text string) string {
	lower := strings.ToLower(text)

	for _, marker := range nameMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}

		segment := window(text, idx+len(marker), nameWindowBytes)
		m := nameRule.FindStringSubmatch(segment)
		if m == nil {
			continue
		}

		if name := stripNameBoilerplate(m[1]); name != "" {
			return name
		}
	}

	return ""
}

// stripNameBoilerplate cuts a captured name at the first administrative
// token ("Morada", "Documento", ...) that OCR sometimes glues onto it.
func stripNameBoilerplate(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		if nameStopWords[strings.ToLower(word)] {
			words = words[:i]
			break
		}
	}
	if len(words) < 2 {
		return ""
	}
	return strings.Join(words, " ")
}
