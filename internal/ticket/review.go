package ticket

import "multas/pkg/models"

// DefaultReviewThreshold is the confidence below which an extracted field
// must be confirmed by a human before it is used in a letter.
const DefaultReviewThreshold = 0.75

// FlagForReview returns the names of extracted fields whose confidence falls
// below the threshold, in the model's field order. A field with no entry in
// the confidence map is treated as unverified and flagged. Absent fields are
// not flagged; they are reported separately as missing.
func FlagForReview(fields models.TicketFields, confidence map[string]float64, threshold float64) []string {
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}

	var flagged []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"driver_name", fields.DriverName},
		{"plate", fields.Plate},
		{"date", fields.Date},
		{"time", fields.Time},
		{"location", fields.Location},
		{"infraction", fields.Infraction},
	} {
		if f.value == "" {
			continue
		}
		if conf, ok := confidence[f.name]; !ok || conf < threshold {
			flagged = append(flagged, f.name)
		}
	}
	return flagged
}
