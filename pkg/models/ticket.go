package models

// TicketFields holds the structured data extracted from a Portuguese traffic
// ticket (auto de contraordenação). Every field is optional: an empty string
// means "not found in this document", to be filled in manually downstream.
type TicketFields struct {
	// DriverName is the name of the identified driver (condutor).
	DriverName string `json:"driver_name,omitempty"`

	// Plate is the vehicle license plate, normalized to XX-XX-XX uppercase.
	Plate string `json:"plate,omitempty"`

	// Date is the infraction date, normalized to DD-MM-YYYY.
	Date string `json:"date,omitempty"`

	// Time is the infraction time, normalized to HH:MM.
	Time string `json:"time,omitempty"`

	// Location is the place of the infraction as written on the ticket
	// (road identifier with km marker, or a street address).
	Location string `json:"location,omitempty"`

	// Infraction is the canonical description of the infraction type.
	Infraction string `json:"infraction,omitempty"`
}

// IsEmpty reports whether no field was extracted at all.
func (t TicketFields) IsEmpty() bool {
	return t == TicketFields{}
}

// Missing returns the names of fields that are still unset, in a fixed order.
func (t TicketFields) Missing() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"driver_name", t.DriverName},
		{"plate", t.Plate},
		{"date", t.Date},
		{"time", t.Time},
		{"location", t.Location},
		{"infraction", t.Infraction},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
