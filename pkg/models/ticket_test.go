package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestTicketFieldsIsEmpty(t *testing.T) {
	if !(TicketFields{}).IsEmpty() {
		t.Error("zero value not reported as empty")
	}
	if (TicketFields{Plate: "12-AB-34"}).IsEmpty() {
		t.Error("populated fields reported as empty")
	}
}

func TestTicketFieldsMissing(t *testing.T) {
	empty := TicketFields{}
	wantAll := []string{"driver_name", "plate", "date", "time", "location", "infraction"}
	if got := empty.Missing(); !reflect.DeepEqual(got, wantAll) {
		t.Errorf("Missing on zero value = %v, want %v", got, wantAll)
	}

	partial := TicketFields{
		Plate: "12-AB-34",
		Date:  "18-05-2025",
		Time:  "14:32",
	}
	want := []string{"driver_name", "location", "infraction"}
	if got := partial.Missing(); !reflect.DeepEqual(got, want) {
		t.Errorf("Missing = %v, want %v", got, want)
	}

	full := TicketFields{
		DriverName: "João Silva",
		Plate:      "12-AB-34",
		Date:       "18-05-2025",
		Time:       "14:32",
		Location:   "A1 ao km 145",
		Infraction: "Excesso de velocidade",
	}
	if got := full.Missing(); len(got) != 0 {
		t.Errorf("Missing on full fields = %v, want none", got)
	}
}

func TestTicketFieldsJSONOmitsAbsent(t *testing.T) {
	data, err := json.Marshal(TicketFields{Plate: "12-AB-34"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"plate":"12-AB-34"}` {
		t.Errorf("marshal = %s, absent fields must be omitted", data)
	}
}
