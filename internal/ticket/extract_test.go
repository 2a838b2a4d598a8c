package ticket

import (
	"testing"
)

func TestExtractPlate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "hyphenated",
			text: "O veículo com a matrícula 12-AB-34 foi fiscalizado",
			want: "12-AB-34",
		},
		{
			name: "spaces for hyphens",
			text: "A viatura de matrícula 12 AB 34 foi autuada",
			want: "12-AB-34",
		},
		{
			name: "dots for hyphens",
			text: "matrícula 12.AB.34",
			want: "12-AB-34",
		},
		{
			name: "letters first series",
			text: "conduzia o automóvel AB-12-34",
			want: "AB-12-34",
		},
		{
			name: "no plate",
			text: "documento ilegível",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).Plate; got != tt.want {
				t.Errorf("plate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12-AB-34", "12-AB-34"},
		{"12 ab 34", "12-AB-34"},
		{"12.AB.34", "12-AB-34"},
		{"12ab34", "12-AB-34"},
		{"ab-12-cd", "AB-12-CD"},
		{"  12-AB-34  ", "12-AB-34"},
		{"12AB", "12AB"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePlate(tt.in); got != tt.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"hyphenated", "no dia 18-05-2025 pelas 14h", "18-05-2025"},
		{"slashes", "Data: 18/05/2025", "18-05-2025"},
		{"dots", "em 18.05.2025", "18-05-2025"},
		{"iso order", "registada em 2025-05-18", "18-05-2025"},
		{"two digit year below pivot", "no dia 18-05-25", "18-05-2025"},
		{"two digit year above pivot", "ocorreu em 01-02-99", "01-02-1999"},
		{"unpadded day and month", "no dia 5/3/2025", "05-03-2025"},
		{"month name", "no dia 18 de maio de 2025", "18-05-2025"},
		{"month name accented", "aos 3 de março de 2024", "03-03-2024"},
		{"no date", "o processo seguiu os trâmites normais", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).Date; got != tt.want {
				t.Errorf("date = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTime(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"colon", "pelas 14:32", "14:32"},
		{"h separator", "às 14h05", "14:05"},
		{"single digit hour", "pelas 9h05", "09:05"},
		{"comma separator", "cerca das 14,30 horas", "14:30"},
		{"spelled out", "às 14 horas e 5 minutos", "14:05"},
		{"seconds discarded", "registo às 14:32:07", "14:32"},
		{"no time", "o processo seguiu os trâmites normais", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).Time; got != tt.want {
				t.Errorf("time = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "motorway with km context",
			text: "Circulava na A1 ao km 145",
			want: "A1 ao km 145",
		},
		{
			name: "national road",
			text: "Fiscalizado na EN125 ao km 12",
			want: "EN125 ao km 12",
		},
		{
			name: "marked locality",
			text: "Local: Rua das Flores, Lisboa.",
			want: "Rua das Flores, Lisboa",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).Location; got != tt.want {
				t.Errorf("location = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractInfraction(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "catalog keyword",
			text: "O condutor circulava com excesso de velocidade.",
			want: "Excesso de velocidade",
		},
		{
			name: "catalog keyword with detail",
			text: "Foi autuado por excesso de velocidade de 62 km.",
			want: "Excesso de velocidade 62 km",
		},
		{
			name: "phone use",
			text: "Utilizava o telemóvel durante a condução.",
			want: "Utilização de telemóvel durante a condução",
		},
		{
			name: "explicit infraction marker wins over catalog",
			text: "Contraordenação por estacionamento em zona proibida.",
			want: "estacionamento em zona proibida",
		},
		{
			name: "article synthesis",
			text: "Nos termos do artigo 27.º, n.º 1 do Código da Estrada.",
			want: "Artigo 27.º, N.º 1 do Código da Estrada",
		},
		{
			name: "article without number",
			text: "Violação do disposto no artigo 85 do Código da Estrada.",
			want: "Artigo 85 do Código da Estrada",
		},
		{
			name: "no infraction",
			text: "texto vazio de qualquer referência legal",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).Infraction; got != tt.want {
				t.Errorf("infraction = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDriverName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "identificado como marker",
			text: "O condutor foi identificado como João Miguel dos Santos, residente em Lisboa.",
			want: "João Miguel dos Santos",
		},
		{
			name: "boilerplate glued to name",
			text: "Nome do condutor: João Silva Morada Rua das Acácias",
			want: "João Silva",
		},
		{
			name: "single word rejected",
			text: "identificado como João, sem mais elementos",
			want: "",
		},
		{
			name: "no name",
			text: "auto lavrado sem identificação",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).DriverName; got != tt.want {
				t.Errorf("driver name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\r\n\t"} {
		fields := Extract(text)
		if !fields.IsEmpty() {
			t.Errorf("Extract(%q) = %+v, want zero value", text, fields)
		}
	}
}

func TestExtractFullTicket(t *testing.T) {
	text := `AUTO DE CONTRAORDENAÇÃO
O condutor identificado como Maria Helena da Costa, portadora do documento 12345,
conduzia o veículo de matrícula 45-XY-67 no dia 18-05-2025 pelas 14:32,
na A1 ao km 145, em excesso de velocidade.`

	fields := Extract(text)

	if fields.DriverName != "Maria Helena da Costa" {
		t.Errorf("driver name = %q", fields.DriverName)
	}
	if fields.Plate != "45-XY-67" {
		t.Errorf("plate = %q", fields.Plate)
	}
	if fields.Date != "18-05-2025" {
		t.Errorf("date = %q", fields.Date)
	}
	if fields.Time != "14:32" {
		t.Errorf("time = %q", fields.Time)
	}
	if fields.Location == "" {
		t.Error("location not extracted")
	}
	if fields.Infraction != "Excesso de velocidade" {
		t.Errorf("infraction = %q", fields.Infraction)
	}
	if missing := fields.Missing(); len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestNormalizeText(t *testing.T) {
	in := "linha um\r\nlinha   dois\t três  "
	want := "linha um linha dois três"
	if got := normalizeText(in); got != want {
		t.Errorf("normalizeText = %q, want %q", got, want)
	}
}
