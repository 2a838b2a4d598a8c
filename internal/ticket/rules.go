package ticket

import "regexp"

// Extraction rule tables. Each field is driven by an ordered list of
// (matcher, normalizer) pairs plus a set of contextual marker words used as
// a fallback when no direct pattern matches. Adding a new plate/date/time
// format is a table change, not a new code path.

// License plates. Portuguese plates are three 2-character groups; letters and
// digits appear in any of the historically valid arrangements (AA-00-00,
// 00-00-AA, 00-AA-00, ...), so the patterns accept both per group.
var (
	plateRules = []*regexp.Regexp{
		// Hyphenated, the canonical printed form.
		regexp.MustCompile(`(?i)\b([A-Z0-9]{2})-([A-Z0-9]{2})-([A-Z0-9]{2})\b`),
		// Current series 00-AA-00 without word boundaries lost to OCR.
		regexp.MustCompile(`(?i)\b(\d{2})-([A-Z]{2})-(\d{2})\b`),
		// OCR often reads the hyphens as spaces or dots.
		regexp.MustCompile(`(?i)\b([A-Z0-9]{2})[\s.]([A-Z0-9]{2})[\s.]([A-Z0-9]{2})\b`),
	}

	plateMarkers = []string{
		"matrícula", "matricula", "veículo", "veiculo",
		"viatura", "automóvel", "automovel",
	}

	// Anything plate-shaped inside a marker window.
	plateWindowRule = regexp.MustCompile(`(?i)\b[A-Z0-9]{2}[\s.-][A-Z0-9]{2}[\s.-][A-Z0-9]{2}\b`)
)

// Dates. Rules are tried in priority order; each normalizer receives the
// submatches and emits DD-MM-YYYY.
type dateRule struct {
	re    *regexp.Regexp
	build func(m []string) string
}

var (
	dateRules = []dateRule{
		{
			re:    regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})\b`),
			build: func(m []string) string { return formatDate(m[1], m[2], m[3]) },
		},
		{
			re:    regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{2})\b`),
			build: func(m []string) string { return formatDate(m[1], m[2], expandYear(m[3])) },
		},
		{
			re:    regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`),
			build: func(m []string) string { return formatDate(m[3], m[2], m[1]) },
		},
	}

	monthNameRule = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:de\s+)?(janeiro|fevereiro|março|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)(?:\s+de)?\s+(\d{4}|\d{2})\b`)

	monthNumbers = map[string]string{
		"janeiro":  "01",
		"fevereiro": "02",
		"março":    "03",
		"marco":    "03",
		"abril":    "04",
		"maio":     "05",
		"junho":    "06",
		"julho":    "07",
		"agosto":   "08",
		"setembro": "09",
		"outubro":  "10",
		"novembro": "11",
		"dezembro": "12",
	}

	dateMarkers = []string{
		"data", "dia", "ocorreu", "ocorrência", "ocorrencia",
		"cometida", "praticada", "registada",
	}
)

// Times. All rules capture hours in group 1 and minutes in group 2.
var (
	timeRules = []*regexp.Regexp{
		// HH:MM, HH.MM, HHhMM, optionally followed by "horas" or "h".
		regexp.MustCompile(`(?i)\b(\d{1,2})[:.h](\d{2})(?:\s*(?:horas?|h))?\b`),
		// HH,MM
		regexp.MustCompile(`\b(\d{1,2}),(\d{2})\b`),
		// "X horas e Y minutos"
		regexp.MustCompile(`(?i)\b(\d{1,2})\s*horas\s*e\s*(\d{1,2})\s*minutos\b`),
		// HH:MM:SS, seconds discarded.
		regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})[:.](\d{2})\b`),
	}

	timeMarkers = []string{
		"hora", "horas", "às", "as", "pelas", "cerca de",
	}
)

// Locations.
var (
	// National road identifiers (motorway, itinerário principal/complementar,
	// estrada nacional).
	roadIDRule = regexp.MustCompile(`(?i)\b(?:A\d+|IP\d+|IC\d+|EN\d+|N\d+)\b`)

	// Road identifier with its surroundings, e.g. "A1 sul, km 145,3".
	roadContextRule = regexp.MustCompile(`(?i)\b((?:A\d+|IP\d+|IC\d+|EN\d+|N\d+)(?:[\s,.-]+[\w\s,.À-ÿ-]+)?(?:km\s*\d+(?:[,.]\d+)?)?)\b`)

	locationRules = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:local|localidade|em|na|no|pela|artéria|arteria|via|estrada|rua|avenida|av\.)\s*:?\s*([\w\s,.À-ÿ-]+?)(?:\.|$|\n|,\s*(?:em|no dia|pela|pelas))`),
		regexp.MustCompile(`(?i)(?:ocorrida|ocorrido|verificou-se)\s+(?:em|na|no)\s+([\w\s,.À-ÿ-]+?)(?:\.|$|\n|,\s*(?:em|no dia|pela|pelas))`),
	}

	addressRule = regexp.MustCompile(`(?i)\b(?:rua|avenida|av\.|r\.|praça|praca|largo|travessa)\s+([\w\s,.À-ÿ-]+?)(?:,|\.|$|\n)`)
)

// Infractions. The catalog maps keywords found in the ticket body to the
// canonical description used in contestation letters. Order matters: more
// specific phrases come before their generic substrings.
type infractionEntry struct {
	keyword     string
	description string
}

var (
	infractionRules = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:contraordenação|contra-ordenação|contra ordenação|infração|infracao|coima)(?::|\s+por|\s+de)?\s+([\w\s,.À-ÿ-]+?)(?:\.|$|\n|,\s*(?:em|no dia|pela|pelas))`),
		regexp.MustCompile(`(?i)(?:artigo|art\.)\s+\d+[.\s,]*(?:n[.ºo]+\s+\d+)?[.\s,]*(?:do|da|código)\s+(?:da estrada|c\.e\.|ce)(?:\s+por|\s+relativa a)?\s+([\w\s,.À-ÿ-]+?)(?:\.|$|\n|,\s*(?:em|no dia|pela|pelas))`),
	}

	infractionCatalog = []infractionEntry{
		{"excesso de velocidade", "Excesso de velocidade"},
		{"velocidade excessiva", "Excesso de velocidade"},
		{"limite de velocidade", "Excesso de velocidade"},
		{"ultrapassou o limite", "Excesso de velocidade"},
		{"álcool", "Condução sob influência de álcool"},
		{"alcool", "Condução sob influência de álcool"},
		{"taxa de alcoolemia", "Condução sob influência de álcool"},
		{"telemóvel", "Utilização de telemóvel durante a condução"},
		{"telemovel", "Utilização de telemóvel durante a condução"},
		{"aparelho radiotelefónico", "Utilização de telemóvel durante a condução"},
		{"cinto", "Não utilização do cinto de segurança"},
		{"estacionamento", "Estacionamento irregular"},
		{"estacionou", "Estacionamento irregular"},
		{"sinal de stop", "Desrespeito da sinalização"},
		{"sinal vermelho", "Desrespeito da sinalização"},
		{"semáforo vermelho", "Desrespeito da sinalização"},
		{"semaforo", "Desrespeito da sinalização"},
		{"sentido proibido", "Circulação em sentido proibido"},
		{"contramão", "Circulação em sentido proibido"},
		{"contramao", "Circulação em sentido proibido"},
		{"seguro", "Falta de seguro"},
		{"inspeção", "Falta de inspeção periódica"},
		{"inspecao", "Falta de inspeção periódica"},
		{"carta de condução", "Condução sem habilitação legal"},
		{"sem carta", "Condução sem habilitação legal"},
		{"documentação", "Falta de documentação"},
		{"documentos", "Falta de documentação"},
		{"mudança de direção", "Manobra perigosa"},
		{"ultrapassagem", "Manobra perigosa"},
	}

	// Legal article citation, used to synthesize a description when no
	// keyword matched.
	articleRule = regexp.MustCompile(`(?i)art(?:igo)?\.?\s+(\d+\.?[º°]?)(?:[-,\s]+n\.?[º°]?\s*(\d+))?(?:[-,\s]+(?:do|da)\s+(?:CE|C\.E\.|Código da Estrada|Regulamento))?`)
)

// Driver names.
var (
	nameMarkers = []string{
		"identificado como", "nome do condutor", "condutor", "arguido", "nome",
	}

	// Two or more capitalized tokens, optionally joined by Portuguese name
	// particles.
	nameRule = regexp.MustCompile(`\b([A-ZÀ-Ö][a-zà-öø-ÿ]+(?:\s+(?:(?:de|da|do|dos|das|e)\s+)?[A-ZÀ-Ö][a-zà-öø-ÿ]+)+)`)

	// Administrative boilerplate that commonly follows a name on these
	// documents; the name is cut at the first of these tokens.
	nameStopWords = map[string]bool{
		"morada":       true,
		"documento":    true,
		"natural":      true,
		"portador":     true,
		"portadora":    true,
		"residente":    true,
		"titular":      true,
		"contribuinte": true,
	}
)
