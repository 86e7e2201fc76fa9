package main

// Probe is one request sent to the service.
type Probe struct {
	Name        string
	Description string
	Input       map[string]string
}

// probes covers the response shapes the client has to handle.
var probes = []Probe{
	{
		Name:        "aspirin",
		Description: "Confident match",
		Input:       map[string]string{"drug_section": "IN01", "drug_text": "aspirin"},
	},
	{
		Name:        "prefix",
		Description: "Partial word, several candidates",
		Input:       map[string]string{"drug_section": "IN01", "drug_text": "par"},
	},
	{
		Name:        "brand_name",
		Description: "Brand name with a number",
		Input:       map[string]string{"drug_section": "TX21", "drug_text": "tylenol 3"},
	},
	{
		Name:        "accents",
		Description: "Accented and mixed-case input",
		Input:       map[string]string{"drug_section": "IN01", "drug_text": "IBUPROFÈNE"},
	},
	{
		Name:        "low_confidence",
		Description: "Nothing close, warning expected",
		Input:       map[string]string{"drug_section": "IN01", "drug_text": "qqqq"},
	},
	{
		Name:        "count",
		Description: "Explicit prediction_count",
		Input:       map[string]string{"drug_section": "LS01", "drug_text": "a", "prediction_count": "3"},
	},
	{
		Name:        "bad_section",
		Description: "Unknown section",
		Input:       map[string]string{"drug_section": "NOPE", "drug_text": "aspirin"},
	},
	{
		Name:        "missing_text",
		Description: "Missing drug_text",
		Input:       map[string]string{"drug_section": "IN01"},
	},
}
