package fields

import "github.com/joseph-ayodele/docverify/constants"

// Schema is the field layout of one document category.
type Schema struct {
	Table    Table
	Required []string
	Optional []string
}

const (
	date    = `(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4})`
	sep     = `\s*[:\-]?\s*`
	words   = `([A-Za-z][A-Za-z .'-]*)`
	dobHead = `(?i)(?:date of birth|birth date|d\.?o\.?b\.?)`
)

var (
	nameRule = MustRule("name",
		`(?im)^\s*(?:full\s+)?name`+sep+words,
		`(?i)\b(?:full\s+)?name\s*:\s*`+words,
	)
	dobRule = MustRule("date_of_birth",
		dobHead+sep+date,
		`(?i)year of birth`+sep+`(\d{4})`,
	)
	genderRule = MustRule("gender",
		`(?i)(?:sex|gender)`+sep+`(male|female|transgender|M|F|X)\b`,
		`(?i)\b(male|female|transgender)\b`,
	)
	addressRule = MustRule("address",
		`(?i)(?:address|residence)`+sep+`([A-Za-z0-9][A-Za-z0-9 ,./#-]*)`,
	)
)

var schemas = map[constants.Category]Schema{
	constants.AadhaarCard: {
		Table: Table{
			MustRule("aadhaar_number",
				`(?i)aadhaa?r\D{0,30}?(\d{4}[ -]?\d{4}[ -]?\d{4})\b`,
				`\b(\d{4} \d{4} \d{4})\b`,
			),
			nameRule,
			genderRule,
			dobRule,
			addressRule,
			MustRule("postal_code", `(?i)(?:pin(?:\s*code)?|postal code)`+sep+`(\d{6})\b`),
		},
		Required: []string{"aadhaar_number", "name", "gender", "date_of_birth"},
		Optional: []string{"address", "postal_code"},
	},
	constants.PanCard: {
		Table: Table{
			MustRule("pan_number",
				`(?i)(?:permanent account number|pan)(?:\s*(?:card|no\.?|number))?`+sep+`([A-Z]{5}[0-9]{4}[A-Z])\b`,
				`\b([A-Z]{5}[0-9]{4}[A-Z])\b`,
			),
			MustRule("fathers_name", `(?i)father'?s?\s*name`+sep+words),
			MustRule("name", `(?im)^\s*name`+sep+words),
			dobRule,
		},
		Required: []string{"pan_number", "name", "fathers_name", "date_of_birth"},
	},
	constants.License: {
		Table: Table{
			MustRule("license_number",
				`(?i)(?:licen[cs]e|permit|dl)\s*(?:no\.?|number|#)`+sep+`([A-Z0-9][A-Z0-9-]{4,})`,
			),
			nameRule,
			dobRule,
			MustRule("valid_from", `(?i)(?:valid from|issued? date|date of issue)`+sep+date),
			MustRule("valid_until", `(?i)(?:valid until|valid till|validity|expiry date|expiration date|date of expiry)`+sep+date),
			MustRule("license_type", `(?i)(?:licen[cs]e|permit) type`+sep+words),
			MustRule("issuing_authority", `(?i)(?:issuing|issuer) (?:authority|office)`+sep+words),
			MustRule("restrictions", `(?i)restrictions`+sep+`([A-Za-z0-9][A-Za-z0-9 ,.-]*)`),
			addressRule,
		},
		Required: []string{"license_number", "name", "date_of_birth", "valid_from", "valid_until"},
		Optional: []string{"license_type", "issuing_authority", "restrictions", "address"},
	},
	constants.Passport: {
		Table: Table{
			MustRule("passport_number",
				`(?i)passport\s*(?:no\.?|number|#)`+sep+`([A-Z][0-9]{7})\b`,
				`\b([A-Z][0-9]{7})\b`,
			),
			MustRule("surname", `(?im)^\s*surname`+sep+words),
			MustRule("given_names", `(?im)^\s*given\s*names?`+sep+words),
			MustRule("nationality", `(?i)nationality`+sep+`([A-Za-z][A-Za-z ]*)`),
			dobRule,
			genderRule,
			MustRule("date_of_issue", `(?i)(?:date of issue|issue date)`+sep+date),
			MustRule("date_of_expiry", `(?i)(?:date of expiry|expiry date|expiration date)`+sep+date),
			MustRule("place_of_issue", `(?i)place of issue`+sep+`([A-Za-z][A-Za-z ,.-]*)`),
			MustRule("place_of_birth", `(?i)place of birth`+sep+`([A-Za-z][A-Za-z ,.-]*)`),
		},
		Required: []string{"passport_number", "surname", "given_names", "nationality", "date_of_birth", "gender", "date_of_issue", "date_of_expiry", "place_of_issue"},
		Optional: []string{"place_of_birth"},
	},
	constants.SSN: {
		Table: Table{
			MustRule("ssn",
				`(?i)(?:social security(?: number)?|ssn)\s*(?:no\.?|number|#)?`+sep+`(\d{3}-\d{2}-\d{4})\b`,
				`\b(\d{3}-\d{2}-\d{4})\b`,
			),
			nameRule,
			dobRule,
			addressRule,
		},
		Required: []string{"ssn", "name", "date_of_birth", "address"},
	},
	constants.Identity: identitySchema,
}

var identitySchema = Schema{
	Table: Table{
		nameRule,
		dobRule,
		MustRule("id_number", `(?i)(?:id|identification|document) (?:number|no\.?)`+sep+`([A-Z0-9][A-Z0-9-]*)`),
		MustRule("expiry_date", `(?i)(?:expiry|expiration) date`+sep+date),
		MustRule("nationality", `(?i)nationality`+sep+`([A-Za-z][A-Za-z ]*)`),
		addressRule,
	},
	Required: []string{"name", "date_of_birth", "id_number"},
	Optional: []string{"expiry_date", "nationality", "address"},
}

// Default returns the built-in schema for a category; unknown categories get
// the generic identity layout.
func Default(c constants.Category) Schema {
	if s, ok := schemas[c]; ok {
		return s
	}
	return identitySchema
}
