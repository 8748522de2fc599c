package constants

import (
	"strings"
)

// Category is the document family a template belongs to.
type Category string

const (
	AadhaarCard Category = "aadhaar_card"
	PanCard     Category = "pan_card"
	License     Category = "license"
	Passport    Category = "passport"
	SSN         Category = "ssn"
	Identity    Category = "identity"
	Other       Category = "other"
)

var allCategories = []Category{
	AadhaarCard,
	PanCard,
	License,
	Passport,
	SSN,
	Identity,
	Other,
}

// synonyms maps spellings seen in file names and manifests to categories.
var synonyms = map[string]Category{
	"aadhaar":              AadhaarCard,
	"aadhar":               AadhaarCard,
	"aadhaarcard":          AadhaarCard,
	"aadharcard":           AadhaarCard,
	"aadhaar card":         AadhaarCard,
	"aadhar card":          AadhaarCard,
	"uidai":                AadhaarCard,
	"pan":                  PanCard,
	"pancard":              PanCard,
	"pan card":             PanCard,
	"dl":                   License,
	"driving license":      License,
	"driving licence":      License,
	"drivinglicense":       License,
	"driving_license":      License,
	"driver license":       License,
	"drivers license":      License,
	"licence":              License,
	"travel document":      Passport,
	"travel_document":      Passport,
	"passport card":        Passport,
	"social security":      SSN,
	"social_security":      SSN,
	"social security card": SSN,
	"id":                   Identity,
	"id card":              Identity,
	"id_card":              Identity,
	"identity card":        Identity,
	"national id":          Identity,
}

// Canonicalize maps free-form names to a Category; unknown input yields Other, false.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, "-", " ")

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}
	if cat, ok := synonyms[strings.ReplaceAll(normalized, "_", " ")]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) || strings.ReplaceAll(normalized, " ", "_") == string(cat) {
			return cat, true
		}
	}

	return Other, false
}
