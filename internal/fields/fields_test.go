package fields

import (
	"maps"
	"testing"

	"github.com/joseph-ayodele/docverify/constants"
)

func TestAadhaarNumberFollowsKeyword(t *testing.T) {
	text := "GOVERNMENT OF INDIA\nAADHAAR 123456789012\nName: Ravi Kumar\nDOB: 15/08/1990\nMale"
	got := NewExtractor(nil).ExtractFields(Default(constants.AadhaarCard).Table, text)
	want := FieldMap{
		"aadhaar_number": "123456789012",
		"name":           "Ravi Kumar",
		"date_of_birth":  "15/08/1990",
		"gender":         "Male",
	}
	if !maps.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAadhaarSpacedDigits(t *testing.T) {
	text := "Aadhaar No.: 1234 5678 9012"
	got := NewExtractor(nil).ExtractFields(Default(constants.AadhaarCard).Table, text)
	if got["aadhaar_number"] != "1234 5678 9012" {
		t.Fatalf("aadhaar_number = %q", got["aadhaar_number"])
	}
}

func TestFirstPatternWinsOverBetterLaterPattern(t *testing.T) {
	table := Table{
		MustRule("id", `ID\s*(\d+)`, `ID\s*(\d+-\d+-\d+)`),
	}
	got := NewExtractor(nil).ExtractFields(table, "ID 123-45-6789")
	if got["id"] != "123" {
		t.Fatalf("id = %q, the first matching pattern must win", got["id"])
	}
}

func TestValueNeverOverwritten(t *testing.T) {
	table := Table{
		MustRule("name", `Name:\s*(\w+)`),
		MustRule("name", `Surname:\s*(\w+)`),
	}
	got := NewExtractor(nil).ExtractFields(table, "Surname: Doe\nName: Jane")
	if got["name"] != "Jane" {
		t.Fatalf("name = %q", got["name"])
	}
}

func TestBlankCaptureFallsThroughToNextPattern(t *testing.T) {
	table := Table{MustRule("code", `(?m)code:([ ]*)$`, `code=(\w+)`)}
	got := NewExtractor(nil).ExtractFields(table, "code:   \ncode=AB12")
	if got["code"] != "AB12" {
		t.Fatalf("code = %q", got["code"])
	}
}

func TestEmptyAfterCleaningIsOmitted(t *testing.T) {
	table := Table{MustRule("ref", `ref:\s*(\S+)`, `reference\s+(\w+)`)}
	got := NewExtractor(nil).ExtractFields(table, "ref: |||| reference ABC")
	if _, ok := got["ref"]; ok {
		t.Fatalf("ref should be omitted, got %q", got["ref"])
	}
	if len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestExtractionIsIdempotent(t *testing.T) {
	text := "PASSPORT\nPassport No: K1234567\nSurname: SHARMA\nGiven Names: ANIL KUMAR\nNationality: INDIAN\nDate of Birth: 01/01/1980\nSex: M\nDate of Issue: 10/10/2015\nDate of Expiry: 09/10/2025\nPlace of Issue: DELHI"
	e := NewExtractor(nil)
	table := Default(constants.Passport).Table
	a := e.ExtractFields(table, text)
	b := e.ExtractFields(table, text)
	if !maps.Equal(a, b) {
		t.Fatalf("runs differ: %v vs %v", a, b)
	}
	for _, f := range Default(constants.Passport).Required {
		if a[f] == "" {
			t.Errorf("required passport field %s missing from %v", f, a)
		}
	}
}

func TestPanCard(t *testing.T) {
	text := "INCOME TAX DEPARTMENT\nName: PRIYA SINGH\nFather's Name: RAJESH SINGH\nDate of Birth: 02/03/1992\nPermanent Account Number: ABCDE1234F"
	got := NewExtractor(nil).ExtractFields(Default(constants.PanCard).Table, text)
	want := FieldMap{
		"pan_number":    "ABCDE1234F",
		"fathers_name":  "RAJESH SINGH",
		"name":          "PRIYA SINGH",
		"date_of_birth": "02/03/1992",
	}
	if !maps.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLicenseAndSSN(t *testing.T) {
	lic := "DRIVING LICENCE\nLicense No: DL-0420110149646\nName: Asha Rao\nDOB: 11-12-1988\nIssue Date: 01-01-2015\nValid Till: 31-12-2035"
	got := NewExtractor(nil).ExtractFields(Default(constants.License).Table, lic)
	if got["license_number"] != "DL-0420110149646" || got["valid_from"] != "01-01-2015" || got["valid_until"] != "31-12-2035" {
		t.Fatalf("license fields %v", got)
	}

	ssn := "SOCIAL SECURITY\nSSN: 123-45-6789\nName: John Q Public"
	got = NewExtractor(nil).ExtractFields(Default(constants.SSN).Table, ssn)
	if got["ssn"] != "123-45-6789" || got["name"] != "John Q Public" {
		t.Fatalf("ssn fields %v", got)
	}
}

func TestCleanerStability(t *testing.T) {
	c := DefaultCleaner()
	for _, v := range []string{"Ravi Kumar", "123456789012", "DL-0420110149646", "15/08/1990", "O'Brien"} {
		padded := "  \t" + v + " \n"
		if got := c.Clean(padded); got != v {
			t.Errorf("Clean(%q) = %q, want %q", padded, got, v)
		}
	}
}

func TestCleanerRemovesNoise(t *testing.T) {
	c := DefaultCleaner()
	cases := map[string]string{
		": Ravi   Kumar ||":      "Ravi Kumar",
		"JOHN__DOE":              "JOHN DOE",
		"Delhi.....":             "Delhi",
		"“MUMBAI”":               "MUMBAI",
		"||||":                   "",
		"Line one\n\nLine two  ": "Line one Line two",
	}
	for in, want := range cases {
		if got := c.Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}

	extra, err := NewNoiseRule(`(?i)\bdob\b`, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.With(extra).Clean("12/01/1990 DOB"); got != "12/01/1990" {
		t.Fatalf("With = %q", got)
	}
}

func TestNewRuleValidation(t *testing.T) {
	if _, err := NewRule("x", `([`); err == nil {
		t.Fatal("expected compile error")
	}
	if _, err := NewRule("x"); err == nil {
		t.Fatal("expected error for rule without patterns")
	}
	if _, err := NewNoiseRule(`(`, ""); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestDefaultFallsBackToIdentity(t *testing.T) {
	s := Default(constants.Other)
	if len(s.Table) == 0 || s.Required[0] != "name" {
		t.Fatalf("unexpected identity schema %+v", s.Required)
	}
}
