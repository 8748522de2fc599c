package constants

import "testing"

func TestMapExtToFormat(t *testing.T) {
	cases := map[string]Format{
		".PDF":  PDF,
		"jpg":   IMAGE,
		".Jpeg": IMAGE,
		".tif":  IMAGE,
		".bmp":  IMAGE,
		".gif":  IMAGE,
		".docx": DOCX,
		".txt":  TXT,
		".xyz":  UNKNOWN,
		"":      UNKNOWN,
		".heic": UNKNOWN,
	}
	for ext, want := range cases {
		if got := MapExtToFormat(ext); got != want {
			t.Errorf("MapExtToFormat(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"aadhar", AadhaarCard, true},
		{"AadharCard", AadhaarCard, true},
		{"pan_card", PanCard, true},
		{"PAN", PanCard, true},
		{"driving-license", License, true},
		{"dl", License, true},
		{"passport", Passport, true},
		{"travel_document", Passport, true},
		{"ssn", SSN, true},
		{"", Other, false},
		{"library card", Other, false},
	}
	for _, tc := range cases {
		got, ok := Canonicalize(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Canonicalize(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDecisionRejected(t *testing.T) {
	if DecisionAccepted.Rejected() || !DecisionAccepted.Accepted() {
		t.Fatal("accepted must not be a rejection")
	}
	for _, d := range []Decision{DecisionRejectedLowConfidence, DecisionRejectedNotGenuine, DecisionRejectedVerificationFailed} {
		if !d.Rejected() {
			t.Errorf("%s should be a rejection", d)
		}
	}
	if DecisionNone.Rejected() {
		t.Error("empty decision is not terminal")
	}
}
