package security

import (
	"strings"
	"testing"
)

func TestSanitizeText_PlainTextUnchanged(t *testing.T) {
	s := NewTextSanitizer()

	inputs := []string{
		"Ahmed Ali",
		"Cabdiraxmaan Maxamed Xasan",
		"O'Brien & Sons",
		"P00123456",
		"Somali",
	}
	for _, in := range inputs {
		if got := s.SanitizeText(in); got != in {
			t.Errorf("SanitizeText(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSanitizeText_StripsMarkup(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		in   string
		want string
	}{
		{`<b>Fatima</b>`, "Fatima"},
		{`<script>alert(1)</script>Omar`, "Omar"},
		{`<img src=x onerror=alert(1)>Hodan`, "Hodan"},
		{`Ali <a href="javascript:alert(1)">link</a>`, "Ali link"},
		{`<!-- note -->Xasan`, "Xasan"},
	}
	for _, tt := range tests {
		got := s.SanitizeText(tt.in)
		if got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.ContainsAny(got, "<>") {
			t.Errorf("SanitizeText(%q) = %q still contains markup", tt.in, got)
		}
	}
}

func TestSanitizeText_TrimsAndHandlesEmpty(t *testing.T) {
	s := NewTextSanitizer()

	if got := s.SanitizeText(""); got != "" {
		t.Errorf("SanitizeText(\"\") = %q", got)
	}
	if got := s.SanitizeText("  Ahmed  "); got != "Ahmed" {
		t.Errorf("SanitizeText = %q, want %q", got, "Ahmed")
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	in := `<p>Maryan &amp; <em>Cali</em></p>`
	once := s.SanitizeText(in)
	twice := s.SanitizeText(once)
	if once != twice {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}

func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer()
}
