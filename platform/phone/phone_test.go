package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"  +31 6 1234 5678 ", "+31612345678"},
		{"(212) 555-0100", "+12125550100"},
		{"not a number", "not a number"},
	}

	for _, tt := range tests {
		if got := NormalizeE164(tt.input); got != tt.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsMobileCapable(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"+31612345678", true},  // dutch mobile
		{"+31201234567", false}, // amsterdam landline
		{"garbled", true},       // unparseable defers to the carrier
		{"+1555", true},         // parses but invalid, same policy as unparseable
	}

	for _, tt := range tests {
		if got := IsMobileCapable(tt.input); got != tt.want {
			t.Errorf("IsMobileCapable(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
