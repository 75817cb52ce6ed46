package user

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var referralCodeRegex = regexp.MustCompile(`^[A-Z]{5,}[0-9]{4}$`)

func TestGenerateReferralCode(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPrefix string
	}{
		{name: "long first name", input: "Khadija Hassan", wantPrefix: "KHADI"},
		{name: "exactly five letters", input: "Hamza", wantPrefix: "HAMZA"},
		{name: "short name padded", input: "Ali", wantPrefix: "ALIXX"},
		{name: "single letter", input: "A", wantPrefix: "AXXXX"},
		{name: "non-letters stripped", input: "Jean-Pierre Smith", wantPrefix: "JEANPIERRE"},
		{name: "digits stripped", input: "Us3r One", wantPrefix: "USRXX"},
		{name: "empty name", input: "", wantPrefix: "XXXXX"},
		{name: "lowercased input", input: "fatima", wantPrefix: "FATIM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := GenerateReferralCode(tt.input)
			if !referralCodeRegex.MatchString(code) {
				t.Errorf("GenerateReferralCode(%q) = %q; does not match %v", tt.input, code, referralCodeRegex)
			}
			if !strings.HasPrefix(code, tt.wantPrefix) {
				t.Errorf("GenerateReferralCode(%q) = %q; wantPrefix %q", tt.input, code, tt.wantPrefix)
			}
			suffix := code[len(code)-4:]
			if n, err := strconv.Atoi(suffix); err != nil || n < 1000 || n > 9999 {
				t.Errorf("GenerateReferralCode(%q) suffix = %q; want 1000-9999", tt.input, suffix)
			}
		})
	}
}
