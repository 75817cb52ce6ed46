package user

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

var nonLetterRegex = regexp.MustCompile(`[^A-Z]`)

func init() {
	rand.Seed(time.Now().UnixNano())
}

// GenerateReferralCode derives a referral code from the first
// whitespace-delimited token of name: uppercased, letters only, right-padded
// with X to 5 characters, followed by a 4-digit random suffix (1000-9999).
// No collision check is made against existing codes; codes are unique in
// practice, not by construction.
func GenerateReferralCode(name string) string {
	var first string
	if fields := strings.Fields(strings.ToUpper(name)); len(fields) > 0 {
		first = fields[0]
	}
	letters := nonLetterRegex.ReplaceAllString(first, "")
	for len(letters) < 5 {
		letters += "X"
	}
	return fmt.Sprintf("%s%d", letters, 1000+rand.Intn(9000))
}
