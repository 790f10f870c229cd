package normalize

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Phone parses a raw phone number into E.164 form, using the optional
// two-letter country code as the default region. The second return is
// false when the input is empty, unparseable, or not a possible and
// valid number for its region; parse failures never surface as errors.
func Phone(raw, country string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	region := strings.ToUpper(strings.TrimSpace(country))

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsPossibleNumber(num) || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}
