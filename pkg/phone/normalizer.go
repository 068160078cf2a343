package phone

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone normalizes a phone number to E.164 format.
func NormalizePhone(phone, countryCode string) (string, error) {
	if phone == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}

	if countryCode == "" {
		countryCode = "IT"
	}

	parsed, err := phonenumbers.Parse(phone, countryCode)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number")
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// NormalizeContactChannel normalizes a lead's contact channel to E.164 when
// it parses as a phone number. Unparseable values come back unchanged so a
// messy handle never blocks capture.
func NormalizeContactChannel(raw string) string {
	normalized, err := NormalizePhone(raw, "")
	if err != nil {
		return raw
	}
	return normalized
}
