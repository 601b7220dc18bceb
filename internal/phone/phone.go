// Package phone validates and normalizes mobile phone numbers. Numbers are
// stored in E.164 form together with the region detected from the country
// code, so uniqueness checks compare like with like.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrInvalid   = errors.New("not a valid phone number, prefix it with your country code")
	ErrNotMobile = errors.New("this phone number doesn't look like a mobile phone number")
)

// Normalize parses a raw phone number and returns its E.164 form and region
// code. A missing leading "+" is tolerated since people forget it.
func Normalize(raw string) (number string, region string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrInvalid
	}
	if !strings.HasPrefix(raw, "+") {
		raw = "+" + raw
	}

	parsed, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", "", ErrInvalid
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", "", ErrInvalid
	}

	switch phonenumbers.GetNumberType(parsed) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", "", ErrNotMobile
	}

	number = phonenumbers.Format(parsed, phonenumbers.E164)
	region = phonenumbers.GetRegionCodeForNumber(parsed)
	return number, region, nil
}
