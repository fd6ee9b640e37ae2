// Package validation holds the pure field checks for a student form
// submission. Nothing here performs I/O; callers pass "now" explicitly so
// date rules are deterministic.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinNameLength = 2
	MaxNameLength = 100
	MaxAgeYears   = 100

	// DateLayout is the canonical date-of-birth format.
	DateLayout = "2006-01-02"
)

// Messages reported by ValidateAll.
const (
	MsgName       = "Name must be between 2 and 100 characters"
	MsgFatherName = "Father's name must be between 2 and 100 characters"
	MsgDOB        = "Date of birth must be a valid date in the past, within the last 100 years"
	MsgMobile     = "Mobile number must be 10 digits and start with 6, 7, 8 or 9"
	MsgNationalID = "National ID must be 12 digits with a valid check digit"
)

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

var dobLayouts = []string{DateLayout, "02-01-2006", time.RFC3339}

// Fields is the sanitized input checked by ValidateAll.
type Fields struct {
	Name       string
	Father     string
	DOB        string
	Mobile     string
	NationalID string
}

// DigitsOnly drops every non-digit rune.
func DigitsOnly(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ValidateMobile(v string) bool {
	return mobilePattern.MatchString(DigitsOnly(v))
}

// NationalIDCheckDigit computes the check digit for the first 11 digits of a
// national ID. Digits at even positions (0-based, from the left) are added
// as-is; digits at odd positions are doubled, minus 9 when above 9. It
// returns -1 if payload is not exactly 11 digits.
func NationalIDCheckDigit(payload string) int {
	if len(payload) != 11 {
		return -1
	}
	sum := 0
	for i := 0; i < len(payload); i++ {
		d := int(payload[i] - '0')
		if d < 0 || d > 9 {
			return -1
		}
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

func ValidateNationalID(v string) bool {
	digits := DigitsOnly(v)
	if len(digits) != 12 {
		return false
	}
	return NationalIDCheckDigit(digits[:11]) == int(digits[11]-'0')
}

// ParseDOB accepts YYYY-MM-DD, DD-MM-YYYY or an RFC3339 timestamp and returns
// the calendar date at UTC midnight.
func ParseDOB(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ValidateDOB rejects unparseable dates, dates after now and dates more than
// 100 years before now.
func ValidateDOB(v string, now time.Time) bool {
	dob, ok := ParseDOB(v)
	if !ok {
		return false
	}
	if dob.After(now) {
		return false
	}
	return !dob.Before(now.AddDate(-MaxAgeYears, 0, 0))
}

func validLength(v string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	return n >= MinNameLength && n <= MaxNameLength
}

func ValidateName(v string) bool       { return validLength(v) }
func ValidateFatherName(v string) bool { return validLength(v) }

// ValidateAll returns every violated rule, in form order. An empty slice
// means the submission is valid.
func ValidateAll(f Fields, now time.Time) []string {
	errs := []string{}
	if !ValidateName(f.Name) {
		errs = append(errs, MsgName)
	}
	if !ValidateFatherName(f.Father) {
		errs = append(errs, MsgFatherName)
	}
	if !ValidateDOB(f.DOB, now) {
		errs = append(errs, MsgDOB)
	}
	if !ValidateMobile(f.Mobile) {
		errs = append(errs, MsgMobile)
	}
	if !ValidateNationalID(f.NationalID) {
		errs = append(errs, MsgNationalID)
	}
	return errs
}
