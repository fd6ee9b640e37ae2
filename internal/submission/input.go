package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxFieldLength caps every sanitized string field.
const MaxFieldLength = 255

// unsafeChars are removed from free-text fields before validation.
const unsafeChars = "<>&\"'`=/"

// flexString accepts a JSON string or number; forms sometimes post the
// mobile and national ID as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// rawInput is the wire shape of POST /api/submit. "aadhar" is the legacy
// name for nationalId.
type rawInput struct {
	Name       flexString `json:"name" validate:"required"`
	DOB        flexString `json:"dob" validate:"required"`
	Mobile     flexString `json:"mobile" validate:"required"`
	Father     flexString `json:"father" validate:"required"`
	NationalID flexString `json:"nationalId" validate:"required"`
	Aadhar     flexString `json:"aadhar,omitempty"`
}

var presence = newPresenceValidator()

func newPresenceValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseInput decodes body. It returns a non-nil error for malformed JSON and
// the list of missing required fields (by JSON name) otherwise.
func parseInput(body []byte) (*rawInput, []string, error) {
	var in rawInput
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(string(in.NationalID)) == "" {
		in.NationalID = in.Aadhar
	}
	var missing []string
	if err := presence.Struct(in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, nil, err
		}
		for _, fe := range verrs {
			missing = append(missing, fe.Field())
		}
	}
	return &in, missing, nil
}

// sanitizeText trims, removes HTML-significant characters and caps length.
func sanitizeText(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) {
			return -1
		}
		return r
	}, v)
	v = strings.TrimSpace(v)
	return truncate(v, MaxFieldLength)
}

func truncate(v string, n int) string {
	if utf8.RuneCountInString(v) <= n {
		return v
	}
	r := []rune(v)
	return string(r[:n])
}
