// Package validation checks customer, shipping and payment input. Every rule
// runs independently so that all failing fields are reported together.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[0-9\-+()\s]{10,15}$`)
	zipRe   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	digits  = regexp.MustCompile(`^\d+$`)
)

// Minimum lengths of free-text fields.
const (
	MinNameLength    = 3
	MinAddressLength = 5
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// Error reports every field that failed validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validator accumulates field errors. The zero value is ready to use.
type Validator struct {
	fields []FieldError
}

// Fail records a failure for field.
func (v *Validator) Fail(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

// Len returns the number of recorded failures.
func (v *Validator) Len() int { return len(v.fields) }

// Err returns an *Error carrying all recorded failures, or nil.
func (v *Validator) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	out := make([]FieldError, len(v.fields))
	copy(out, v.fields)
	return &Error{Fields: out}
}

// Required fails on blank input.
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.Fail(field, "is required")
		return false
	}
	return true
}

// MinLength fails on blank input or input shorter than n characters.
func (v *Validator) MinLength(field, value string, n int) {
	if !v.Required(field, value) {
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
		v.Fail(field, fmt.Sprintf("must be at least %d characters", n))
	}
}

// Name checks a person's name.
func (v *Validator) Name(field, value string) {
	v.MinLength(field, value, MinNameLength)
}

// Email checks an email address.
func (v *Validator) Email(field, value string) {
	if !v.Required(field, value) {
		return
	}
	if !emailRe.MatchString(value) {
		v.Fail(field, "is not a valid email address")
	}
}

// Phone checks an optional phone number; empty input passes.
func (v *Validator) Phone(field, value string) {
	if value == "" {
		return
	}
	if !phoneRe.MatchString(value) {
		v.Fail(field, "is not a valid phone number")
	}
}

// Zip checks a US postal code, 12345 or 12345-6789.
func (v *Validator) Zip(field, value string) {
	if !v.Required(field, value) {
		return
	}
	if !zipRe.MatchString(value) {
		v.Fail(field, "is not a valid postal code")
	}
}

// Card holds raw payment card input.
type Card struct {
	Number string
	// Expiry is MM/YY.
	Expiry string
	CVC    string
}

// Last4 returns the last four digits of the card number, or "".
func (c Card) Last4() string {
	n := normalizeCardNumber(c.Number)
	if len(n) < 4 {
		return ""
	}
	return n[len(n)-4:]
}

func normalizeCardNumber(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// Card checks card fields against now. Fields are prefixed with prefix.
func (v *Validator) Card(prefix string, c Card, now time.Time) {
	number := normalizeCardNumber(c.Number)
	if v.Required(prefix+"number", number) && (len(number) != 16 || !digits.MatchString(number)) {
		v.Fail(prefix+"number", "must be 16 digits")
	}

	if v.Required(prefix+"expiry", c.Expiry) {
		if err := checkExpiry(c.Expiry, now); err != "" {
			v.Fail(prefix+"expiry", err)
		}
	}

	if v.Required(prefix+"cvc", c.CVC) && (len(c.CVC) != 3 || !digits.MatchString(c.CVC)) {
		v.Fail(prefix+"cvc", "must be 3 digits")
	}
}

// checkExpiry returns a failure message, or "" when expiry is a valid
// MM/YY that has not passed. A card is valid through its expiry month.
func checkExpiry(expiry string, now time.Time) string {
	mm, yy, ok := strings.Cut(strings.TrimSpace(expiry), "/")
	if !ok || len(mm) != 2 || len(yy) != 2 || !digits.MatchString(mm) || !digits.MatchString(yy) {
		return "must be MM/YY"
	}
	month, _ := strconv.Atoi(mm)
	year, _ := strconv.Atoi(yy)
	if month < 1 || month > 12 {
		return "must be MM/YY"
	}
	year += 2000

	nowYear, nowMonth := now.Year(), int(now.Month())
	if year < nowYear || (year == nowYear && month < nowMonth) {
		return "card has expired"
	}
	return ""
}
