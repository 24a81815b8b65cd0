// Package validation collects per-field violations so forms can be
// re-rendered with inline errors and no partial writes.
package validation

import (
	"regexp"
	"strings"
	"time"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

var (
	phonePattern = regexp.MustCompile(`^\+?\d+$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MinLen(field, value string, min int, v Violations) {
	if len(strings.TrimSpace(value)) < min {
		v[field] = "too_short"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func MinInt(field string, val, min int, v Violations) {
	if val < min {
		v[field] = "too_small"
	}
}

// Phone accepts digits with an optional leading "+". Empty passes; pair
// with Required when the field is mandatory.
func Phone(field, value string, v Violations) {
	if value != "" && !phonePattern.MatchString(value) {
		v[field] = "invalid_phone"
	}
}

func Email(field, value string, v Violations) {
	if !emailPattern.MatchString(value) {
		v[field] = "invalid_email"
	}
}

// OneOf checks membership in a closed set of choices.
func OneOf(field, value string, choices []string, v Violations) {
	for _, c := range choices {
		if value == c {
			return
		}
	}
	v[field] = "invalid_choice"
}

// DateOrder flags a range whose end precedes its start.
func DateOrder(field string, from, to time.Time, v Violations) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		v[field] = "bad_date_range"
	}
}
