package httpapi

import (
	"encoding/json"
	"strings"
	"time"
)

// The validators operate on the raw values of a parsed JSON body. They
// are strict about JSON types: booleans never pass as integers and
// fractional numbers never pass as integers.

// ExpectString fails unless v is a string whose trimmed form is
// non-empty, and returns the trimmed value.
func ExpectString(v any, field string) (string, error) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", BadRequest("'%s' muss eine nicht-leere Zeichenkette sein", field)
	}
	return strings.TrimSpace(s), nil
}

// asInt reports whether v is an integral JSON number and returns its
// value. json.Number is what ParseJSONBody produces; plain int covers
// values assembled in tests.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// ExpectPositiveInt fails unless v is an integer strictly greater than
// zero.
func ExpectPositiveInt(v any, field string) (int, error) {
	i, ok := asInt(v)
	if !ok {
		return 0, BadRequest("'%s' muss eine Ganzzahl sein", field)
	}
	if i <= 0 {
		return 0, BadRequest("'%s' muss größer als 0 sein", field)
	}
	return i, nil
}

// ExpectNonNegativeInt fails unless v is an integer greater than or
// equal to zero.
func ExpectNonNegativeInt(v any, field string) (int, error) {
	i, ok := asInt(v)
	if !ok {
		return 0, BadRequest("'%s' muss eine Ganzzahl sein", field)
	}
	if i < 0 {
		return 0, BadRequest("'%s' darf nicht negativ sein", field)
	}
	return i, nil
}

// OptionalString maps nil and whitespace-only strings to absent (nil
// result) and otherwise behaves like ExpectString minus the non-empty
// requirement.
func OptionalString(v any, field string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, BadRequest("'%s' muss eine Zeichenkette sein", field)
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}
	return &trimmed, nil
}

// OptionalInt maps nil and the empty string to absent. positive selects
// between the positive and the non-negative constraint.
func OptionalInt(v any, field string, positive bool) (*int, error) {
	if v == nil || v == "" {
		return nil, nil
	}
	var (
		i   int
		err error
	)
	if positive {
		i, err = ExpectPositiveInt(v, field)
	} else {
		i, err = ExpectNonNegativeInt(v, field)
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ParseISOTimestamp validates an optional ISO-8601 timestamp ("Z" suffix
// or explicit offset) and normalizes it to UTC with a literal "Z". The
// normalization is idempotent. nil and empty strings map to absent.
func ParseISOTimestamp(v any, field string) (string, error) {
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", BadRequest("'%s' muss ein ISO-8601 String sein", field)
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", nil
	}
	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return "", BadRequest("'%s' ist kein gültiger ISO-8601 Zeitstempel", field)
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}
