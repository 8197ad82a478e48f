package httpapi

import (
	"encoding/json"
	"errors"
	"testing"
)

func wantBadRequest(t *testing.T, err error) {
	t.Helper()
	var httpErr *Error
	if err == nil || !errors.As(err, &httpErr) || httpErr.Status != 400 {
		t.Fatalf("err = %v, want a 400 Error", err)
	}
}

func TestExpectString(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr bool
	}{
		{name: "plain string", value: "neck-stretch", want: "neck-stretch"},
		{name: "trims whitespace", value: "  shoulder roll  ", want: "shoulder roll"},
		{name: "empty string", value: "", wantErr: true},
		{name: "whitespace only", value: "   ", wantErr: true},
		{name: "nil", value: nil, wantErr: true},
		{name: "number", value: json.Number("3"), wantErr: true},
		{name: "bool", value: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectString(tt.value, "field")
			if tt.wantErr {
				wantBadRequest(t, err)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpectPositiveInt(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{name: "positive number", value: json.Number("3"), want: 3},
		{name: "zero", value: json.Number("0"), wantErr: true},
		{name: "negative", value: json.Number("-1"), wantErr: true},
		{name: "float", value: json.Number("3.5"), wantErr: true},
		{name: "integral float literal", value: json.Number("3.0"), wantErr: true},
		{name: "bool", value: true, wantErr: true},
		{name: "string", value: "3", wantErr: true},
		{name: "nil", value: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectPositiveInt(tt.value, "sets")
			if tt.wantErr {
				wantBadRequest(t, err)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExpectNonNegativeInt(t *testing.T) {
	if got, err := ExpectNonNegativeInt(json.Number("0"), "rest"); err != nil || got != 0 {
		t.Errorf("zero should pass, got (%d, %v)", got, err)
	}
	if _, err := ExpectNonNegativeInt(json.Number("-1"), "rest"); err == nil {
		t.Error("negative value should fail")
	}
	if _, err := ExpectNonNegativeInt(false, "rest"); err == nil {
		t.Error("bool should fail")
	}
}

func TestOptionalInt(t *testing.T) {
	if got, err := OptionalInt(nil, "prep", false); err != nil || got != nil {
		t.Errorf("nil should be absent, got (%v, %v)", got, err)
	}
	if got, err := OptionalInt("", "prep", false); err != nil || got != nil {
		t.Errorf("empty string should be absent, got (%v, %v)", got, err)
	}
	if got, err := OptionalInt(json.Number("0"), "prep", false); err != nil || got == nil || *got != 0 {
		t.Errorf("zero should pass the non-negative variant, got (%v, %v)", got, err)
	}
	if _, err := OptionalInt(json.Number("0"), "rep", true); err == nil {
		t.Error("zero should fail the positive variant")
	}
}

func TestOptionalString(t *testing.T) {
	if got, err := OptionalString(nil, "note"); err != nil || got != nil {
		t.Errorf("nil should be absent, got (%v, %v)", got, err)
	}
	if got, err := OptionalString("  ", "note"); err != nil || got != nil {
		t.Errorf("blank should be absent, got (%v, %v)", got, err)
	}
	if _, err := OptionalString(json.Number("1"), "note"); err == nil {
		t.Error("number should fail")
	}
	got, err := OptionalString(" bell ", "note")
	if err != nil || got == nil || *got != "bell" {
		t.Errorf("got (%v, %v), want trimmed value", got, err)
	}
}

func TestParseISOTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr bool
	}{
		{
			name:  "offset converted to UTC",
			value: "2024-07-09T12:45:00+02:00",
			want:  "2024-07-09T10:45:00Z",
		},
		{
			name:  "already normalized is idempotent",
			value: "2024-07-09T10:45:00Z",
			want:  "2024-07-09T10:45:00Z",
		},
		{name: "absent", value: nil, want: ""},
		{name: "empty string", value: "   ", want: ""},
		{name: "no offset", value: "2024-07-09T12:45:00", wantErr: true},
		{name: "garbage", value: "yesterday", wantErr: true},
		{name: "wrong type", value: json.Number("1720521900"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseISOTimestamp(tt.value, "finishedAt")
			if tt.wantErr {
				wantBadRequest(t, err)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
