package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Currency string  `validate:"omitempty,iso4217"`
	Color    string  `validate:"omitempty,hex_color"`
	Cycle    string  `validate:"omitempty,payment_cycle"`
	Type     string  `validate:"omitempty,account_type"`
	IBAN     *string `validate:"omitempty,iban"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	RegisterOn(v)
	return v
}

func strPtr(s string) *string { return &s }

func TestCustomTags(t *testing.T) {
	v := newValidate()
	tests := []struct {
		name  string
		in    sample
		valid bool
	}{
		{"empty", sample{}, true},
		{"currency_ok", sample{Currency: "EUR"}, true},
		{"currency_bad", sample{Currency: "EURO"}, false},
		{"color_ok", sample{Color: "#a1B2c3"}, true},
		{"color_short_rejected", sample{Color: "#abc"}, false},
		{"cycle_ok", sample{Cycle: "q"}, true},
		{"cycle_bad", sample{Cycle: "w"}, false},
		{"account_type_ok", sample{Type: "depot"}, true},
		{"account_type_bad", sample{Type: "cash"}, false},
		{"iban_ok", sample{IBAN: strPtr("DE89 3704 0044 0532 0130 00")}, true},
		{"iban_bad_checksum", sample{IBAN: strPtr("DE88370400440532013000")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if (err == nil) != tt.valid {
				t.Errorf("valid = %v, want %v (err: %v)", err == nil, tt.valid, err)
			}
		})
	}
}

func TestIsIBAN(t *testing.T) {
	for _, iban := range []string{"GB82WEST12345698765432", "de89370400440532013000"} {
		if !IsIBAN(iban) {
			t.Errorf("IsIBAN(%q) = false", iban)
		}
	}
	for _, iban := range []string{"", "DE89", "XX00000000000000000000"} {
		if IsIBAN(iban) {
			t.Errorf("IsIBAN(%q) = true", iban)
		}
	}
}
