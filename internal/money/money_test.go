package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize_StringAndNumberAgree(t *testing.T) {
	fromString, err := Normalize("123,45 PLN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromNumber, err := Normalize(123.45)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fromString.Equal(fromNumber) {
		t.Fatalf("string and number normalization differ: %s vs %s", fromString, fromNumber)
	}
}

func TestNormalize_Strings(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123.45", "123.45"},
		{"123,45 PLN", "123.45"},
		{" 15.00 PLN ", "15"},
		{"zł 99,90", "99.9"},
		{"-5.5", "-5.5"},
		{"100", "100"},
		{"19.999", "20"},
		// comma as thousands grouping when a dot is already the separator
		{"1,234.56", "1234.56"},
		{"12,345", "12.35"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error: %v", c.in, err)
		}
		want, _ := decimal.NewFromString(c.want)
		if !got.Equal(want) {
			t.Fatalf("Normalize(%q) = %s, want %s", c.in, got, want)
		}
	}
}

func TestNormalize_MalformedFailsClosed(t *testing.T) {
	for _, in := range []any{"", "PLN", "abc", nil, struct{}{}} {
		got, err := Normalize(in)
		if !errors.Is(err, ErrMalformedAmount) {
			t.Fatalf("Normalize(%v): expected ErrMalformedAmount, got %v", in, err)
		}
		if !got.IsZero() {
			t.Fatalf("Normalize(%v): expected zero on failure, got %s", in, got)
		}
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"195.00", 19500},
		{"15", 1500},
		{"0.01", 1},
		{"99.995", 10000},
	}
	for _, c := range cases {
		d, _ := decimal.NewFromString(c.in)
		if got := ToMinorUnits(d); got != c.want {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", c.in, got, c.want)
		}
	}
}
