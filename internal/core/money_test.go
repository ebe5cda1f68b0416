package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundCurrency(t *testing.T) {
	cases := map[string]string{
		"45.456": "45.46",
		"45.455": "45.46", // half away from zero, not banker's
		"45.454": "45.45",
		"0.004":  "0",
		"10":     "10",
	}
	for in, want := range cases {
		got := RoundCurrency(decimal.RequireFromString(in))
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("RoundCurrency(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestSumPrices(t *testing.T) {
	items := []Expense{
		{Price: NewPrice(decimal.RequireFromString("0.1"))},
		{Price: NewPrice(decimal.RequireFromString("0.2"))},
		{}, // absent price
	}
	if got := SumPrices(items); !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("sum = %s, want 0.3", got)
	}
}

func TestFormatEuro(t *testing.T) {
	if got := FormatEuro(decimal.RequireFromString("45.456")); got != "45.46€" {
		t.Fatalf("FormatEuro = %q", got)
	}
}

func TestMonthName(t *testing.T) {
	if got := MonthName(time.March); got != "March" {
		t.Fatalf("MonthName(March) = %q", got)
	}
	if got := MonthName(time.Month(13)); got != "" {
		t.Fatalf("MonthName(13) = %q", got)
	}
}
