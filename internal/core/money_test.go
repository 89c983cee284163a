package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
		{"1.٣", 0, false},  // Arabic-Indic digit
		{"5.５", 0, false},  // fullwidth digit
		{"٣.50", 0, false}, // non-ASCII integer part
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseStoredAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"50.0", 5000, true},
		{"50", 5000, true},
		{"12.345", 1235, true},
		{"1e3", 100000, true},
		{"-4.5", -450, true},
		{"", 0, false},
		{"nan?", 0, false},
		{"92233720368547758.07", 9223372036854775807, true},
		{"1e30", 0, false},
		{"-1e30", 0, false},
		{"92233720368547758.08", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseStoredAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		0:       "₹0.00",
		5:       "₹0.05",
		123450:  "₹1234.50",
		-2500:   "-₹25.00",
		-1:      "-₹0.01",
		1000000: "₹10000.00",
	}
	for cents, want := range cases {
		if got := FormatAmount(DefaultCurrencySymbol, cents); got != want {
			t.Errorf("FormatAmount(%d) = %q, want %q", cents, got, want)
		}
	}
	if got := FormatAmount("$", 199); got != "$1.99" {
		t.Errorf("custom symbol: got %q", got)
	}
}

func TestMoneyPlain(t *testing.T) {
	if got := (Money{Cents: 5000}).Plain(); got != "50.00" {
		t.Fatalf("Plain() = %q", got)
	}
	if got := (Money{Cents: 7}).Plain(); got != "0.07" {
		t.Fatalf("Plain() = %q", got)
	}
}
