package core

import (
	"encoding/json"
	"testing"
)

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
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1234", 1234, true},    // integer cents
		{`"12,34"`, 1234, true}, // decimal reais, comma separator
		{`"12.34"`, 1234, true}, // decimal reais, dot separator
		{`"150,75"`, 15075, true},
		{`"abc"`, 0, false},
		{`"-1"`, 0, false},
		{`"0"`, 0, false},
		{`true`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.ok {
			if err != nil || m.Cents != tc.want {
				t.Errorf("Unmarshal(%s) = %d cents (err=%v), want %d", tc.in, m.Cents, err, tc.want)
			}
		} else if err == nil {
			t.Errorf("Unmarshal(%s) expected error", tc.in)
		}
	}
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "R$0,00"},
		{1, "R$0,01"},
		{123456, "R$1.234,56"},
		{8100000, "R$81.000,00"},
		{-250, "-R$2,50"},
	}
	for _, tc := range cases {
		if got := FormatBRL(tc.cents); got != tc.want {
			t.Errorf("FormatBRL(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
