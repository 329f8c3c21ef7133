package telemetry

import (
	"math"
	"testing"
)

func TestFormatFixed1(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{72.46, "72.5"},
		{72.44, "72.4"},
		{100, "100.0"},
		{0.25, "0.3"},  // exact tie rounds up
		{0.35, "0.3"},  // 0.34999... in binary
		{2.45, "2.5"},  // 2.4500000000000001776...
		{1.05, "1.1"},  // 1.0500000000000000444...
		{-1.25, "-1.3"}, // ties away from zero
		{-0.04, "-0.0"},
		{math.Copysign(0, -1), "0.0"},
		{9.96, "10.0"},
		{123456.789, "123456.8"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{1e21, "1e+21"},
	}

	for _, tc := range cases {
		if got := FormatFixed1(tc.in); got != tc.want {
			t.Fatalf("FormatFixed1(%v)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"42", 42, true},
		{"  42.5abc", 42.5, true},
		{"-3.5", -3.5, true},
		{".5", 0.5, true},
		{"5.", 5, true},
		{"1e3", 1000, true},
		{"1e", 1, true},
		{"1.2.3", 1.2, true},
		{"Infinity", math.Inf(1), true},
		{"-Infinity", math.Inf(-1), true},
		{"infinity", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"\t\n\u00A0\u2028\u3000 7", 7, true},
		{"\uFEFF8", 8, true},
		{"\u008542", 0, false},
		{"\u200B42", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseFloat(tc.in)
		if ok != tc.valid {
			t.Fatalf("ParseFloat(%q) ok=%v, want %v", tc.in, ok, tc.valid)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseFloat(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{
		5:       "5",
		1.5:     "1.5",
		-2:      "-2",
		0:       "0",
		1e21:    "1e+21",
		1e-7:    "1e-7",
		0.00001: "0.00001",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v)=%q, want %q", in, got, want)
		}
	}
}
