package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"1", "1", nil},
		{"1.0", "1", nil},
		{"1.23", "1.23", nil},
		{"1,23", "1.23", nil},
		{"0", "0", nil},
		{"0.001", "0.001", nil},
		{"+5", "5", nil},
		{" 2.50 ", "2.5", nil},
		{"-1", "", ErrNegativeAmount},
		{"-0.01", "", ErrNegativeAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
		{"-0", "0", nil},
		{"-0.00", "0", nil},
		{"1e3", "1000", nil},
		{"1.5E2", "150", nil},
		{"2.5e-1", "0.25", nil},
		{"-1e3", "", ErrNegativeAmount},
		{"1e", "", ErrInvalidAmount},
		{"1e100", "", ErrInvalidAmount},
		{"e3", "", ErrInvalidAmount},
		{"--1", "", ErrInvalidAmount},
		{"NaN", "", ErrInvalidAmount},
		{"Inf", "", ErrInvalidAmount},
		{"-", "", ErrInvalidAmount},
		{"", "", ErrMissingField},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || got.String() != tc.out {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.String(), err)
		}
	}
}

func TestSumAmountsIsExact(t *testing.T) {
	a, _ := ParseAmount("0.1")
	b, _ := ParseAmount("0.2")
	if got := SumAmounts(a, b); got.String() != "0.3" {
		t.Fatalf("expected 0.3, got %s", got)
	}
	huge, _ := ParseAmount("9223372036854775807")
	if got := SumAmounts(huge, huge); got.String() != "18446744073709551614" {
		t.Fatalf("expected no overflow, got %s", got)
	}
	if got := SumAmounts(); !got.IsZero() {
		t.Fatalf("expected zero for empty sum, got %s", got)
	}
}
