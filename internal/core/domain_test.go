package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	want := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	good := []string{
		"2020-03-01",
		"2020-03-17",
		"2020-03",
		"2020-03-17T10:20:30Z",
		"2020-03-17 10:20:30",
		"2020-03-17 10:20:30+00",
		"2020/03/17",
		"2020/03",
		"03/2020",
		"Mar 2020",
		"March 2020",
		"  2020-03-05  ",
	}
	for _, in := range good {
		got, err := ParseMonth(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}

	if _, err := ParseMonth(""); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	for _, in := range []string{"yesterday", "2020-13-01", "13/2020"} {
		if _, err := ParseMonth(in); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q: expected ErrInvalidMonth, got %v", in, err)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel(time.Date(2019, time.November, 1, 0, 0, 0, 0, time.UTC)); got != "Nov 2019" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestNormalizeSpecialties(t *testing.T) {
	cases := []struct {
		raw   string
		delim string
		want  []string
	}{
		{"x", ";", []string{"x"}},
		{"x;x;z", ";", []string{"x", "x", "z"}},
		{"x y  z", ";", []string{"x", "y", "z"}},
		{" x ; y ;; ", ";", []string{"x", "y"}},
		{"a|b", "|", []string{"a", "b"}},
		{"a;;b\u00a0c", ";", []string{"a", "b", "c"}},
		{"x\u2003y", ";", []string{"x", "y"}},
		{"", ";", []string{MissingSpecialty}},
		{" ; ; ", ";", []string{MissingSpecialty}},
		{"missing", ";", []string{MissingSpecialty}},
	}
	for _, tc := range cases {
		got := NormalizeSpecialties(tc.raw, tc.delim)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.raw, tc.want, got)
		}
	}
}

func TestFilterSelectionValidate(t *testing.T) {
	cases := []struct {
		name string
		sel  FilterSelection
		err  error
	}{
		{"full range", FilterSelection{MinOrdinal: 0, MaxOrdinal: 2}, nil},
		{"single month", FilterSelection{MinOrdinal: 1, MaxOrdinal: 1}, nil},
		{"negative min", FilterSelection{MinOrdinal: -1, MaxOrdinal: 1}, ErrOrdinalOutOfRange},
		{"max past end", FilterSelection{MinOrdinal: 0, MaxOrdinal: 3}, ErrOrdinalOutOfRange},
		{"inverted", FilterSelection{MinOrdinal: 2, MaxOrdinal: 1}, ErrInvertedRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sel.Validate(3)
			if tc.err == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if !IsSelectionError(err) {
				t.Fatalf("expected a SelectionError, got %T", err)
			}
		})
	}
}

func TestIngestErrorMessage(t *testing.T) {
	err := &IngestError{Row: 4, Field: "PAID_AMOUNT", Value: "-3", Err: ErrNegativeAmount}
	if got := err.Error(); got != `ingest row 4, field PAID_AMOUNT ("-3"): negative amount` {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, ErrNegativeAmount) || !IsIngestError(err) {
		t.Fatalf("expected wrapped sentinel")
	}
}
