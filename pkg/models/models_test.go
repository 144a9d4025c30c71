package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMonthEnd(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		if got := MonthEnd(c.in); !got.Equal(c.want) {
			t.Errorf("MonthEnd(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestMonthIndexRoundTrip(t *testing.T) {
	m := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := MonthFromIndex(MonthIndex(m)); !got.Equal(m) {
		t.Fatalf("round trip = %v, want %v", got, m)
	}
	if MonthIndex(AddMonths(m, 1))-MonthIndex(m) != 1 {
		t.Fatal("consecutive months should differ by one")
	}
	if got := AddMonths(m, -1); !got.Equal(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("AddMonths(-1) = %v", got)
	}
}

func TestMonthsBetweenInclusive(t *testing.T) {
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := MonthsBetweenInclusive(start, end)
	if len(got) != 4 {
		t.Fatalf("got %d months, want 4", len(got))
	}
	if got[0].Month() != time.March || got[3].Month() != time.June {
		t.Fatalf("unexpected months: %v", got)
	}
}

func TestParseMonth(t *testing.T) {
	want := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-05-01", "2024-05", "2024-05-31 00:00:00", "15/05/2024", "May 2024", "052024"} {
		got, err := ParseMonth(in)
		if err != nil {
			t.Fatalf("ParseMonth(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseMonth(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseMonth("not a month"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&SchemaError{Table: "referral", Missing: []string{"month"}}, "SchemaError"},
		{fmt.Errorf("wrapped: %w", &InsufficientDataError{What: "baseline"}), "InsufficientDataError"},
		{&DegenerateRateError{Rate: "utilisation rate"}, "DegenerateRateError"},
		{&PrerequisiteMissingError{Step: "reconcile", Missing: "forecast"}, "PrerequisiteMissingError"},
		{&InvalidRangeError{Field: "baseline", Reason: "start after end"}, "InvalidRangeError"},
		{errors.New("other"), ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := ErrorKind(c.err); got != c.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestQuantityJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}{Known(2.5), Unknown()})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":2.5,"b":null}` {
		t.Fatalf("unexpected JSON %s", b)
	}
	var q Quantity
	if err := json.Unmarshal([]byte("null"), &q); err != nil || q.Valid {
		t.Fatalf("null should decode to unknown, got %+v err=%v", q, err)
	}
}

func TestDatasetSpecialties(t *testing.T) {
	d := &Dataset{Referrals: []ReferralRecord{
		{Specialty: "Cardiology", Priority: "Routine"},
		{Specialty: "Dermatology"},
		{Specialty: "Cardiology", Priority: "Urgent"},
		{Specialty: "Cardiology", Priority: "Routine"},
	}}
	if got := d.Specialties(); len(got) != 2 || got[0] != "Cardiology" {
		t.Fatalf("Specialties() = %v", got)
	}
	if got := d.Priorities("Cardiology"); len(got) != 2 || got[1] != "Urgent" {
		t.Fatalf("Priorities() = %v", got)
	}
	if d.HasSpecialty("Neurology") {
		t.Fatal("unexpected specialty")
	}
}
