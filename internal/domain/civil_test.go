package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "08:40", want: 8*60 + 40},
		{in: "23:59", want: 23*60 + 59},
		{in: "9:00", wantErr: true},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12-30", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseTimeOfDay(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if got.String() != tt.in {
			t.Fatalf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}

func TestParseDate_RejectsLooseFormats(t *testing.T) {
	for _, in := range []string{"2024-1-10", "10/01/2024", "2024-02-30", "2024-01-10T00:00:00Z"} {
		if _, err := ParseDate(in); err == nil {
			t.Fatalf("ParseDate(%q) expected error", in)
		}
	}

	d, err := ParseDate("2024-01-10")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if d != NewDate(2024, time.January, 10) {
		t.Fatalf("ParseDate = %v, want 2024-01-10", d)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)

	if got := d.AddDays(1); got != NewDate(2024, time.February, 29) {
		t.Fatalf("AddDays(1) = %v, want 2024-02-29", got)
	}
	if got := d.AddDays(2); got != NewDate(2024, time.March, 1) {
		t.Fatalf("AddDays(2) = %v, want 2024-03-01", got)
	}
	if got := d.DaysUntil(NewDate(2024, time.March, 10)); got != 11 {
		t.Fatalf("DaysUntil = %d, want 11", got)
	}
	if !d.Before(d.AddDays(1)) || d.After(d) || d.Compare(d) != 0 {
		t.Fatalf("comparison helpers disagree for %v", d)
	}
	if got := NewDate(2024, time.January, 10).Weekday(); got != time.Wednesday {
		t.Fatalf("Weekday = %s, want Wednesday", got)
	}
}

func TestDate_ScanAcceptsDriverValues(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan(time) error: %v", err)
	}
	if d.String() != "2024-01-13" {
		t.Fatalf("Scan(time) = %v", d)
	}

	if err := d.Scan([]byte("2024-02-01")); err != nil {
		t.Fatalf("Scan(bytes) error: %v", err)
	}
	if d.String() != "2024-02-01" {
		t.Fatalf("Scan(bytes) = %v", d)
	}

	v, err := d.Value()
	if err != nil {
		t.Fatalf("Value error: %v", err)
	}
	if v != "2024-02-01" {
		t.Fatalf("Value = %v, want 2024-02-01", v)
	}
}

func TestBooking_JSONUsesWireFormats(t *testing.T) {
	b := Booking{
		Date:     NewDate(2024, time.January, 13),
		StartsAt: MustParseTimeOfDay("09:00"),
		EndsAt:   MustParseTimeOfDay("09:30"),
		Status:   BookingStatusPending,
	}

	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if out["date"] != "2024-01-13" || out["start"] != "09:00" || out["end"] != "09:30" {
		t.Fatalf("unexpected wire fields: %s", raw)
	}
}

func TestDateRangeBlock_CoversInclusiveBounds(t *testing.T) {
	b := DateRangeBlock{
		StartDate: NewDate(2024, time.January, 10),
		EndDate:   NewDate(2024, time.January, 12),
	}
	if !b.WholeDay() {
		t.Fatalf("block without times must be whole-day")
	}
	for _, d := range []Date{b.StartDate, b.StartDate.AddDays(1), b.EndDate} {
		if !b.Covers(d) {
			t.Fatalf("Covers(%v) = false, want true", d)
		}
	}
	if b.Covers(b.EndDate.AddDays(1)) || b.Covers(b.StartDate.AddDays(-1)) {
		t.Fatalf("Covers must exclude dates outside the range")
	}
}
