package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestReferenceSunday(t *testing.T) {
	ref := ReferenceSunday()
	if ref.Weekday() != time.Sunday {
		t.Fatalf("weekday = %v, want Sunday", ref.Weekday())
	}
	if ref.Year() != 2000 || ref.Month() != time.January || ref.Day() != 2 {
		t.Errorf("date = %v, want 2000-01-02", ref)
	}
	if ref.Hour() != 0 || ref.Minute() != 0 {
		t.Errorf("time = %02d:%02d, want midnight", ref.Hour(), ref.Minute())
	}
	if _, offset := ref.Zone(); offset != -5*3600 {
		t.Errorf("offset = %d, want -18000 (EST)", offset)
	}
}

func TestResolveTime(t *testing.T) {
	tests := []struct {
		day        Weekday
		clock      string
		wantHour   int
		wantMinute int
	}{
		{Sunday, "12:00am", 0, 0},
		{Monday, "12:00pm", 12, 0},
		{Tuesday, "11:59pm", 23, 59},
		{Wednesday, "8:30am", 8, 30},
		{Thursday, "1:05PM", 13, 5},
		{Friday, "09:15Am", 9, 15},
		{Saturday, "12:30am", 0, 30},
	}

	for _, tt := range tests {
		got, err := ResolveTime(tt.day, tt.clock)
		if err != nil {
			t.Fatalf("ResolveTime(%v, %q): %v", tt.day, tt.clock, err)
		}
		if got.Weekday() != time.Weekday(tt.day) {
			t.Errorf("ResolveTime(%v, %q) weekday = %v", tt.day, tt.clock, got.Weekday())
		}
		if got.Hour() != tt.wantHour || got.Minute() != tt.wantMinute {
			t.Errorf("ResolveTime(%v, %q) = %02d:%02d, want %02d:%02d",
				tt.day, tt.clock, got.Hour(), got.Minute(), tt.wantHour, tt.wantMinute)
		}
		wantDate := ReferenceSunday().AddDate(0, 0, int(tt.day))
		if got.YearDay() != wantDate.YearDay() {
			t.Errorf("ResolveTime(%v, %q) date = %v, want %v", tt.day, tt.clock, got, wantDate)
		}
	}
}

func TestResolveTimeMidnightIsReference(t *testing.T) {
	got, err := ResolveTime(Sunday, "12:00am")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.Equal(ReferenceSunday()) {
		t.Errorf("got %v, want %v", got, ReferenceSunday())
	}
}

func TestResolveTimeInvalid(t *testing.T) {
	for _, clock := range []string{"25:99xx", "", "8:30", "13:00pm", "0:30am", "8:60am", "8:5am", "108:00am", " 8:00am", "8:00 am"} {
		_, err := ResolveTime(Monday, clock)
		if !errors.Is(err, ErrInvalidTime) {
			t.Errorf("ResolveTime(Monday, %q) err = %v, want ErrInvalidTime", clock, err)
		}
	}
}

func TestResolveTimeInvalidDay(t *testing.T) {
	if _, err := ResolveTime(Weekday(7), "8:00am"); !errors.Is(err, ErrUnknownDay) {
		t.Errorf("err = %v, want ErrUnknownDay", err)
	}
}
