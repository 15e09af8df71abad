package task

import (
	"errors"
	"testing"
	"time"
)

func TestHours(t *testing.T) {
	hours := Hours()
	if len(hours) != HoursPerDay {
		t.Fatalf("got %d hours, want %d", len(hours), HoursPerDay)
	}
	if hours[0] != "6:00" || hours[len(hours)-1] != "23:00" {
		t.Errorf("got range %s..%s, want 6:00..23:00", hours[0], hours[len(hours)-1])
	}
	for i, h := range hours {
		if !h.Valid() {
			t.Errorf("hour %q should be valid", h)
		}
		if h.Index() != i {
			t.Errorf("hour %q: got index %d, want %d", h, h.Index(), i)
		}
	}
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in      string
		want    Hour
		wantErr bool
	}{
		{"9:00", "9:00", false},
		{"09:00", "9:00", false},
		{"23:00", "23:00", false},
		{"6:00", "6:00", false},
		{"5:00", "", true},
		{"24:00", "", true},
		{"9:30", "", true},
		{"nine", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHour(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHour) {
					t.Errorf("expected ErrInvalidHour, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlotKey_RoundTrip(t *testing.T) {
	days := []time.Time{
		time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}
	// Every day of a leap year plus the range edges.
	for d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	for _, d := range days {
		date := d.Format(DateLayout)
		for _, h := range Hours() {
			key, err := EncodeSlotKey(date, h)
			if err != nil {
				t.Fatalf("EncodeSlotKey(%s, %s): %v", date, h, err)
			}
			got, err := DecodeSlotKey(key)
			if err != nil {
				t.Fatalf("DecodeSlotKey(%s): %v", key, err)
			}
			if got.Date != date || got.Hour != h {
				t.Fatalf("round trip %s %s: got %v", date, h, got)
			}
		}
	}
}

func TestEncodeSlotKey(t *testing.T) {
	key, err := EncodeSlotKey("2024-03-01", "9:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "2024-03-01_9:00" {
		t.Errorf("got %q, want %q", key, "2024-03-01_9:00")
	}

	if _, err := EncodeSlotKey("0000-12-31", "9:00"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("year zero: got %v, want ErrInvalidDate", err)
	}
	if _, err := EncodeSlotKey("2024-3-1", "9:00"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("unpadded date: got %v, want ErrInvalidDate", err)
	}
}

func TestDecodeSlotKey_Malformed(t *testing.T) {
	keys := []string{
		"",
		"9:00",
		"2024-03-01",
		"2024-03-01_9:00_1709283600000",
		"2024-03-01_9:30",
		"2024-02-30_9:00",
		"_9:00",
		"2024-03-01_",
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			_, err := DecodeSlotKey(key)
			if !errors.Is(err, ErrMalformedKey) {
				t.Fatalf("expected ErrMalformedKey, got %v", err)
			}
			var mk *MalformedKeyError
			if !errors.As(err, &mk) || mk.Key != key {
				t.Errorf("expected *MalformedKeyError for %q, got %v", key, err)
			}
		})
	}
}

func TestIDTime(t *testing.T) {
	created := time.UnixMilli(1709283600123)
	id := NewID(Coord{Date: "2024-03-01", Hour: "9:00"}, created)

	got, ok := IDTime(id)
	if !ok {
		t.Fatalf("IDTime(%q) failed", id)
	}
	if !got.Equal(created) {
		t.Errorf("got %v, want %v", got, created)
	}

	if _, ok := IDTime("no-timestamp"); ok {
		t.Error("expected failure for an id without timestamp")
	}
}
