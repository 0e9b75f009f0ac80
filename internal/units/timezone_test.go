package units

import (
	"testing"
	"time"
)

func TestIsTimezoneValid(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		expected bool
	}{
		{"valid UTC", "UTC", true},
		{"valid Berlin", "Europe/Berlin", true},
		{"invalid", "Invalid/Timezone", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := IsTimezoneValid(tt.timezone)
			if res != tt.expected {
				t.Errorf("IsTimezoneValid(%s) = %v, want %v", tt.timezone, res, tt.expected)
			}
		})
	}
}

func TestConvertTime(t *testing.T) {
	captured := time.Date(2025, 9, 27, 10, 58, 27, 0, time.UTC)

	got, err := ConvertTime(captured, "UTC")
	if err != nil || !got.Equal(captured) || got.Location() != time.UTC {
		t.Errorf("ConvertTime(UTC) = %v, %v", got, err)
	}

	got, err = ConvertTime(captured, "")
	if err != nil || got.Location() != time.UTC {
		t.Errorf("ConvertTime(\"\") = %v, %v", got, err)
	}

	got, err = ConvertTime(captured, "Europe/Berlin")
	if err != nil {
		t.Fatalf("ConvertTime(Europe/Berlin) error: %v", err)
	}
	if !got.Equal(captured) {
		t.Errorf("conversion changed the instant: %v", got)
	}
	// CEST is UTC+2 in late September.
	if got.Hour() != 12 {
		t.Errorf("Berlin hour = %d, want 12", got.Hour())
	}

	if _, err := ConvertTime(captured, "Mars/Olympus_Mons"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
