package scheduler

import (
	"testing"
	"time"

	"github.com/janic0/autotwitter/internal/models"
)

func TestSubSlotOffset(t *testing.T) {
	tests := []struct {
		name   string
		placed int
		quota  int
		offset float64
		want   float64
	}{
		{"first of two, start of band", 0, 2, 0, 0},
		{"second of two, start of band", 1, 2, 0, 0.5},
		{"first of two, mid band", 0, 2, 0.5, 0.25},
		{"third of four", 2, 4, 0.8, 0.7},
		{"zero quota passes offset through", 0, 0, 0.3, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := subSlotOffset(tt.placed, tt.quota, tt.offset)
			if got != tt.want {
				t.Errorf("subSlotOffset(%d, %d, %v) = %v, want %v", tt.placed, tt.quota, tt.offset, got, tt.want)
			}
		})
	}
}

func TestSplitTZ(t *testing.T) {
	tests := []struct {
		tz         int
		wantHour   int
		wantMinute int
	}{
		{0, 0, 0},
		{60, 1, 0},
		{330, 5, 30},
		{-60, -1, 0},
		// Both components must carry the sign so the total stays the offset.
		{-90, -1, -30},
		{-330, -5, -30},
	}
	for _, tt := range tests {
		got := splitTZ(tt.tz)
		if got.hour != tt.wantHour || got.minute != tt.wantMinute {
			t.Errorf("splitTZ(%d) = %+v, want {%d %d}", tt.tz, got, tt.wantHour, tt.wantMinute)
		}
		if got.hour*60+got.minute != tt.tz {
			t.Errorf("splitTZ(%d): components sum to %d", tt.tz, got.hour*60+got.minute)
		}
	}
}

func TestResolveInstant(t *testing.T) {
	now := time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)

	specific := func(raw string, tz int) models.TimeConfig {
		ct, err := models.ParseClockTime(raw)
		if err != nil {
			t.Fatalf("ParseClockTime(%q): %v", raw, err)
		}
		return models.TimeConfig{Type: models.TimeSpecific, Computed: []models.ClockTime{ct}, TZ: tz}
	}
	rng := func(lo, hi string, tz int) models.TimeConfig {
		a, err := models.ParseClockTime(lo)
		if err != nil {
			t.Fatalf("ParseClockTime(%q): %v", lo, err)
		}
		b, err := models.ParseClockTime(hi)
		if err != nil {
			t.Fatalf("ParseClockTime(%q): %v", hi, err)
		}
		return models.TimeConfig{Type: models.TimeRange, Computed: []models.ClockTime{a, b}, TZ: tz}
	}

	tests := []struct {
		name   string
		period models.PeriodType
		tc     models.TimeConfig
		offset float64
		want   time.Duration // from window start
	}{
		{"day specific", models.PeriodDay, specific("12:00", 0), 0.7, 12 * time.Hour},
		{"day specific positive tz", models.PeriodDay, specific("12:00", 60), 0, 13 * time.Hour},
		{"day specific negative fractional tz", models.PeriodDay, specific("12:00", -90), 0, 10*time.Hour + 30*time.Minute},
		{"day range start", models.PeriodDay, rng("10:00", "20:00", 0), 0, 10 * time.Hour},
		{"day range midpoint", models.PeriodDay, rng("10:00", "20:00", 0), 0.5, 15 * time.Hour},
		{"day range with tz", models.PeriodDay, rng("10:00", "20:00", 120), 0.5, 17 * time.Hour},
		{"hour specific uses minute only", models.PeriodHour, specific("09:45", 0), 0, 45 * time.Minute},
		{"hour range first matched minute", models.PeriodHour, rng("00:10", "00:20", 0), 0, 10 * time.Minute},
		{"hour range last matched minute", models.PeriodHour, rng("00:10", "00:20", 0), 0.999, 20 * time.Minute},
		{"week specific picks a day slot", models.PeriodWeek, specific("12:00", 0), 0.5, 3*24*time.Hour + 12*time.Hour},
		{"week range interpolates inside the day", models.PeriodWeek, rng("10:00", "20:00", 0), 0.5, 3*24*time.Hour + 15*time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := CurrentWindow(tt.period, now)
			got := resolveInstant(w, tt.tc, tt.offset)
			want := w.Start + tt.want.Milliseconds()
			if got != want {
				t.Errorf("resolveInstant = %v, want %v",
					time.UnixMilli(got).UTC(), time.UnixMilli(want).UTC())
			}
		})
	}
}

func TestSlotIndexBounds(t *testing.T) {
	if got := slotIndex(0.999999, 7); got != 6 {
		t.Errorf("slotIndex near 1 = %d, want 6", got)
	}
	if got := slotIndex(1.0, 7); got != 6 {
		t.Errorf("slotIndex(1.0, 7) = %d, want clamp to 6", got)
	}
	if got := slotIndex(0, 7); got != 0 {
		t.Errorf("slotIndex(0, 7) = %d, want 0", got)
	}
}
