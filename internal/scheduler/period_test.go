package scheduler

import (
	"testing"
	"time"

	"github.com/janic0/autotwitter/internal/models"
)

func TestCurrentWindowEpochAnchored(t *testing.T) {
	tests := []struct {
		name       string
		periodType models.PeriodType
		now        time.Time
		wantStart  time.Time
	}{
		{
			name:       "hour window",
			periodType: models.PeriodHour,
			now:        time.Date(2026, 1, 2, 13, 37, 21, 0, time.UTC),
			wantStart:  time.Date(2026, 1, 2, 13, 0, 0, 0, time.UTC),
		},
		{
			name:       "day window at utc midnight",
			periodType: models.PeriodDay,
			now:        time.Date(2026, 1, 2, 13, 37, 21, 0, time.UTC),
			wantStart:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "week window anchored to epoch, not calendar weeks",
			periodType: models.PeriodWeek,
			// The epoch was a Thursday, so week windows start Thursdays.
			now:       time.Date(2026, 1, 2, 13, 37, 21, 0, time.UTC),
			wantStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := CurrentWindow(tt.periodType, tt.now)
			if w.Start != tt.wantStart.UnixMilli() {
				t.Errorf("Start = %v, want %v", time.UnixMilli(w.Start).UTC(), tt.wantStart)
			}
			if w.End-w.Start != tt.periodType.Duration().Milliseconds() {
				t.Errorf("length = %d ms", w.End-w.Start)
			}
			if !w.Includes(tt.now.UnixMilli()) {
				t.Error("window does not include now")
			}
		})
	}
}

func TestWindowHalfOpen(t *testing.T) {
	w := CurrentWindow(models.PeriodHour, time.Date(2026, 1, 2, 13, 0, 0, 0, time.UTC))
	if !w.Includes(w.Start) {
		t.Error("start excluded")
	}
	if w.Includes(w.End) {
		t.Error("end included")
	}
}

func TestWindowAdvance(t *testing.T) {
	w := CurrentWindow(models.PeriodDay, time.Date(2026, 1, 2, 5, 0, 0, 0, time.UTC))
	end := w.End
	w.Advance()
	if w.Start != end {
		t.Errorf("Start after advance = %d, want %d", w.Start, end)
	}
	if w.End-w.Start != models.PeriodDay.Duration().Milliseconds() {
		t.Errorf("length changed after advance")
	}
}

func TestWindowSlots(t *testing.T) {
	tests := []struct {
		periodType models.PeriodType
		wantCount  int
		wantWidth  time.Duration
	}{
		{models.PeriodHour, 60, time.Minute},
		{models.PeriodDay, 24, time.Hour},
		{models.PeriodWeek, 7, 24 * time.Hour},
	}
	for _, tt := range tests {
		w := CurrentWindow(tt.periodType, time.Date(2026, 1, 2, 5, 0, 0, 0, time.UTC))
		slots := w.Slots()
		if len(slots) != tt.wantCount {
			t.Errorf("%s: slot count = %d, want %d", tt.periodType, len(slots), tt.wantCount)
			continue
		}
		if slots[0] != w.Start {
			t.Errorf("%s: first slot = %d, want window start", tt.periodType, slots[0])
		}
		if slots[1]-slots[0] != tt.wantWidth.Milliseconds() {
			t.Errorf("%s: slot width = %d ms", tt.periodType, slots[1]-slots[0])
		}
	}
}
