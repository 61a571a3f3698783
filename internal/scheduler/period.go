// Package scheduler assigns delivery timestamps to pending posts under a
// per-account frequency quota and time-window policy.
package scheduler

import (
	"time"

	"github.com/janic0/autotwitter/internal/models"
)

// slotCounts is the maximum number of placement slots per period type:
// minutes in an hour, hours in a day, days in a week.
var slotCounts = map[models.PeriodType]int{
	models.PeriodHour: 60,
	models.PeriodDay:  24,
	models.PeriodWeek: 7,
}

// Window is one repeating period interval, half-open [Start, End) in unix
// milliseconds. Windows are anchored to the UNIX epoch: "day" windows are
// UTC-midnight-aligned before any timezone adjustment is applied.
type Window struct {
	Type  models.PeriodType
	Start int64
	End   int64
}

// CurrentWindow returns the window of the given type containing now.
func CurrentWindow(periodType models.PeriodType, now time.Time) Window {
	length := periodType.Duration().Milliseconds()
	ms := now.UnixMilli()
	start := ms - ms%length
	return Window{
		Type:  periodType,
		Start: start,
		End:   start + length,
	}
}

// Advance moves the window to the next period.
func (w *Window) Advance() {
	length := w.Type.Duration().Milliseconds()
	w.Start = w.End
	w.End = w.Start + length
}

// Includes reports whether the instant falls inside the window.
func (w Window) Includes(ms int64) bool {
	return ms >= w.Start && ms < w.End
}

// IncludesTime reports whether a wall-clock instant falls inside the window.
func (w Window) IncludesTime(t *time.Time) bool {
	if t == nil {
		return false
	}
	return w.Includes(t.UnixMilli())
}

// Slots subdivides the window into equal sub-intervals and returns their
// start instants, keeping only those strictly before the window end.
func (w Window) Slots() []int64 {
	count := slotCounts[w.Type]
	if count == 0 {
		return nil
	}
	width := w.Type.Duration().Milliseconds() / int64(count)
	slots := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		ts := w.Start + int64(i)*width
		if ts >= w.End {
			break
		}
		slots = append(slots, ts)
	}
	return slots
}
