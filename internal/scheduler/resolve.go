package scheduler

import (
	"github.com/janic0/autotwitter/internal/models"
)

const (
	msPerMinute = int64(60 * 1000)
	msPerHour   = 60 * msPerMinute
)

// subSlotOffset partitions a window into quota equal bands and places a post
// pseudo-randomly within band placed. This spreads posts sharing a window
// evenly instead of letting raw random offsets cluster them.
func subSlotOffset(placed, quota int, randomOffset float64) float64 {
	if quota <= 0 {
		return randomOffset
	}
	return float64(placed)/float64(quota) + randomOffset/float64(quota)
}

// tzAdjustment splits a timezone offset in minutes into whole hours plus the
// remaining minutes. Some timezones are not hour-aligned.
type tzAdjustment struct {
	hour   int
	minute int
}

func splitTZ(tzMinutes int) tzAdjustment {
	return tzAdjustment{hour: tzMinutes / 60, minute: tzMinutes % 60}
}

// resolveInstant maps a window, the account's time policy and a normalized
// offset in [0, 1) to an absolute delivery instant in unix milliseconds.
//
// The timezone correction is a flat offset add on purpose: converting
// through a calendar-date API would apply DST rules on top of the configured
// offset and double-adjust.
func resolveInstant(w Window, tc models.TimeConfig, offset float64) int64 {
	tz := splitTZ(tc.TZ)

	switch w.Type {
	case models.PeriodHour:
		if tc.Type == models.TimeSpecific {
			// Only the minute component is meaningful inside an hour window.
			return w.Start + int64(tc.Computed[0].Minute+tz.minute)*msPerMinute
		}
		slots := w.Slots()
		min, max := adjustedRange(tc, tz)
		matched := make([]int64, 0, len(slots))
		for i, slot := range slots {
			if i < min.Minute {
				continue
			}
			if i > max.Minute {
				break
			}
			matched = append(matched, slot)
		}
		if len(matched) == 0 {
			return w.Start
		}
		return matched[slotIndex(offset, len(matched))]

	case models.PeriodDay:
		if tc.Type == models.TimeSpecific {
			return w.Start +
				int64(tc.Computed[0].Hour+tz.hour)*msPerHour +
				int64(tc.Computed[0].Minute+tz.minute)*msPerMinute
		}
		return interpolateRange(w.Start, tc, tz, offset)

	case models.PeriodWeek:
		days := w.Slots()
		if len(days) == 0 {
			return w.Start
		}
		day := days[slotIndex(offset, len(days))]
		if tc.Type == models.TimeSpecific {
			return day +
				int64(tc.Computed[0].Hour+tz.hour)*msPerHour +
				int64(tc.Computed[0].Minute+tz.minute)*msPerMinute
		}
		return interpolateRange(day, tc, tz, offset)
	}

	return 0
}

// interpolateRange places the instant linearly between the tz-adjusted range
// bounds, measured from base (a period or day-slot start).
func interpolateRange(base int64, tc models.TimeConfig, tz tzAdjustment, offset float64) int64 {
	lo := adjusted(tc.Computed[0], tz)
	hi := adjusted(tc.Computed[1], tz)
	rangeStart := base + int64(lo.Hour)*msPerHour + int64(lo.Minute)*msPerMinute
	rangeEnd := base + int64(hi.Hour)*msPerHour + int64(hi.Minute)*msPerMinute
	return rangeStart + int64(offset*float64(rangeEnd-rangeStart))
}

// adjustedRange returns both range endpoints tz-adjusted and sorted
// ascending by minute.
func adjustedRange(tc models.TimeConfig, tz tzAdjustment) (models.ClockTime, models.ClockTime) {
	a := adjusted(tc.Computed[0], tz)
	b := adjusted(tc.Computed[1], tz)
	if b.Minute < a.Minute {
		a, b = b, a
	}
	return a, b
}

func adjusted(ct models.ClockTime, tz tzAdjustment) models.ClockTime {
	return models.ClockTime{Hour: ct.Hour + tz.hour, Minute: ct.Minute + tz.minute}
}

// slotIndex picks a slot from count options using a normalized offset.
func slotIndex(offset float64, count int) int {
	idx := int(offset * float64(count))
	if idx >= count {
		idx = count - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
