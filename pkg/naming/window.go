package naming

import (
	"fmt"
	"time"
)

// Ceil15 moves t forward to the next quarter-hour boundary of its wall clock.
// Minutes 45-59 roll over to :00 of the next hour; otherwise the minute becomes
// 15, 30 or 45, whichever is the smallest boundary strictly covering it.
// Seconds and sub-second parts are dropped.
//
// A minute already at :00 moves to :15, so callers compose Ceil15 with the
// -30m/+1m offsets in FormatWindow rather than using it to truncate.
func Ceil15(t time.Time) time.Time {
	minute := t.Minute()
	if minute >= 45 {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
	}

	switch {
	case minute < 15:
		minute = 15
	case minute < 30:
		minute = 30
	default:
		minute = 45
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// WindowBounds returns the start and end of the ROP window for ref.
func WindowBounds(ref time.Time) (start, end time.Time) {
	start = Ceil15(ref.Add(-30 * time.Minute))
	end = Ceil15(start.Add(time.Minute))
	return start, end
}

// FormatWindow renders the ROP window stamp for ref, prefixed with lead.
// The result has the form <lead><YYYYMMDD>.<HHMM><off>-<HHMM><off>.
func FormatWindow(lead byte, ref time.Time) string {
	start, end := WindowBounds(ref)
	offset := FormatOffset(ref)

	return fmt.Sprintf("%c%s%s-%s%s",
		lead,
		start.Format("20060102.1504"),
		offset,
		end.Format("1504"),
		offset,
	)
}

// FormatOffset renders the UTC offset of t's location at t as +HHMM or -HHMM.
// UTC renders as +0000.
func FormatOffset(t time.Time) string {
	_, seconds := t.Zone()

	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}

	minutes := seconds / 60
	return fmt.Sprintf("%c%02d%02d", sign, minutes/60, minutes%60)
}
