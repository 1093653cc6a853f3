package postprocess

import (
	"time"

	"github.com/factgrid/factgrid/internal/datalog"
)

// truncUnitOf extracts the truncation unit a select spec carries, if any.
// The compiler only wraps instant columns, and never nests truncations.
func truncUnitOf(s datalog.SelectSpec) datalog.TruncUnit {
	if t, ok := s.(datalog.SelectDateTrunc); ok {
		return t.Unit
	}
	return ""
}

// truncate floors an instant to the start of the calendar unit, in UTC.
// Truncating an already truncated value is a no-op, which is what keeps
// reprocessing idempotent.
func truncate(t time.Time, unit datalog.TruncUnit) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch unit {
	case datalog.TruncDay:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case datalog.TruncWeek:
		// Weeks start on Monday.
		back := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-back, 0, 0, 0, 0, time.UTC)
	case datalog.TruncMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case datalog.TruncQuarter:
		qm := time.Month((int(m-1)/3)*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
	case datalog.TruncYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}
