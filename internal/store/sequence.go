package store

import "time"

// DefaultNumberCeiling bounds ticket numbers so kiosk displays stay two
// digits. Numbering cycles within a day once the ceiling is reached, so a
// busy department can issue the same display number more than once per day.
const DefaultNumberCeiling = 99

// NextNumber advances a per-(department, day) sequence. The first ticket of
// a day gets 1, numbers grow strictly until the ceiling, then wrap back to 1.
// Zero is never issued.
func NextNumber(last, ceiling int) int {
	if ceiling <= 0 {
		ceiling = DefaultNumberCeiling
	}
	if last <= 0 || last >= ceiling {
		return 1
	}
	return last + 1
}

// ServiceDay maps an instant to the logical calendar day used for numbering.
// The zone is fixed per deployment so cross-midnight requests from clients in
// other zones cannot split a day in two.
func ServiceDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
