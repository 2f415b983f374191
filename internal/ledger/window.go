package ledger

import "time"

// WeekStart returns the most recent Monday 00:00 UTC at or before t.
// Weekly cap windows reset here.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	days := (int(t.Weekday()) + 6) % 7 // Monday = 0
	y, m, d := t.AddDate(0, 0, -days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first of t's month at 00:00 UTC. Monthly cap
// windows reset here.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
