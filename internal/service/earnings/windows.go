package earnings

import "time"

// Reporting windows are computed in UTC. Weeks start on Monday.

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func startOfYear(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

func startOfPreviousMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, -1, 0)
}
