package core

import "time"

// NextDueDate computes the due date following current for the given
// frequency and optional day preference. The result is always strictly
// after current.
//
//   - weekly: current + 7 days, or the next occurrence of dayOfWeek
//     starting the search at current + 1 day.
//   - biweekly: current + 14 days, or the next occurrence of dayOfWeek on
//     or after current + 14 days.
//   - monthly: the same calendar day one month later, or dayOfMonth in the
//     following month; both clamped to that month's last actual day.
func NextDueDate(current time.Time, freq Frequency, dayOfWeek, dayOfMonth *int) time.Time {
	current = DateOf(current)

	switch freq {
	case Weekly:
		if dayOfWeek != nil {
			return nextWeekday(current.AddDate(0, 0, 1), *dayOfWeek)
		}
		return current.AddDate(0, 0, 7)

	case Biweekly:
		if dayOfWeek != nil {
			return nextWeekday(current.AddDate(0, 0, 14), *dayOfWeek)
		}
		return current.AddDate(0, 0, 14)

	case Monthly:
		day := current.Day()
		if dayOfMonth != nil {
			day = *dayOfMonth
		}
		year, month := current.Year(), current.Month()+1
		if month > time.December {
			month = time.January
			year++
		}
		if last := lastDayOfMonth(year, month); day > last {
			day = last
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}

	// Unknown frequency: fall back to weekly advancement so the schedule
	// still moves forward and cannot re-trigger.
	return current.AddDate(0, 0, 7)
}

// nextWeekday returns the first date on or after from that falls on the
// target weekday (0=Monday .. 6=Sunday).
func nextWeekday(from time.Time, target int) time.Time {
	goTarget := time.Weekday((target + 1) % 7)
	ahead := (int(goTarget) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, ahead)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
