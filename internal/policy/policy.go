// Package policy validates proposed appointment times. All checks are
// pure functions over the proposed time and the caller-supplied current
// time, evaluated in the clinic's reference timezone.
package policy

import (
	"errors"
	"time"
)

var (
	ErrPastDate     = errors.New("appointment time is in the past")
	ErrOutsideHours = errors.New("appointment time is outside business hours")
	ErrWeekend      = errors.New("appointments can only be booked on weekdays")
)

// Business hours, inclusive on both ends: a booking at exactly 18:00 is
// accepted, 18:01 is not.
const (
	OpenHour  = 8
	CloseHour = 18
)

// Check validates a proposed appointment time against the past-date,
// business-hour and weekday rules. It runs on create and on any edit
// that changes the time; edits that leave the time untouched are exempt.
func Check(now, at time.Time, loc *time.Location) error {
	if !at.After(now) {
		return ErrPastDate
	}

	local := at.In(loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return ErrWeekend
	}

	h, m := local.Hour(), local.Minute()
	if h < OpenHour || h > CloseHour || (h == CloseHour && m > 0) {
		return ErrOutsideHours
	}
	return nil
}

// DayBounds returns the inclusive start and end of the calendar day
// containing t, evaluated in the reference timezone.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}
