// Package dateutil parses the day arguments the command line accepts.
package dateutil

import (
	"errors"
	"strings"
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// ErrUnknownDay is returned for input that is neither a keyword nor a date.
var ErrUnknownDay = errors.New("day must be YYYY-MM-DD, today, tomorrow or a weekday name")

var weekdayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// TruncateToDay returns local midnight of the day containing t.
func TruncateToDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// ParseDay resolves a day argument relative to now. It accepts:
//   - "today", "tomorrow" and "next-week" (same weekday, seven days on)
//   - weekday names, optionally prefixed with "next-" (next occurrence, never today)
//   - an absolute YYYY-MM-DD day
//
// Input is case-insensitive. Past days are allowed: exams already held
// can still be inspected.
func ParseDay(s string, now time.Time) (time.Time, error) {
	today := TruncateToDay(now)
	input := strings.ToLower(strings.TrimSpace(s))

	switch input {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "next-week":
		return today.AddDate(0, 0, 7), nil
	}
	if target, ok := weekdayMap[strings.TrimPrefix(input, "next-")]; ok {
		return NextWeekday(today, target), nil
	}

	d, err := exam.ParseDay(input)
	if err != nil {
		return time.Time{}, ErrUnknownDay
	}
	return d, nil
}

// DayKey resolves s like ParseDay and returns its YYYY-MM-DD key.
func DayKey(s string, now time.Time) (string, error) {
	d, err := ParseDay(s, now)
	if err != nil {
		return "", err
	}
	return d.Format(exam.DateLayout), nil
}

// NextWeekday returns the next target after the day of t, a week on when
// t already falls on target.
func NextWeekday(t time.Time, target time.Weekday) time.Time {
	today := TruncateToDay(t)
	daysUntil := int(target) - int(today.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}
	return today.AddDate(0, 0, daysUntil)
}
