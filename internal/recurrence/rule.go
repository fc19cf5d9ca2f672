package recurrence

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// Frequency represents supported repeat intervals.
type Frequency int

const (
	// FrequencyNone marks a record that never expands.
	FrequencyNone Frequency = iota
	// FrequencyWeekly repeats on one ISO weekday.
	FrequencyWeekly
	// FrequencyMonthly repeats on one day of the month, or on the last day.
	FrequencyMonthly
)

// LastDayOfMonth is the monthly day sentinel selecting the final calendar day of each month.
const LastDayOfMonth = -1

// ErrInvalidRecurrenceRule indicates a weekday or day-of-month outside the supported range.
var ErrInvalidRecurrenceRule = errors.New("recurrence: invalid recurrence rule")

// Rule describes when a template repeats.
//
// Day holds the ISO weekday (1 Monday through 7 Sunday) for weekly rules and the
// day of month (1..31, or LastDayOfMonth) for monthly rules.
type Rule struct {
	Frequency Frequency
	Day       int
}

// Weekly returns a rule repeating on the given ISO weekday.
func Weekly(isoWeekday int) Rule {
	return Rule{Frequency: FrequencyWeekly, Day: isoWeekday}
}

// Monthly returns a rule repeating on the given day of month or LastDayOfMonth.
func Monthly(day int) Rule {
	return Rule{Frequency: FrequencyMonthly, Day: day}
}

// Repeats reports whether the rule expands into occurrences at all.
func (r Rule) Repeats() bool {
	return r.Frequency == FrequencyWeekly || r.Frequency == FrequencyMonthly
}

// Validate checks the rule's day against its frequency.
func (r Rule) Validate() error {
	switch r.Frequency {
	case FrequencyNone:
		return nil
	case FrequencyWeekly:
		if r.Day < 1 || r.Day > 7 {
			return ErrInvalidRecurrenceRule
		}
		return nil
	case FrequencyMonthly:
		if r.Day == LastDayOfMonth || (r.Day >= 1 && r.Day <= 31) {
			return nil
		}
		return ErrInvalidRecurrenceRule
	default:
		return ErrInvalidRecurrenceRule
	}
}

// Matches reports whether d is an occurrence date of the rule. Months shorter
// than a monthly rule's day produce no occurrence; there is no roll-over.
func (r Rule) Matches(d civil.Date) bool {
	switch r.Frequency {
	case FrequencyWeekly:
		return ISOWeekday(d) == r.Day
	case FrequencyMonthly:
		if r.Day == LastDayOfMonth {
			return d.Day == DaysInMonth(d.Year, d.Month)
		}
		return d.Day == r.Day
	default:
		return false
	}
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(d civil.Date) int {
	wd := d.In(time.UTC).Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// DaysInMonth returns the number of days in the given month, leap years included.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
