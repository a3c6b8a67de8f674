package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// Weekday is a day of the reference week, Sunday first.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var ErrUnknownDay = errors.New("unknown day code")

// dayCodes is ordered so two-letter codes are tried before one-letter ones.
var dayCodes = []struct {
	code string
	day  Weekday
}{
	{"SU", Sunday},
	{"TU", Tuesday},
	{"TH", Thursday},
	{"SA", Saturday},
	{"M", Monday},
	{"W", Wednesday},
	{"F", Friday},
}

var dayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return dayNames[d]
}

// Code returns the catalog day code for d.
func (d Weekday) Code() string {
	for _, dc := range dayCodes {
		if dc.day == d {
			return dc.code
		}
	}
	return ""
}

// ParseDays splits a catalog day string such as "MWF" or "TUTH" into its
// weekdays, ordered Sunday first and without duplicates. Codes are
// case-sensitive; anything that is not a known code is an error.
func ParseDays(s string) ([]Weekday, error) {
	var seen [7]bool
	rest := s
	for rest != "" {
		matched := false
		for _, dc := range dayCodes {
			if strings.HasPrefix(rest, dc.code) {
				seen[dc.day] = true
				rest = rest[len(dc.code):]
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: %q in %q", ErrUnknownDay, rest, s)
		}
	}

	var days []Weekday
	for d, ok := range seen {
		if ok {
			days = append(days, Weekday(d))
		}
	}
	return days, nil
}
