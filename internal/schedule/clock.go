package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// ReferenceZone is the zone every calendar instant is expressed in.
const ReferenceZone = "America/New_York"

var ErrInvalidTime = errors.New("invalid time")

var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(am|pm)$`)

var referenceLocation = mustLoadLocation(ReferenceZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %q: %v", name, err))
	}
	return loc
}

// Location returns the reference zone.
func Location() *time.Location {
	return referenceLocation
}

// ReferenceSunday is midnight at the start of the week all entries are drawn
// on: Sunday, January 2nd 2000. No daylight-saving transition falls in that
// week, so day and minute offsets from it are exact.
func ReferenceSunday() time.Time {
	return time.Date(2000, time.January, 2, 0, 0, 0, 0, referenceLocation)
}

// ParseClock parses a 12-hour clock string like "8:30pm" into minutes after
// midnight.
func ParseClock(s string) (int, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q must look like 8:30am", ErrInvalidTime, s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 {
		return 0, fmt.Errorf("%w: hour out of range in %q", ErrInvalidTime, s)
	}
	if minute > 59 {
		return 0, fmt.Errorf("%w: minute out of range in %q", ErrInvalidTime, s)
	}

	pm := strings.EqualFold(m[3], "pm")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case pm && hour != 12:
		hour += 12
	}
	return hour*60 + minute, nil
}

// ResolveTime places a clock time on the given day of the reference week.
func ResolveTime(day Weekday, clock string) (time.Time, error) {
	if day < Sunday || day > Saturday {
		return time.Time{}, fmt.Errorf("%w: %d", ErrUnknownDay, int(day))
	}
	minutes, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return ReferenceSunday().AddDate(0, 0, int(day)).Add(time.Duration(minutes) * time.Minute), nil
}
