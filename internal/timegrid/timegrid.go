// Package timegrid converts between clock times and minute offsets and
// generates discrete slot boundaries within a working window.
package timegrid

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/pkg/errors"
)

const minutesPerDay = 24 * 60

// ToMinutesSinceMidnight parses an "HH:MM" clock time into a minute offset
// in [0, 1440).
func ToMinutesSinceMidnight(clock string) (int, error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, errors.InvalidArgument(fmt.Sprintf("invalid clock time %q, want HH:MM", clock))
	}
	hh, errH := strconv.Atoi(clock[:2])
	mm, errM := strconv.Atoi(clock[3:])
	if errH != nil || errM != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, errors.InvalidArgument(fmt.Sprintf("invalid clock time %q, want HH:MM", clock))
	}
	return hh*60 + mm, nil
}

// ToClockTime formats a minute offset as zero-padded "HH:MM". Inverse of
// ToMinutesSinceMidnight.
func ToClockTime(minutes int) (string, error) {
	if minutes < 0 || minutes >= minutesPerDay {
		return "", errors.OutOfRange(fmt.Sprintf("minute offset %d outside [0, %d)", minutes, minutesPerDay))
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), nil
}

// SlotBoundaries generates contiguous, non-overlapping half-open slots of
// slotMinutes each within [dayStart, dayEnd). A trailing partial slot that
// would run past dayEnd is dropped.
func SlotBoundaries(dayStart, dayEnd time.Time, slotMinutes int) ([]model.TimeInterval, error) {
	if slotMinutes <= 0 {
		return nil, errors.InvalidArgument(fmt.Sprintf("slot duration must be positive, got %d", slotMinutes))
	}
	if !dayStart.Before(dayEnd) {
		return nil, errors.InvalidArgument("window start must be before window end")
	}

	step := time.Duration(slotMinutes) * time.Minute
	var slots []model.TimeInterval
	for t := dayStart; !t.Add(step).After(dayEnd); t = t.Add(step) {
		slots = append(slots, model.TimeInterval{Start: t, End: t.Add(step)})
	}
	return slots, nil
}

// AtClock anchors an "HH:MM" clock time onto a calendar date, preserving the
// date's location.
func AtClock(date time.Time, clock string) (time.Time, error) {
	minutes, err := ToMinutesSinceMidnight(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, date.Location()), nil
}
