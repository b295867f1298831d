package model

import (
	"fmt"
	"time"
)

// TimeInterval is a half-open interval [Start, End). Touching boundaries do
// not overlap.
type TimeInterval struct {
	Start time.Time `json:"start" db:"start_time"`
	End   time.Time `json:"end" db:"end_time"`
}

func (i TimeInterval) Validate() error {
	if !i.Start.Before(i.End) {
		return fmt.Errorf("interval start %s must be before end %s", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether two half-open intervals intersect.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether t falls inside [Start, End).
func (i TimeInterval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i TimeInterval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}
