package suggestion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/service/availability"
	"github.com/jwalitptl/scheduler-api/internal/timegrid"
)

// Scoring weights. Heuristic only: every available slot may be returned,
// better ones first.
const (
	baseScore          = 100
	dayOffsetPenalty   = 2
	morningBonus       = 10
	afternoonBonus     = 8
	preferredTimeBonus = 15

	DefaultDaysAhead      = 14
	DefaultMaxSuggestions = 5
)

type Service struct {
	availabilitySvc *availability.Service
}

func NewService(availabilitySvc *availability.Service) *Service {
	return &Service{availabilitySvc: availabilitySvc}
}

// Suggest resolves the clinician's availability from today forward and ranks
// the open slots against the requester's soft preferences.
func (s *Service) Suggest(ctx context.Context, clinicianID uuid.UUID, constraints model.SuggestionConstraints) ([]model.RankedSlot, error) {
	daysAhead := constraints.DaysAhead
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}

	from := time.Now()
	to := from.AddDate(0, 0, daysAhead)
	report, err := s.availabilitySvc.Resolve(ctx, clinicianID, from, to, availability.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve availability: %w", err)
	}

	var open []model.Slot
	for _, day := range report.Days {
		for _, slot := range day.Slots {
			if slot.Status == model.SlotStatusAvailable && slot.Start.After(from) {
				open = append(open, slot)
			}
		}
	}

	return Rank(open, from, constraints)
}

// Rank scores slots and returns them best-first. Input order is the
// enumeration order (date ascending, time ascending) and breaks score ties,
// so the sort must be stable.
func Rank(slots []model.Slot, reference time.Time, constraints model.SuggestionConstraints) ([]model.RankedSlot, error) {
	prefStart, prefEnd, err := preferredWindow(constraints)
	if err != nil {
		return nil, err
	}

	refDay := truncateToDay(reference)
	ranked := make([]model.RankedSlot, 0, len(slots))
	for _, slot := range slots {
		score := baseScore

		dayOffset := int(truncateToDay(slot.Start).Sub(refDay).Hours() / 24)
		score -= dayOffsetPenalty * dayOffset

		switch hour := slot.Start.Hour(); {
		case hour >= 9 && hour <= 11:
			score += morningBonus
		case hour >= 14 && hour <= 16:
			score += afternoonBonus
		}

		if prefStart >= 0 {
			startMin := slot.Start.Hour()*60 + slot.Start.Minute()
			if startMin >= prefStart && startMin < prefEnd {
				score += preferredTimeBonus
			}
		}

		if score < 0 {
			score = 0
		}

		ranked = append(ranked, model.RankedSlot{Slot: slot, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	max := constraints.MaxSuggestions
	if max <= 0 {
		max = DefaultMaxSuggestions
	}
	if len(ranked) > max {
		ranked = ranked[:max]
	}

	return ranked, nil
}

// preferredWindow parses the optional preferred time range into minute
// offsets; returns -1 when absent.
func preferredWindow(constraints model.SuggestionConstraints) (int, int, error) {
	if constraints.PreferredTimeStart == nil || constraints.PreferredTimeEnd == nil {
		return -1, -1, nil
	}
	start, err := timegrid.ToMinutesSinceMidnight(*constraints.PreferredTimeStart)
	if err != nil {
		return 0, 0, err
	}
	end, err := timegrid.ToMinutesSinceMidnight(*constraints.PreferredTimeEnd)
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("preferred time range end must be after start")
	}
	return start, end, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
