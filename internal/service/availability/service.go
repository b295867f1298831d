package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/timegrid"
)

const MaxRangeDays = 90

type Service struct {
	templateRepo   repository.TemplateRepository
	timeOffRepo    repository.TimeOffRepository
	commitmentRepo repository.CommitmentRepository
}

func NewService(templateRepo repository.TemplateRepository, timeOffRepo repository.TimeOffRepository, commitmentRepo repository.CommitmentRepository) *Service {
	return &Service{
		templateRepo:   templateRepo,
		timeOffRepo:    timeOffRepo,
		commitmentRepo: commitmentRepo,
	}
}

type ResolveOptions struct {
	// SlotDurationOverride replaces the template's slot duration when > 0.
	SlotDurationOverride int
	SkipWeekends         bool
}

// Resolve builds the per-date slot grid for a clinician across [from, to]
// (calendar dates, inclusive) from the template, time-off and commitment
// snapshots in the store.
func (s *Service) Resolve(ctx context.Context, clinicianID uuid.UUID, from, to time.Time, opts ResolveOptions) (*model.AvailabilityReport, error) {
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid date range: %s after %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	if int(to.Sub(from).Hours()/24) > MaxRangeDays {
		return nil, fmt.Errorf("date range exceeds %d days", MaxRangeDays)
	}

	templates, err := s.templateRepo.ListForClinician(ctx, clinicianID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	rangeEnd := to.Add(24 * time.Hour)
	timeOff, err := s.timeOffRepo.GetApproved(ctx, clinicianID, from, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load time-off records: %w", err)
	}

	commitments, err := s.commitmentRepo.GetLiveCommitments(ctx, clinicianID, from, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load commitments: %w", err)
	}

	return ResolveRange(clinicianID, from, to, templates, timeOff, commitments, opts)
}

// ResolveRange is the pure core of the resolver; it only sees snapshots.
func ResolveRange(clinicianID uuid.UUID, from, to time.Time, templates []*model.AvailabilityTemplate, timeOff []*model.TimeOffRecord, commitments []*model.Commitment, opts ResolveOptions) (*model.AvailabilityReport, error) {
	report := &model.AvailabilityReport{
		ClinicianID: clinicianID,
		From:        from,
		To:          to,
	}

	for date := from; !date.After(to); date = date.Add(24 * time.Hour) {
		if opts.SkipWeekends && isWeekend(date) {
			continue
		}

		day, err := ResolveDay(date, templates, timeOff, commitments, opts.SlotDurationOverride)
		if err != nil {
			return nil, err
		}

		report.Days = append(report.Days, day)
		report.TotalSlots += day.TotalSlots
		report.AvailableCount += day.AvailableCount
		report.BookedCount += day.BookedCount
		report.BlockedCount += day.BlockedCount
	}

	// Blocked time is not capacity, so it stays out of the denominator.
	if report.AvailableCount+report.BookedCount > 0 {
		report.UtilizationRate = float64(report.BookedCount) / float64(report.AvailableCount+report.BookedCount)
	}

	return report, nil
}

// ResolveDay builds one date's grid. A date with no covering template has
// zero slots: the clinician is not working.
func ResolveDay(date time.Time, templates []*model.AvailabilityTemplate, timeOff []*model.TimeOffRecord, commitments []*model.Commitment, slotOverride int) (model.DaySchedule, error) {
	date = truncateToDay(date)
	day := model.DaySchedule{Date: date}

	tmpl := templateForDate(date, templates)
	if tmpl == nil {
		return day, nil
	}
	day.Working = true

	workStart, err := timegrid.AtClock(date, tmpl.WorkStart)
	if err != nil {
		return day, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}
	workEnd, err := timegrid.AtClock(date, tmpl.WorkEnd)
	if err != nil {
		return day, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}

	slotMinutes := tmpl.SlotDurationMinutes
	if slotOverride > 0 {
		slotMinutes = slotOverride
	}

	boundaries, err := timegrid.SlotBoundaries(workStart, workEnd, slotMinutes)
	if err != nil {
		return day, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}

	breakInterval, err := breakWindow(date, tmpl)
	if err != nil {
		return day, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}

	for _, b := range boundaries {
		// Break-window slots are removed from the grid entirely; they do
		// not count toward the day's totals.
		if breakInterval != nil && b.Overlaps(*breakInterval) {
			continue
		}

		slot := model.Slot{Start: b.Start, End: b.End, Status: classify(b, timeOff, commitments)}
		day.Slots = append(day.Slots, slot)
		day.TotalSlots++
		switch slot.Status {
		case model.SlotStatusAvailable:
			day.AvailableCount++
		case model.SlotStatusBooked:
			day.BookedCount++
		case model.SlotStatusBlocked:
			day.BlockedCount++
		}
	}

	return day, nil
}

// classify marks a slot blocked before booked: approved time-off wins over a
// commitment that overlaps the same slot.
func classify(slot model.TimeInterval, timeOff []*model.TimeOffRecord, commitments []*model.Commitment) model.SlotStatus {
	for _, rec := range timeOff {
		if rec.Status == model.TimeOffStatusApproved && slot.Overlaps(rec.Interval()) {
			return model.SlotStatusBlocked
		}
	}
	for _, c := range commitments {
		if c.Status.IsLive() && slot.Overlaps(c.Interval()) {
			return model.SlotStatusBooked
		}
	}
	return model.SlotStatusAvailable
}

// templateForDate returns the first active template whose weekday matches
// and whose effective window covers the date. Overlapping templates for the
// same day are a creation-time error, so at most one should match.
func templateForDate(date time.Time, templates []*model.AvailabilityTemplate) *model.AvailabilityTemplate {
	for _, t := range templates {
		if !t.Active {
			continue
		}
		if t.DayOfWeek != int(date.Weekday()) {
			continue
		}
		if t.CoversDate(date) {
			return t
		}
	}
	return nil
}

func breakWindow(date time.Time, tmpl *model.AvailabilityTemplate) (*model.TimeInterval, error) {
	if tmpl.BreakStart == nil || tmpl.BreakEnd == nil {
		return nil, nil
	}
	start, err := timegrid.AtClock(date, *tmpl.BreakStart)
	if err != nil {
		return nil, err
	}
	end, err := timegrid.AtClock(date, *tmpl.BreakEnd)
	if err != nil {
		return nil, err
	}
	return &model.TimeInterval{Start: start, End: end}, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
