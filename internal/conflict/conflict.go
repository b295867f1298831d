// Package conflict decides whether a proposed interval collides with a
// clinician's existing commitments. Pure functions over snapshots, no I/O.
package conflict

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// HasConflict reports whether candidate overlaps any existing interval under
// half-open semantics: touching endpoints are not a conflict.
func HasConflict(candidate model.TimeInterval, existing []model.TimeInterval) bool {
	for _, iv := range existing {
		if candidate.Overlaps(iv) {
			return true
		}
	}
	return false
}

// FindConflicts returns every existing interval that overlaps candidate, in
// input order, for diagnostic error messages.
func FindConflicts(candidate model.TimeInterval, existing []model.TimeInterval) []model.TimeInterval {
	var out []model.TimeInterval
	for _, iv := range existing {
		if candidate.Overlaps(iv) {
			out = append(out, iv)
		}
	}
	return out
}

// FindCommitmentConflicts returns the live commitments whose intervals
// overlap candidate. Non-live commitments never conflict. A commitment whose
// ID appears in exclude is skipped, so reschedules and swaps don't collide
// with themselves.
func FindCommitmentConflicts(candidate model.TimeInterval, commitments []*model.Commitment, exclude ...uuid.UUID) []*model.Commitment {
	var out []*model.Commitment
	for _, c := range commitments {
		if !c.Status.IsLive() {
			continue
		}
		if excluded(c.ID, exclude) {
			continue
		}
		if candidate.Overlaps(c.Interval()) {
			out = append(out, c)
		}
	}
	return out
}

func excluded(id uuid.UUID, exclude []uuid.UUID) bool {
	for _, e := range exclude {
		if e == id {
			return true
		}
	}
	return false
}
