package conflict

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

func interval(t *testing.T, startHour, startMin, endHour, endMin int) model.TimeInterval {
	t.Helper()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return model.TimeInterval{
		Start: day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		End:   day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
	}
}

func TestHasConflict(t *testing.T) {
	existing := []model.TimeInterval{
		interval(t, 9, 0, 9, 30),
		interval(t, 14, 0, 15, 0),
	}

	assert.True(t, HasConflict(interval(t, 9, 15, 9, 45), existing))
	assert.True(t, HasConflict(interval(t, 8, 0, 18, 0), existing), "enclosing interval conflicts")
	assert.True(t, HasConflict(interval(t, 14, 15, 14, 30), existing), "contained interval conflicts")
	assert.False(t, HasConflict(interval(t, 10, 0, 11, 0), existing))
}

func TestTouchingEndpointsAreNotConflicts(t *testing.T) {
	existing := []model.TimeInterval{interval(t, 9, 30, 10, 0)}

	assert.False(t, HasConflict(interval(t, 9, 0, 9, 30), existing), "ends where existing starts")
	assert.False(t, HasConflict(interval(t, 10, 0, 10, 30), existing), "starts where existing ends")
}

func TestFindConflictsReturnsAllCollisions(t *testing.T) {
	existing := []model.TimeInterval{
		interval(t, 9, 0, 9, 30),
		interval(t, 9, 30, 10, 0),
		interval(t, 10, 30, 11, 0),
	}

	got := FindConflicts(interval(t, 9, 15, 10, 45), existing)
	require.Len(t, got, 3)
	assert.True(t, got[0].Start.Equal(existing[0].Start), "input order preserved")
}

func TestFindCommitmentConflictsSkipsNonLive(t *testing.T) {
	clinicianID := uuid.New()
	mk := func(status model.CommitmentStatus, iv model.TimeInterval) *model.Commitment {
		c := &model.Commitment{
			ClinicianID: clinicianID,
			StartTime:   iv.Start,
			EndTime:     iv.End,
			Status:      status,
		}
		c.ID = uuid.New()
		return c
	}

	cancelled := mk(model.CommitmentStatusCancelled, interval(t, 9, 0, 9, 30))
	noShow := mk(model.CommitmentStatusNoShow, interval(t, 9, 0, 9, 30))
	live := mk(model.CommitmentStatusConfirmed, interval(t, 9, 0, 9, 30))

	got := FindCommitmentConflicts(interval(t, 9, 0, 9, 30), []*model.Commitment{cancelled, noShow, live})
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)
}

func TestFindCommitmentConflictsExcludesSelf(t *testing.T) {
	self := &model.Commitment{
		StartTime: interval(t, 9, 0, 9, 30).Start,
		EndTime:   interval(t, 9, 0, 9, 30).End,
		Status:    model.CommitmentStatusScheduled,
	}
	self.ID = uuid.New()

	got := FindCommitmentConflicts(interval(t, 9, 0, 10, 0), []*model.Commitment{self}, self.ID)
	assert.Empty(t, got)
}
