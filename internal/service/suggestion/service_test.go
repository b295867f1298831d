package suggestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

var refDay = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // a Monday morning

func slotAt(dayOffset, hour, minute int) model.Slot {
	start := time.Date(2026, 3, 2+dayOffset, hour, minute, 0, 0, time.UTC)
	return model.Slot{Start: start, End: start.Add(30 * time.Minute), Status: model.SlotStatusAvailable}
}

func strPtr(s string) *string { return &s }

func TestRankScoring(t *testing.T) {
	tests := []struct {
		name string
		slot model.Slot
		want int
	}{
		{"same day morning sweet spot", slotAt(0, 10, 0), 110},
		{"same day afternoon sweet spot", slotAt(0, 15, 0), 108},
		{"same day off-peak", slotAt(0, 13, 0), 100},
		{"next day morning", slotAt(1, 9, 0), 108},
		{"five days out off-peak", slotAt(5, 13, 0), 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked, err := Rank([]model.Slot{tt.slot}, refDay, model.SuggestionConstraints{})
			require.NoError(t, err)
			require.Len(t, ranked, 1)
			assert.Equal(t, tt.want, ranked[0].Score)
		})
	}
}

func TestRankPreferredTimeWindow(t *testing.T) {
	constraints := model.SuggestionConstraints{
		PreferredTimeStart: strPtr("13:00"),
		PreferredTimeEnd:   strPtr("14:00"),
	}

	inside := slotAt(0, 13, 30)
	outside := slotAt(0, 14, 0) // half-open window: 14:00 is outside

	ranked, err := Rank([]model.Slot{inside, outside}, refDay, constraints)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, inside.Start, ranked[0].Slot.Start)
	assert.Equal(t, 115, ranked[0].Score)
	assert.Equal(t, 108, ranked[1].Score)
}

func TestRankScoreFlooredAtZero(t *testing.T) {
	farOut := slotAt(60, 13, 0) // 100 - 2*60 would be negative

	ranked, err := Rank([]model.Slot{farOut}, refDay, model.SuggestionConstraints{})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 0, ranked[0].Score)
}

func TestRankStableTieOrder(t *testing.T) {
	// Four same-day off-peak slots all score 100; their relative order must
	// match enumeration order on every run.
	slots := []model.Slot{
		slotAt(0, 12, 0),
		slotAt(0, 12, 30),
		slotAt(0, 13, 0),
		slotAt(0, 13, 30),
	}

	for run := 0; run < 10; run++ {
		ranked, err := Rank(slots, refDay, model.SuggestionConstraints{MaxSuggestions: 10})
		require.NoError(t, err)
		require.Len(t, ranked, 4)
		for i, slot := range slots {
			assert.Equal(t, slot.Start, ranked[i].Slot.Start, "run %d position %d", run, i)
			assert.Equal(t, 100, ranked[i].Score)
		}
	}
}

func TestRankBetterScoreFirstAcrossDays(t *testing.T) {
	later := slotAt(3, 10, 0)  // 100 - 6 + 10 = 104
	sooner := slotAt(0, 13, 0) // 100

	ranked, err := Rank([]model.Slot{sooner, later}, refDay, model.SuggestionConstraints{})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, later.Start, ranked[0].Slot.Start)
	assert.Equal(t, sooner.Start, ranked[1].Slot.Start)
}

func TestRankTruncatesToMaxSuggestions(t *testing.T) {
	var slots []model.Slot
	for i := 0; i < 8; i++ {
		slots = append(slots, slotAt(0, 9+i, 0))
	}

	ranked, err := Rank(slots, refDay, model.SuggestionConstraints{MaxSuggestions: 3})
	require.NoError(t, err)
	assert.Len(t, ranked, 3)
}

func TestRankRejectsInvertedPreferredWindow(t *testing.T) {
	constraints := model.SuggestionConstraints{
		PreferredTimeStart: strPtr("15:00"),
		PreferredTimeEnd:   strPtr("14:00"),
	}

	_, err := Rank([]model.Slot{slotAt(0, 10, 0)}, refDay, constraints)
	assert.Error(t, err)
}
