package dialogue

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"packrat/internal/model"
)

func TestFrameRingBound(t *testing.T) {
	f := NewFrame(3)

	for i := 0; i < 5; i++ {
		f.Update(Turn{
			Text:   fmt.Sprintf("turn %d", i),
			Intent: model.IntentSearch,
			At:     time.Now(),
		})
	}

	assert.Len(t, f.Turns, 3)
	assert.Equal(t, "turn 2", f.Turns[0].Text)
	assert.Equal(t, "turn 4", f.Turns[2].Text)
}

func TestFrameTracksLastTurn(t *testing.T) {
	f := NewFrame(0) // zero falls back to the default bound

	f.Update(Turn{
		Intent:  model.IntentSearch,
		Filters: model.FilterSet{model.SlotLocation: "garage"},
		ItemID:  "item-1",
		At:      time.Now(),
	})
	f.Update(Turn{
		Intent:  model.IntentCount,
		Filters: model.FilterSet{},
		At:      time.Now(),
	})

	assert.Equal(t, model.IntentCount, f.LastIntent)
	// The item reference survives turns that mention no item.
	assert.Equal(t, "item-1", f.LastItemID)
}

func TestResolveInheritsMissingSlots(t *testing.T) {
	f := NewFrame(10)
	f.Update(Turn{
		Intent:  model.IntentSearch,
		Filters: model.FilterSet{model.SlotLocation: "garage", model.SlotCategory: "tools"},
		At:      time.Now(),
	})

	got := f.Resolve(model.IntentCount, model.FilterSet{}, time.Hour)
	assert.Equal(t, "garage", got[model.SlotLocation])
	assert.Equal(t, "tools", got[model.SlotCategory])
}

func TestResolveNeverOverwritesCurrentTurn(t *testing.T) {
	f := NewFrame(10)
	f.Update(Turn{
		Intent:  model.IntentSearch,
		Filters: model.FilterSet{model.SlotLocation: "garage"},
		At:      time.Now(),
	})

	cur := model.FilterSet{model.SlotLocation: "attic"}
	got := f.Resolve(model.IntentSearch, cur, time.Hour)
	assert.Equal(t, "attic", got[model.SlotLocation])
	// The input set is cloned, never mutated.
	assert.Equal(t, model.FilterSet{model.SlotLocation: "attic"}, cur)
}

func TestResolveIsSlotScoped(t *testing.T) {
	f := NewFrame(10)
	f.Update(Turn{
		Intent: model.IntentPurchaseHistory,
		Filters: model.FilterSet{
			model.SlotAcquisitionType: "purchased",
			model.SlotCategory:        "tools",
		},
		At: time.Now(),
	})

	// Searches inherit the category but never the acquisition type.
	got := f.Resolve(model.IntentSearch, model.FilterSet{}, time.Hour)
	assert.Equal(t, "tools", got[model.SlotCategory])
	assert.NotContains(t, got, model.SlotAcquisitionType)

	// log_acquisition and unknown inherit nothing at all.
	got = f.Resolve(model.IntentLogAcquisition, model.FilterSet{}, time.Hour)
	assert.Empty(t, got)
	got = f.Resolve(model.IntentUnknown, model.FilterSet{}, time.Hour)
	assert.Empty(t, got)
}

func TestResolveRespectsWindow(t *testing.T) {
	f := NewFrame(10)
	f.Update(Turn{
		Intent:  model.IntentSearch,
		Filters: model.FilterSet{model.SlotLocation: "garage"},
		At:      time.Now().Add(-time.Hour),
	})

	got := f.Resolve(model.IntentSearch, model.FilterSet{}, time.Minute)
	assert.NotContains(t, got, model.SlotLocation, "stale turns are out of scope")
}

func TestResolvePrefersNewestValue(t *testing.T) {
	f := NewFrame(10)
	f.Update(Turn{
		Intent:  model.IntentSearch,
		Filters: model.FilterSet{model.SlotLocation: "garage"},
		At:      time.Now().Add(-2 * time.Minute),
	})
	f.Update(Turn{
		Intent:  model.IntentSearch,
		Filters: model.FilterSet{model.SlotLocation: "attic"},
		At:      time.Now(),
	})

	got := f.Resolve(model.IntentCount, model.FilterSet{}, time.Hour)
	assert.Equal(t, "attic", got[model.SlotLocation])
}
