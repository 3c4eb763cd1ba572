package dialogue

import (
	"time"

	"packrat/internal/model"
)

// DefaultHistorySize bounds the per-session turn ring buffer.
const DefaultHistorySize = 10

// Turn is one processed utterance with its classification results.
type Turn struct {
	Text    string          `json:"text"`
	Intent  model.Intent    `json:"intent"`
	Filters model.FilterSet `json:"filters"`
	ItemID  string          `json:"item_id,omitempty"`
	At      time.Time       `json:"at"`
}

// Frame is the short-term conversational context for one session: the
// last K turns plus the most recent intent, filters and referenced
// item. Update is the single mutation point; Resolve never touches
// history. Frames are never shared across sessions.
type Frame struct {
	Turns       []Turn          `json:"turns"`
	Max         int             `json:"max"`
	LastIntent  model.Intent    `json:"last_intent,omitempty"`
	LastFilters model.FilterSet `json:"last_filters,omitempty"`
	LastItemID  string          `json:"last_item_id,omitempty"`
}

// NewFrame returns an empty frame bounded to max turns.
func NewFrame(max int) *Frame {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &Frame{Max: max}
}

// Update appends a turn, dropping the oldest when the bound is hit.
func (f *Frame) Update(t Turn) {
	f.Turns = append(f.Turns, t)
	if len(f.Turns) > f.Max {
		f.Turns = f.Turns[len(f.Turns)-f.Max:]
	}
	f.LastIntent = t.Intent
	f.LastFilters = t.Filters
	if t.ItemID != "" {
		f.LastItemID = t.ItemID
	}
}

// inheritableSlots lists, per intent, the slots a follow-up turn may
// inherit from recent history. Resolution is slot-scoped: a value query
// may pick up a stale location, but a search never inherits an
// acquisition type.
var inheritableSlots = map[model.Intent][]model.Slot{
	model.IntentSearch: {
		model.SlotCategory, model.SlotLocation, model.SlotCondition,
		model.SlotPriceMin, model.SlotPriceMax,
		model.SlotDateFrom, model.SlotDateTo,
	},
	model.IntentCount: {
		model.SlotCategory, model.SlotLocation, model.SlotCondition,
		model.SlotPriceMin, model.SlotPriceMax,
		model.SlotDateFrom, model.SlotDateTo,
	},
	model.IntentValue: {
		model.SlotCategory, model.SlotLocation,
		model.SlotDateFrom, model.SlotDateTo,
	},
	model.IntentPriceRange: {
		model.SlotCategory, model.SlotLocation,
	},
	model.IntentRepair: {
		model.SlotCategory, model.SlotLocation,
	},
	model.IntentPurchaseHistory: {
		model.SlotCategory, model.SlotLocation,
		model.SlotDateFrom, model.SlotDateTo,
	},
	// log_acquisition and unknown inherit nothing.
}

// Resolve fills slots missing from the current turn's filters using
// the most recent turn that had them, within the idle window and only
// for slots the intent's handler consumes. The current turn's own
// filters are never overwritten.
func (f *Frame) Resolve(intent model.Intent, cur model.FilterSet, window time.Duration) model.FilterSet {
	merged := cur.Clone()
	allowed := inheritableSlots[intent]
	if len(allowed) == 0 || len(f.Turns) == 0 {
		return merged
	}

	cutoff := time.Now().Add(-window)
	for _, slot := range allowed {
		if merged.Has(slot) {
			continue
		}
		for i := len(f.Turns) - 1; i >= 0; i-- {
			t := f.Turns[i]
			if t.At.Before(cutoff) {
				break
			}
			if v, ok := t.Filters[slot]; ok {
				merged[slot] = v
				break
			}
		}
	}
	return merged
}
