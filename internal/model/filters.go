package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Slot is a single named piece of structured information extracted from
// text. Values are stored in a canonical string encoding: prices as
// "45.00", dates as "2006-01-02", everything else lowercased.
type Slot string

const (
	SlotCategory        Slot = "category"
	SlotLocation        Slot = "location"
	SlotDateFrom        Slot = "date_from"
	SlotDateTo          Slot = "date_to"
	SlotPriceMin        Slot = "price_min"
	SlotPriceMax        Slot = "price_max"
	SlotCondition       Slot = "condition"
	SlotAcquisitionType Slot = "acquisition_type"

	// Capture slots used while collecting acquisition fields. A single
	// exact amount or day lands here rather than in the range slots.
	SlotPrice Slot = "price"
	SlotDate  Slot = "date"
	SlotItem  Slot = "item"
)

// DateLayout is the canonical encoding for date slot values.
const DateLayout = "2006-01-02"

// FilterSet maps slots to extracted values. A key is only present when
// a value was found; absence is not the same as an explicit "any".
type FilterSet map[Slot]string

// Has reports whether the slot carries a value.
func (f FilterSet) Has(s Slot) bool {
	_, ok := f[s]
	return ok
}

// Clone returns an independent copy.
func (f FilterSet) Clone() FilterSet {
	out := make(FilterSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Price returns the slot value parsed as an amount.
func (f FilterSet) Price(s Slot) (float64, bool) {
	v, ok := f[s]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Date returns the slot value parsed as a canonical day.
func (f FilterSet) Date(s Slot) (time.Time, bool) {
	v, ok := f[s]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Equal reports whether both sets carry exactly the same slots and values.
func (f FilterSet) Equal(other FilterSet) bool {
	if len(f) != len(other) {
		return false
	}
	for k, v := range f {
		if other[k] != v {
			return false
		}
	}
	return true
}

// Describe renders the filter set as normalized text. Extracting from
// the rendered form yields the same filter set back, which keeps
// extraction idempotent on already-normalized input.
func (f FilterSet) Describe() string {
	var parts []string

	if v, ok := f[SlotItem]; ok {
		parts = append(parts, "item "+v)
	}
	if v, ok := f[SlotCategory]; ok {
		parts = append(parts, "category "+v)
	}
	if v, ok := f[SlotCondition]; ok {
		parts = append(parts, "condition "+v)
	}
	if v, ok := f[SlotAcquisitionType]; ok {
		parts = append(parts, "acquired via "+v)
	}

	min, hasMin := f[SlotPriceMin]
	max, hasMax := f[SlotPriceMax]
	switch {
	case hasMin && hasMax:
		parts = append(parts, fmt.Sprintf("between $%s and $%s", min, max))
	case hasMin:
		parts = append(parts, "more than $"+min)
	case hasMax:
		parts = append(parts, "less than $"+max)
	}
	if v, ok := f[SlotPrice]; ok {
		parts = append(parts, "for $"+v)
	}

	from, hasFrom := f[SlotDateFrom]
	to, hasTo := f[SlotDateTo]
	switch {
	case hasFrom && hasTo && from == to:
		parts = append(parts, "on "+from)
	case hasFrom && hasTo:
		parts = append(parts, fmt.Sprintf("from %s to %s", from, to))
	case f.Has(SlotDate):
		parts = append(parts, "on "+f[SlotDate])
	}

	// Location goes last: the rendered form is end-anchored so multiword
	// locations survive the round trip.
	if v, ok := f[SlotLocation]; ok {
		parts = append(parts, "location "+v)
	}

	return strings.Join(parts, " ")
}

// Slots returns the present slot names in a stable order.
func (f FilterSet) Slots() []Slot {
	out := make([]Slot, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
