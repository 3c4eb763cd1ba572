package nlu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packrat/internal/model"
)

// fixedNow keeps relative-date extraction deterministic.
var fixedNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e := NewExtractor(nil, nil)
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestExtractFullySpecifiedPurchase(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("I bought a blender for $45 at Walmart last week")

	assert.Equal(t, "purchased", f[model.SlotAcquisitionType])
	assert.Equal(t, "blender", f[model.SlotItem])
	assert.Equal(t, "appliances", f[model.SlotCategory])
	assert.Equal(t, "45.00", f[model.SlotPrice])
	assert.Equal(t, "walmart", f[model.SlotLocation])
	assert.Equal(t, "2026-08-16", f[model.SlotDateFrom])
	assert.Equal(t, "2026-08-23", f[model.SlotDateTo])
}

func TestExtractEmptyInput(t *testing.T) {
	e := newTestExtractor(t)
	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   "))
}

func TestExtractSingleDay(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("I found it yesterday")
	assert.Equal(t, "found", f[model.SlotAcquisitionType])
	assert.Equal(t, "2026-08-22", f[model.SlotDate])
	assert.Equal(t, "2026-08-22", f[model.SlotDateFrom])
	assert.Equal(t, "2026-08-22", f[model.SlotDateTo])
}

func TestExtractExplicitDateBeatsRelative(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("bought last week, on 2026-07-04 actually")
	assert.Equal(t, "2026-07-04", f[model.SlotDate])
	assert.Equal(t, "2026-07-04", f[model.SlotDateFrom])
	assert.Equal(t, "2026-07-04", f[model.SlotDateTo])
}

func TestExtractRightmostPriceWins(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("it cost 30, no wait, $45")
	assert.Equal(t, "45.00", f[model.SlotPrice])
}

func TestExtractSpelledOutPrice(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("picked it up for forty bucks")
	assert.Equal(t, "40.00", f[model.SlotPrice])

	f = e.Extract("paid forty-five dollars")
	assert.Equal(t, "45.00", f[model.SlotPrice])

	f = e.Extract("about a hundred bucks")
	assert.Equal(t, "100.00", f[model.SlotPrice])
}

func TestExtractDurationIsNotAPrice(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("borrowed it for 2 weeks")
	assert.NotContains(t, f, model.SlotPrice)
	assert.Equal(t, "borrowed", f[model.SlotAcquisitionType])
}

func TestExtractPriceBounds(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("what cost more than $100")
	assert.Equal(t, "100.00", f[model.SlotPriceMin])
	assert.NotContains(t, f, model.SlotPrice, "a bound is not a price")

	f = e.Extract("anything under 50 dollars")
	assert.Equal(t, "50.00", f[model.SlotPriceMax])

	f = e.Extract("items between $20 and $50")
	assert.Equal(t, "20.00", f[model.SlotPriceMin])
	assert.Equal(t, "50.00", f[model.SlotPriceMax])
	assert.NotContains(t, f, model.SlotPrice)
}

func TestExtractLocations(t *testing.T) {
	e := newTestExtractor(t)

	// Proper nouns land lowercased, the canonical slot encoding.
	f := e.Extract("got it at Walmart")
	assert.Equal(t, "walmart", f[model.SlotLocation])

	f = e.Extract("picked it up from Home Depot")
	assert.Equal(t, "home depot", f[model.SlotLocation])

	f = e.Extract("bought it at the hardware store")
	assert.Equal(t, "hardware store", f[model.SlotLocation])

	f = e.Extract("the boxes in the garage")
	assert.Equal(t, "garage", f[model.SlotLocation])
}

func TestExtractItemMention(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("someone gave me this lamp")
	assert.Equal(t, "lamp", f[model.SlotItem])
	assert.Equal(t, "gift", f[model.SlotAcquisitionType])

	// Vocabulary locations and conditions never become items.
	f = e.Extract("it is in my garage")
	assert.NotContains(t, f, model.SlotItem)

	f = e.Extract("my drill is broken")
	assert.Equal(t, "drill", f[model.SlotItem])
	assert.Equal(t, "broken", f[model.SlotCondition])
}

func TestExtractRightmostAcquisitionWins(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("I thought I bought it but actually I inherited it")
	assert.Equal(t, "inherited", f[model.SlotAcquisitionType])
}

func TestExtractConditionSynonyms(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract("the mower is busted")
	assert.Equal(t, "broken", f[model.SlotCondition])

	f = e.Extract("what needs to be fixed")
	assert.Equal(t, "needs_repair", f[model.SlotCondition])

	f = e.Extract("the chair is being repaired")
	assert.Equal(t, "in_progress", f[model.SlotCondition])
}

func TestExtractIdempotentOnNormalizedForm(t *testing.T) {
	e := newTestExtractor(t)

	cases := []model.FilterSet{
		{
			model.SlotItem:            "drill",
			model.SlotCategory:        "tools",
			model.SlotCondition:       "used",
			model.SlotAcquisitionType: "purchased",
			model.SlotPriceMin:        "50.00",
			model.SlotPriceMax:        "200.00",
			model.SlotDateFrom:        "2026-01-01",
			model.SlotDateTo:          "2026-06-30",
			model.SlotLocation:        "garage",
		},
		{
			model.SlotItem:            "guitar",
			model.SlotAcquisitionType: "gift",
			model.SlotDate:            "2026-08-22",
			model.SlotDateFrom:        "2026-08-22",
			model.SlotDateTo:          "2026-08-22",
			model.SlotLocation:        "bedroom",
		},
		{
			model.SlotCategory: "electronics",
			model.SlotPriceMax: "300.00",
		},
	}

	for _, f := range cases {
		rendered := f.Describe()
		got := e.Extract(rendered)
		require.True(t, f.Equal(got),
			"round trip through %q: want %v, got %v", rendered, f, got)
	}

	// The property must also hold for the extractor's own output on raw
	// text, including capitalized store names.
	first := e.Extract("I bought a blender for $45 at Walmart last week")
	require.Equal(t, "walmart", first[model.SlotLocation])
	second := e.Extract(first.Describe())
	require.True(t, first.Equal(second),
		"round trip through %q: want %v, got %v", first.Describe(), first, second)
}
