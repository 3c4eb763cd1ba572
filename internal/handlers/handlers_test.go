package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packrat/internal/model"
	"packrat/internal/store"
)

// fakeStore records the criteria it was queried with and returns
// canned data.
type fakeStore struct {
	items    []model.Item
	repairs  []model.Repair
	sum      float64
	err      error
	lastCrit store.Criteria
	lastStat string
}

func (f *fakeStore) QueryItems(ctx context.Context, c store.Criteria) ([]model.Item, error) {
	f.lastCrit = c
	return f.items, f.err
}

func (f *fakeStore) CountItems(ctx context.Context, c store.Criteria) (int, error) {
	f.lastCrit = c
	return len(f.items), f.err
}

func (f *fakeStore) SumPrices(ctx context.Context, c store.Criteria) (float64, error) {
	f.lastCrit = c
	return f.sum, f.err
}

func (f *fakeStore) QueryRepairs(ctx context.Context, status string) ([]model.Repair, error) {
	f.lastStat = status
	return f.repairs, f.err
}

func (f *fakeStore) InsertAcquisition(ctx context.Context, rec *model.AcquisitionRecord) (string, error) {
	return "", nil
}

func (f *fakeStore) SaveSession(ctx context.Context, id, kind string, blob []byte) error { return nil }
func (f *fakeStore) LoadSession(ctx context.Context, id, kind string) ([]byte, error)   { return nil, nil }
func (f *fakeStore) DeleteSession(ctx context.Context, id, kind string) error           { return nil }
func (f *fakeStore) Close() error                                                       { return nil }

func TestCriteriaFromFilters(t *testing.T) {
	f := model.FilterSet{
		model.SlotCategory: "tools",
		model.SlotLocation: "garage",
		model.SlotPriceMin: "50.00",
		model.SlotPriceMax: "200.00",
		model.SlotDateFrom: "2026-01-01",
		model.SlotDateTo:   "2026-06-30",
	}

	c := criteriaFromFilters(f)
	assert.Equal(t, "tools", c.Category)
	assert.Equal(t, "garage", c.Location)
	require.NotNil(t, c.PriceMin)
	assert.Equal(t, 50.0, *c.PriceMin)
	require.NotNil(t, c.PriceMax)
	assert.Equal(t, 200.0, *c.PriceMax)
	require.NotNil(t, c.DateFrom)
	assert.Equal(t, "2026-01-01", c.DateFrom.Format(model.DateLayout))

	empty := criteriaFromFilters(model.FilterSet{})
	assert.Nil(t, empty.PriceMin)
	assert.Nil(t, empty.DateFrom)
	assert.Empty(t, empty.Category)
}

func TestSearchHandler(t *testing.T) {
	fs := &fakeStore{items: []model.Item{{Name: "drill"}, {Name: "saw"}}}
	reg := NewRegistry(fs)

	res, err := reg[model.IntentSearch].Handle(context.Background(),
		model.FilterSet{model.SlotLocation: "garage"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "garage", fs.lastCrit.Location)
}

func TestSearchHandlerNoMatches(t *testing.T) {
	reg := NewRegistry(&fakeStore{})

	res, err := reg[model.IntentSearch].Handle(context.Background(),
		model.FilterSet{model.SlotCategory: "sports"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Contains(t, res.Message, "No items match")
}

func TestValueHandlerEmptySetIsZero(t *testing.T) {
	reg := NewRegistry(&fakeStore{sum: 0})

	res, err := reg[model.IntentValue].Handle(context.Background(), model.FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Total)
	assert.Contains(t, res.Message, "$0.00")
}

func TestPriceRangeHandlerNeedsBound(t *testing.T) {
	reg := NewRegistry(&fakeStore{})

	res, err := reg[model.IntentPriceRange].Handle(context.Background(), model.FilterSet{})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "price range")

	fs := &fakeStore{items: []model.Item{{Name: "tv", Price: 800}}}
	reg = NewRegistry(fs)
	res, err = reg[model.IntentPriceRange].Handle(context.Background(),
		model.FilterSet{model.SlotPriceMin: "100.00"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	require.NotNil(t, fs.lastCrit.PriceMin)
	assert.Equal(t, 100.0, *fs.lastCrit.PriceMin)
}

func TestRepairHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		condition string
		status    string
	}{
		{"broken", "needs_repair"},
		{"needs_repair", "needs_repair"},
		{"in_progress", "in_progress"},
		{"completed", "completed"},
		{"", "needs_repair"},
	}

	for _, tc := range cases {
		fs := &fakeStore{repairs: []model.Repair{{ItemName: "mower", Status: tc.status}}}
		reg := NewRegistry(fs)

		f := model.FilterSet{}
		if tc.condition != "" {
			f[model.SlotCondition] = tc.condition
		}
		_, err := reg[model.IntentRepair].Handle(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, tc.status, fs.lastStat, "condition %q", tc.condition)
	}
}

func TestHistoryHandlerForcesPurchases(t *testing.T) {
	fs := &fakeStore{items: []model.Item{{Name: "blender", AcquisitionType: "purchased"}}}
	reg := NewRegistry(fs)

	_, err := reg[model.IntentPurchaseHistory].Handle(context.Background(), model.FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, "purchased", fs.lastCrit.AcquisitionType)
	assert.True(t, fs.lastCrit.Chronological)
}

func TestHandlersPropagateStoreErrors(t *testing.T) {
	fs := &fakeStore{err: store.ErrUnavailable}
	reg := NewRegistry(fs)

	for _, intent := range []model.Intent{
		model.IntentSearch, model.IntentCount, model.IntentValue,
		model.IntentRepair, model.IntentPurchaseHistory,
	} {
		_, err := reg[intent].Handle(context.Background(), model.FilterSet{})
		assert.ErrorIs(t, err, store.ErrUnavailable, "intent %s", intent)
	}
}
