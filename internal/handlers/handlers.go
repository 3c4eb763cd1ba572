// Package handlers maps classified intents to storage queries and
// shapes the results into user-facing answers.
package handlers

import (
	"context"

	"packrat/internal/model"
	"packrat/internal/store"
)

// Handler answers one intent given the resolved filter set.
type Handler interface {
	Handle(ctx context.Context, f model.FilterSet) (*model.QueryResult, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, f model.FilterSet) (*model.QueryResult, error)

func (fn HandlerFunc) Handle(ctx context.Context, f model.FilterSet) (*model.QueryResult, error) {
	return fn(ctx, f)
}

// Registry maps each answerable intent to its handler.
type Registry map[model.Intent]Handler

// NewRegistry wires every query intent to a handler over the store.
func NewRegistry(s store.Store) Registry {
	return Registry{
		model.IntentSearch:          HandlerFunc(searchHandler(s)),
		model.IntentCount:           HandlerFunc(countHandler(s)),
		model.IntentValue:           HandlerFunc(valueHandler(s)),
		model.IntentPriceRange:      HandlerFunc(priceRangeHandler(s)),
		model.IntentRepair:          HandlerFunc(repairHandler(s)),
		model.IntentPurchaseHistory: HandlerFunc(historyHandler(s)),
	}
}

// criteriaFromFilters translates an extracted filter set into the
// store's query shape. Unset slots stay unconstrained.
func criteriaFromFilters(f model.FilterSet) store.Criteria {
	c := store.Criteria{
		Category:        f[model.SlotCategory],
		Location:        f[model.SlotLocation],
		Condition:       f[model.SlotCondition],
		AcquisitionType: f[model.SlotAcquisitionType],
	}
	if v, ok := f.Price(model.SlotPriceMin); ok {
		c.PriceMin = &v
	}
	if v, ok := f.Price(model.SlotPriceMax); ok {
		c.PriceMax = &v
	}
	if v, ok := f.Date(model.SlotDateFrom); ok {
		c.DateFrom = &v
	}
	if v, ok := f.Date(model.SlotDateTo); ok {
		c.DateTo = &v
	}
	return c
}
