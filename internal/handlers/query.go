package handlers

import (
	"context"
	"fmt"
	"strings"

	"packrat/internal/model"
	"packrat/internal/store"
)

// searchHandler lists matching items.
func searchHandler(s store.Store) func(context.Context, model.FilterSet) (*model.QueryResult, error) {
	return func(ctx context.Context, f model.FilterSet) (*model.QueryResult, error) {
		items, err := s.QueryItems(ctx, criteriaFromFilters(f))
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if len(items) == 0 {
			return &model.QueryResult{Message: noMatchMessage(f)}, nil
		}
		return &model.QueryResult{
			Message: fmt.Sprintf("Found %s:", countNoun(len(items))),
			Items:   items,
			Count:   len(items),
		}, nil
	}
}

// countHandler answers "how many" questions.
func countHandler(s store.Store) func(context.Context, model.FilterSet) (*model.QueryResult, error) {
	return func(ctx context.Context, f model.FilterSet) (*model.QueryResult, error) {
		n, err := s.CountItems(ctx, criteriaFromFilters(f))
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		return &model.QueryResult{
			Message: fmt.Sprintf("You have %s%s.", countNoun(n), scopeSuffix(f)),
			Count:   n,
		}, nil
	}
}

// valueHandler totals spending over the matching set. An empty match
// set is a zero total, not an error.
func valueHandler(s store.Store) func(context.Context, model.FilterSet) (*model.QueryResult, error) {
	return func(ctx context.Context, f model.FilterSet) (*model.QueryResult, error) {
		total, err := s.SumPrices(ctx, criteriaFromFilters(f))
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		return &model.QueryResult{
			Message: fmt.Sprintf("Total spent%s: $%.2f.", scopeSuffix(f), total),
			Total:   total,
		}, nil
	}
}

// priceRangeHandler lists items above or below a price bound.
func priceRangeHandler(s store.Store) func(context.Context, model.FilterSet) (*model.QueryResult, error) {
	return func(ctx context.Context, f model.FilterSet) (*model.QueryResult, error) {
		if !f.Has(model.SlotPriceMin) && !f.Has(model.SlotPriceMax) {
			return &model.QueryResult{
				Message: "What price range are you interested in? Try \"more than $100\" or \"less than $50\".",
			}, nil
		}
		items, err := s.QueryItems(ctx, criteriaFromFilters(f))
		if err != nil {
			return nil, fmt.Errorf("price range: %w", err)
		}
		if len(items) == 0 {
			return &model.QueryResult{Message: noMatchMessage(f)}, nil
		}
		return &model.QueryResult{
			Message: fmt.Sprintf("%s in that price range:", countNoun(len(items))),
			Items:   items,
			Count:   len(items),
		}, nil
	}
}

// repairStatuses maps extracted condition values onto repair record
// statuses. Anything unmapped defaults to open repairs.
var repairStatuses = map[string]string{
	"broken":       "needs_repair",
	"needs_repair": "needs_repair",
	"in_progress":  "in_progress",
	"completed":    "completed",
}

// repairHandler lists repair records, scoped to a status when the
// utterance named one.
func repairHandler(s store.Store) func(context.Context, model.FilterSet) (*model.QueryResult, error) {
	return func(ctx context.Context, f model.FilterSet) (*model.QueryResult, error) {
		status := repairStatuses[f[model.SlotCondition]]
		if status == "" {
			status = "needs_repair"
		}
		repairs, err := s.QueryRepairs(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("repairs: %w", err)
		}
		if len(repairs) == 0 {
			return &model.QueryResult{Message: "Nothing needs attention right now."}, nil
		}
		noun := "repair"
		if len(repairs) != 1 {
			noun = "repairs"
		}
		return &model.QueryResult{
			Message: fmt.Sprintf("%d %s on record:", len(repairs), noun),
			Repairs: repairs,
			Count:   len(repairs),
		}, nil
	}
}

// historyHandler lists purchases newest first.
func historyHandler(s store.Store) func(context.Context, model.FilterSet) (*model.QueryResult, error) {
	return func(ctx context.Context, f model.FilterSet) (*model.QueryResult, error) {
		c := criteriaFromFilters(f)
		c.AcquisitionType = string(model.AcquisitionPurchased)
		c.Chronological = true

		items, err := s.QueryItems(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("purchase history: %w", err)
		}
		if len(items) == 0 {
			return &model.QueryResult{Message: "No purchases on record" + scopeSuffix(f) + "."}, nil
		}
		return &model.QueryResult{
			Message: fmt.Sprintf("Your last %s:", countNoun(len(items))),
			Items:   items,
			Count:   len(items),
		}, nil
	}
}

func countNoun(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// scopeSuffix renders the filters a message refers back to, so answers
// read as "You have 3 items in the garage."
func scopeSuffix(f model.FilterSet) string {
	var parts []string
	if v := f[model.SlotCategory]; v != "" {
		parts = append(parts, "in "+v)
	}
	if v := f[model.SlotLocation]; v != "" {
		parts = append(parts, "in the "+v)
	}
	if v := f[model.SlotDateFrom]; v != "" {
		if to := f[model.SlotDateTo]; to != "" && to != v {
			parts = append(parts, fmt.Sprintf("between %s and %s", v, to))
		} else {
			parts = append(parts, "on "+v)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func noMatchMessage(f model.FilterSet) string {
	if len(f) == 0 {
		return "Your inventory is empty."
	}
	return "No items match" + scopeSuffix(f) + "."
}
