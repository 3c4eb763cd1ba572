package store

import (
	"context"
	"fmt"
)

// Stats is a summary snapshot of the inventory.
type Stats struct {
	TotalItems    int
	TotalValue    float64
	ByCategory    map[string]int
	ByAcquisition map[string]int
	OpenRepairs   int
}

// Stats aggregates inventory counts and value in one pass per axis.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ByCategory:    map[string]int{},
		ByAcquisition: map[string]int{},
	}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(price), 0) FROM items").Scan(&st.TotalItems, &st.TotalValue)
	if err != nil {
		return nil, unavailable("stats totals", err)
	}

	if err := s.groupCount(ctx, "category", st.ByCategory); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "acquisition_type", st.ByAcquisition); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM repairs WHERE status != 'completed'").Scan(&st.OpenRepairs)
	if err != nil {
		return nil, unavailable("stats repairs", err)
	}
	return st, nil
}

func (s *SQLiteStore) groupCount(ctx context.Context, column string, out map[string]int) error {
	query := fmt.Sprintf(
		"SELECT COALESCE(NULLIF(%s, ''), 'uncategorized'), COUNT(*) FROM items GROUP BY 1", column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return unavailable("stats group", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan stats row: %w", err)
		}
		out[key] = n
	}
	return rows.Err()
}
