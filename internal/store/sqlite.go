package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"packrat/internal/dialogue"
	"packrat/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		description      TEXT,
		quantity         INTEGER NOT NULL DEFAULT 1,
		category         TEXT,
		acquisition_type TEXT NOT NULL DEFAULT 'purchased',
		source_details   TEXT,
		price            REAL,
		purchase_date    TEXT,
		warranty_expiry  TEXT,
		location         TEXT,
		condition        TEXT,
		notes            TEXT,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
	CREATE INDEX IF NOT EXISTS idx_items_location ON items(location);
	CREATE INDEX IF NOT EXISTS idx_items_acquisition ON items(acquisition_type);
	CREATE INDEX IF NOT EXISTS idx_items_purchase_date ON items(purchase_date);

	CREATE TABLE IF NOT EXISTS trades (
		id                TEXT PRIMARY KEY,
		item_id           TEXT NOT NULL REFERENCES items(id),
		traded_item       TEXT,
		traded_item_value REAL,
		trade_partner     TEXT,
		notes             TEXT,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_item ON trades(item_id);

	CREATE TABLE IF NOT EXISTS repairs (
		id           TEXT PRIMARY KEY,
		item_id      TEXT NOT NULL REFERENCES items(id),
		description  TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'needs_repair',
		cost         REAL,
		repair_date  TEXT,
		next_due_date TEXT,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_repairs_item ON repairs(item_id);
	CREATE INDEX IF NOT EXISTS idx_repairs_status ON repairs(status);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT NOT NULL,
		kind       TEXT NOT NULL,
		blob       BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (session_id, kind)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// unavailable tags connectivity-class failures so callers can treat
// them as retryable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// buildWhere translates criteria into a WHERE clause and args.
func buildWhere(c Criteria) (string, []interface{}) {
	var where []string
	var args []interface{}

	if c.Category != "" {
		where = append(where, "category = ?")
		args = append(args, c.Category)
	}
	if c.Location != "" {
		where = append(where, "LOWER(location) = LOWER(?)")
		args = append(args, c.Location)
	}
	if c.Condition != "" {
		where = append(where, "condition = ?")
		args = append(args, c.Condition)
	}
	if c.AcquisitionType != "" {
		where = append(where, "acquisition_type = ?")
		args = append(args, c.AcquisitionType)
	}
	if c.PriceMin != nil {
		where = append(where, "price >= ?")
		args = append(args, *c.PriceMin)
	}
	if c.PriceMax != nil {
		where = append(where, "price <= ?")
		args = append(args, *c.PriceMax)
	}
	if c.DateFrom != nil {
		where = append(where, "purchase_date >= ?")
		args = append(args, c.DateFrom.Format(model.DateLayout))
	}
	if c.DateTo != nil {
		where = append(where, "purchase_date <= ?")
		args = append(args, c.DateTo.Format(model.DateLayout))
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// QueryItems returns read copies of matching items. Unconstrained
// criteria return everything; "show me all my items" is a valid ask.
func (s *SQLiteStore) QueryItems(ctx context.Context, c Criteria) ([]model.Item, error) {
	query := `SELECT id, name, COALESCE(category,''), COALESCE(location,''),
		COALESCE(condition,''), acquisition_type, COALESCE(source_details,''),
		COALESCE(price,0), COALESCE(purchase_date,'') FROM items`

	clause, args := buildWhere(c)
	query += clause
	if c.Chronological {
		query += " ORDER BY purchase_date DESC"
	} else {
		query += " ORDER BY created_at DESC"
	}
	if c.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", c.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query items", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Location,
			&it.Condition, &it.AcquisitionType, &it.SourceDetails,
			&it.Price, &it.PurchaseDate); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountItems returns the number of matching items.
func (s *SQLiteStore) CountItems(ctx context.Context, c Criteria) (int, error) {
	clause, args := buildWhere(c)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items"+clause, args...).Scan(&n)
	if err != nil {
		return 0, unavailable("count items", err)
	}
	return n, nil
}

// SumPrices totals item prices over the matching set; empty set sums
// to zero.
func (s *SQLiteStore) SumPrices(ctx context.Context, c Criteria) (float64, error) {
	clause, args := buildWhere(c)
	var total float64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(price), 0) FROM items"+clause, args...).Scan(&total)
	if err != nil {
		return 0, unavailable("sum prices", err)
	}
	return total, nil
}

// QueryRepairs returns repair records joined with their item names.
func (s *SQLiteStore) QueryRepairs(ctx context.Context, status string) ([]model.Repair, error) {
	query := `SELECT r.id, r.item_id, i.name, r.description, r.status,
		COALESCE(r.cost,0), COALESCE(r.repair_date,'')
		FROM repairs r JOIN items i ON r.item_id = i.id`
	var args []interface{}
	if status != "" {
		query += " WHERE r.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query repairs", err)
	}
	defer rows.Close()

	var repairs []model.Repair
	for rows.Next() {
		var r model.Repair
		if err := rows.Scan(&r.ID, &r.ItemID, &r.ItemName, &r.Description,
			&r.Status, &r.Cost, &r.RepairDate); err != nil {
			return nil, fmt.Errorf("scan repair: %w", err)
		}
		repairs = append(repairs, r)
	}
	return repairs, rows.Err()
}

// InsertAcquisition persists a completed acquisition record: one item
// row, plus a trades row when the record came from a trade dialogue.
func (s *SQLiteStore) InsertAcquisition(ctx context.Context, rec *model.AcquisitionRecord) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", unavailable("insert acquisition", err)
	}
	defer tx.Rollback()

	id := s.newID()
	now := time.Now().UTC().Format(time.RFC3339)

	name := rec.Item
	if name == "" {
		name = "unnamed item"
	}

	var price interface{}
	if v := rec.Fields[dialogue.FieldPrice]; v != "" && v != dialogue.FieldUnknown {
		price = v
	} else if v := rec.Fields[dialogue.FieldMaterialsCost]; v != "" && v != dialogue.FieldUnknown {
		price = v
	}

	var purchaseDate interface{}
	if v := rec.Fields[dialogue.FieldDate]; v != "" && v != dialogue.FieldUnknown {
		purchaseDate = v
	}

	// Who it came from lands in source_details regardless of type.
	var source interface{}
	if v := rec.Fields[dialogue.FieldFromWhom]; v != "" && v != dialogue.FieldUnknown {
		source = v
	} else if v := rec.Fields[dialogue.FieldEvent]; v != "" && v != dialogue.FieldUnknown {
		source = v
	}

	var location interface{}
	if v := rec.Fields[dialogue.FieldLocation]; v != "" && v != dialogue.FieldUnknown {
		location = v
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO items
		(id, name, acquisition_type, source_details, price, purchase_date, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, string(rec.Type), source, price, purchaseDate, location, now)
	if err != nil {
		return "", unavailable("insert item", err)
	}

	if rec.Type == model.AcquisitionTrade {
		_, err = tx.ExecContext(ctx, `INSERT INTO trades
			(id, item_id, traded_item, trade_partner, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			s.newID(), id,
			nullable(rec.Fields[dialogue.FieldTradedFor]),
			nullable(rec.Fields[dialogue.FieldWithWhom]), now)
		if err != nil {
			return "", unavailable("insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", unavailable("insert acquisition", err)
	}

	log.Info().Str("id", id).Str("type", string(rec.Type)).Msg("acquisition persisted")
	return id, nil
}

func nullable(v string) interface{} {
	if v == "" || v == dialogue.FieldUnknown {
		return nil
	}
	return v
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
