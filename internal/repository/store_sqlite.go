package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore is the primary transactional store: catalog, orders,
// order lines, feedback, and the default account roster all live here.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed initializes) the store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

// createTables creates the schema. Foreign keys are RESTRICT on delete:
// a catalog item referenced by historical order lines cannot be removed.
func createTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		display_name TEXT NOT NULL,
		external_identity TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS catalog_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		quantity_available INTEGER NOT NULL DEFAULT 0 CHECK (quantity_available >= 0),
		unit_price TEXT NOT NULL DEFAULT '0'
	);
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reference TEXT NOT NULL UNIQUE,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		status TEXT NOT NULL DEFAULT 'Pending',
		placed_at DATETIME NOT NULL,
		total_amount TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS order_lines (
		order_id INTEGER NOT NULL REFERENCES orders(id),
		catalog_item_id INTEGER NOT NULL REFERENCES catalog_items(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price_at_order TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_account ON orders(account_id);
	CREATE INDEX IF NOT EXISTS idx_orders_placed_at ON orders(placed_at);
	CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id);
	`
	_, err := db.Exec(query)
	return err
}

// Stats returns statistics about the store for the admin API.
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	counts := map[string]string{
		"accounts":      "SELECT COUNT(*) FROM accounts",
		"catalog_items": "SELECT COUNT(*) FROM catalog_items",
		"orders":        "SELECT COUNT(*) FROM orders",
		"feedback":      "SELECT COUNT(*) FROM feedback",
	}
	for name, query := range counts {
		var count int64
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	// Last order time
	var lastOrder sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(placed_at) FROM orders").Scan(&lastOrder); err == nil && lastOrder.Valid {
		stats["last_order"] = lastOrder.Time
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements every store interface
var (
	_ CatalogRepository  = (*SQLiteStore)(nil)
	_ OrderRepository    = (*SQLiteStore)(nil)
	_ AccountRepository  = (*SQLiteStore)(nil)
	_ FeedbackRepository = (*SQLiteStore)(nil)
)
