package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orderhub-bot/internal/model"
)

// ListItems returns every catalog item ordered by name.
func (s *SQLiteStore) ListItems(ctx context.Context) ([]model.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, quantity_available, unit_price FROM catalog_items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer rows.Close()

	items := []model.CatalogItem{}
	for rows.Next() {
		var item model.CatalogItem
		if err := rows.Scan(&item.ID, &item.Name, &item.QuantityAvailable, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItemByName finds an item by case-insensitive exact name.
// The name column is COLLATE NOCASE, so plain equality is enough.
func (s *SQLiteStore) GetItemByName(ctx context.Context, name string) (*model.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var item model.CatalogItem
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, quantity_available, unit_price FROM catalog_items WHERE name = ?`,
		name).Scan(&item.ID, &item.Name, &item.QuantityAvailable, &item.UnitPrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item by name: %w", err)
	}
	return &item, nil
}

// GetItem finds an item by id.
func (s *SQLiteStore) GetItem(ctx context.Context, id int64) (*model.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var item model.CatalogItem
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, quantity_available, unit_price FROM catalog_items WHERE id = ?`,
		id).Scan(&item.ID, &item.Name, &item.QuantityAvailable, &item.UnitPrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}
	return &item, nil
}

// CreateItem inserts a new catalog item.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *model.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_items (name, quantity_available, unit_price) VALUES (?, ?, ?)`,
		item.Name, item.QuantityAvailable, item.UnitPrice.String())
	if err != nil {
		return fmt.Errorf("failed to create catalog item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	return err
}

// AdjustStock applies a delta to an item's available quantity and
// returns the new level. The guard clause keeps availability from
// going negative under concurrent adjustments.
func (s *SQLiteStore) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE catalog_items
		 SET quantity_available = quantity_available + ?
		 WHERE id = ? AND quantity_available + ? >= 0`,
		delta, id, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Either the item is unknown or the delta would underflow.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM catalog_items WHERE id = ?`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, fmt.Errorf("catalog item %d not found", id)
		}
		return 0, ErrStockConflict
	}

	var remaining int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT quantity_available FROM catalog_items WHERE id = ?`, id).Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}
