package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"orderhub-bot/internal/model"
	"orderhub-bot/pkg/uid"

	"github.com/shopspring/decimal"
)

// CommitOrder is the fulfillment transaction. Inside one SQL transaction it
// re-validates stock via conditional decrements (closing the race between
// confirmation display and commit), creates the order and its lines with
// price-at-order-time copies, and returns the resulting stock levels.
// Any stock shortfall aborts the whole commit; partial orders are never
// created.
func (s *SQLiteStore) CommitOrder(ctx context.Context, accountID int64, lines []model.DraftLine) (*model.Order, []model.StockLevel, error) {
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("commit with no lines")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Conditional decrement doubles as the re-validation: zero rows
	// affected means stock changed since resolution. All lines are
	// checked so the caller sees every shortfall at once.
	var conflicts []model.StockLevel
	for _, line := range lines {
		res, err := tx.ExecContext(ctx,
			`UPDATE catalog_items
			 SET quantity_available = quantity_available - ?
			 WHERE id = ? AND quantity_available >= ?`,
			line.Quantity, line.CatalogItemID, line.Quantity)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, nil, err
		}
		if affected == 0 {
			var available int64
			// Unknown items read as zero availability.
			_ = tx.QueryRowContext(ctx,
				`SELECT quantity_available FROM catalog_items WHERE id = ?`,
				line.CatalogItemID).Scan(&available)
			conflicts = append(conflicts, model.StockLevel{
				CatalogItemID: line.CatalogItemID,
				Name:          line.Name,
				Remaining:     available,
			})
		}
	}
	if len(conflicts) > 0 {
		return nil, nil, &StockConflictError{Lines: conflicts}
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
	}
	total = total.Round(2)

	order := &model.Order{
		Reference:   uid.NewOrderRef(),
		AccountID:   accountID,
		Status:      model.OrderStatusPending,
		PlacedAt:    time.Now().UTC(),
		TotalAmount: total,
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (reference, account_id, status, placed_at, total_amount)
		 VALUES (?, ?, ?, ?, ?)`,
		order.Reference, order.AccountID, string(order.Status), order.PlacedAt, order.TotalAmount.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.ID, err = res.LastInsertId()
	if err != nil {
		return nil, nil, err
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, catalog_item_id, quantity, unit_price_at_order)
			 VALUES (?, ?, ?, ?)`,
			order.ID, line.CatalogItemID, line.Quantity, line.UnitPrice.Round(2).String())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create order line: %w", err)
		}
		order.Lines = append(order.Lines, model.OrderLine{
			OrderID:          order.ID,
			CatalogItemID:    line.CatalogItemID,
			Quantity:         line.Quantity,
			UnitPriceAtOrder: line.UnitPrice.Round(2),
		})
	}

	levels := make([]model.StockLevel, 0, len(lines))
	for _, line := range lines {
		var level model.StockLevel
		err := tx.QueryRowContext(ctx,
			`SELECT id, name, quantity_available FROM catalog_items WHERE id = ?`,
			line.CatalogItemID).Scan(&level.CatalogItemID, &level.Name, &level.Remaining)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read stock level: %w", err)
		}
		levels = append(levels, level)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, levels, nil
}

// GetOrder returns an order with its lines.
func (s *SQLiteStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var order model.Order
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, reference, account_id, status, placed_at, total_amount FROM orders WHERE id = ?`,
		id).Scan(&order.ID, &order.Reference, &order.AccountID, &status, &order.PlacedAt, &order.TotalAmount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	order.Status = model.OrderStatus(status)

	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id, catalog_item_id, quantity, unit_price_at_order FROM order_lines WHERE order_id = ?`,
		id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line model.OrderLine
		if err := rows.Scan(&line.OrderID, &line.CatalogItemID, &line.Quantity, &line.UnitPriceAtOrder); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}
	return &order, rows.Err()
}

// ListOrders returns orders newest-first with pagination.
func (s *SQLiteStore) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference, account_id, status, placed_at, total_amount
		 FROM orders ORDER BY placed_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var order model.Order
		var status string
		if err := rows.Scan(&order.ID, &order.Reference, &order.AccountID, &status, &order.PlacedAt, &order.TotalAmount); err != nil {
			return nil, 0, err
		}
		order.Status = model.OrderStatus(status)
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

// UpdateOrderStatus sets the delivery status of an order.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %d not found", id)
	}
	return nil
}

// AccountIDsWithOrdersSince returns accounts that placed at least one
// order at or after the given time. Used by the reminder sweep.
func (s *SQLiteStore) AccountIDsWithOrdersSince(ctx context.Context, since time.Time) (map[int64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT account_id FROM orders WHERE placed_at >= ?`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list ordering accounts: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
