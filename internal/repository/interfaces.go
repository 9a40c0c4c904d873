package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orderhub-bot/internal/model"
)

// CatalogRepository defines catalog data access methods.
type CatalogRepository interface {
	// ListItems returns every catalog item.
	ListItems(ctx context.Context) ([]model.CatalogItem, error)

	// GetItemByName finds an item by case-insensitive exact name.
	// Returns (nil, nil) when no item matches.
	GetItemByName(ctx context.Context, name string) (*model.CatalogItem, error)

	// GetItem finds an item by id. Returns (nil, nil) when absent.
	GetItem(ctx context.Context, id int64) (*model.CatalogItem, error)

	// CreateItem inserts a new catalog item and fills in its id.
	CreateItem(ctx context.Context, item *model.CatalogItem) error

	// AdjustStock applies a delta to an item's available quantity and
	// returns the new level. Fails with ErrStockConflict if the result
	// would go below zero.
	AdjustStock(ctx context.Context, id int64, delta int64) (int64, error)
}

// OrderRepository defines order persistence methods.
type OrderRepository interface {
	// CommitOrder atomically re-validates stock, creates the order and
	// its lines, and decrements stock. Either every effect lands or none
	// does. A *StockConflictError reports lines whose stock changed
	// since resolution; any other error is a persistence failure.
	// On success it also returns the resulting stock levels of the
	// affected items.
	CommitOrder(ctx context.Context, accountID int64, lines []model.DraftLine) (*model.Order, []model.StockLevel, error)

	// GetOrder returns an order with its lines. (nil, nil) when absent.
	GetOrder(ctx context.Context, id int64) (*model.Order, error)

	// ListOrders returns orders newest-first with pagination.
	ListOrders(ctx context.Context, limit, offset int) ([]model.Order, int64, error)

	// UpdateOrderStatus sets the delivery status of an order.
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error

	// AccountIDsWithOrdersSince returns the ids of accounts that placed
	// at least one order at or after the given time.
	AccountIDsWithOrdersSince(ctx context.Context, since time.Time) (map[int64]struct{}, error)
}

// AccountRepository defines access to the reseller roster.
type AccountRepository interface {
	// GetByExternalIdentity finds an account by its chat transport
	// identity. Returns (nil, nil) when unknown.
	GetByExternalIdentity(ctx context.Context, externalID string) (*model.Account, error)

	// ListAccounts returns the full roster.
	ListAccounts(ctx context.Context) ([]model.Account, error)

	// CreateAccount provisions a new account (admin API only).
	CreateAccount(ctx context.Context, account *model.Account) error
}

// FeedbackRepository defines feedback log access.
type FeedbackRepository interface {
	InsertFeedback(ctx context.Context, fb *model.Feedback) error
	ListFeedback(ctx context.Context, limit, offset int) ([]model.Feedback, int64, error)
}

// ErrStockConflict indicates a stock mutation would drive availability
// below zero.
var ErrStockConflict = fmt.Errorf("stock conflict")

// StockConflictError aborts a commit whose lines no longer fit current
// stock. Lines carries the offending items with their availability at
// the time of the failed commit.
type StockConflictError struct {
	Lines []model.StockLevel
}

func (e *StockConflictError) Error() string {
	names := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		names[i] = fmt.Sprintf("%s (available: %d)", l.Name, l.Remaining)
	}
	return "insufficient stock for: " + strings.Join(names, ", ")
}
