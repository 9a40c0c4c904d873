package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"orderhub-bot/internal/catalog"
	"orderhub-bot/internal/model"
	"orderhub-bot/internal/notify"
	"orderhub-bot/internal/repository"
)

// CommitReason classifies why a commit failed.
type CommitReason string

const (
	// CommitStockChanged means stock moved between confirmation display
	// and commit; the whole order was aborted, nothing partial exists.
	CommitStockChanged CommitReason = "stock changed"

	// CommitPersistenceFailure covers everything else; the transaction
	// rolled back and the caller may retry.
	CommitPersistenceFailure CommitReason = "persistence failure"
)

// CommitError reports a failed fulfillment transaction.
type CommitError struct {
	Reason    CommitReason
	Offending []model.StockLevel // populated for CommitStockChanged
	Err       error
}

func (e *CommitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("commit failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("commit failed (%s)", e.Reason)
}

func (e *CommitError) Unwrap() error { return e.Err }

// FulfillmentService wraps the fulfillment transaction with its
// post-commit effects: catalog index rebuild, order-confirmation
// bookkeeping, and low-stock notifications.
type FulfillmentService struct {
	orders   repository.OrderRepository
	catalog  repository.CatalogRepository
	index    *catalog.Index
	notifier notify.Sink

	// lowStockThreshold triggers a notification when an item's
	// remaining quantity drops strictly below it.
	lowStockThreshold int64

	// adminRecipient receives low-stock notifications. Empty disables
	// them.
	adminRecipient string
}

// NewFulfillmentService creates the fulfillment service.
func NewFulfillmentService(
	orders repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	index *catalog.Index,
	notifier notify.Sink,
	lowStockThreshold int64,
	adminRecipient string,
) *FulfillmentService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 10
	}
	return &FulfillmentService{
		orders:            orders,
		catalog:           catalogRepo,
		index:             index,
		notifier:          notifier,
		lowStockThreshold: lowStockThreshold,
		adminRecipient:    adminRecipient,
	}
}

// Commit atomically persists the order and decrements stock, then
// rebuilds the catalog index and emits low-stock notifications for
// items that crossed the threshold. The commit itself is all-or-nothing;
// post-commit effects are best-effort and never fail the order.
func (s *FulfillmentService) Commit(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error) {
	order, levels, err := s.orders.CommitOrder(ctx, account.ID, lines)
	if err != nil {
		var conflict *repository.StockConflictError
		if errors.As(err, &conflict) {
			return nil, &CommitError{Reason: CommitStockChanged, Offending: conflict.Lines, Err: err}
		}
		return nil, &CommitError{Reason: CommitPersistenceFailure, Err: err}
	}

	log.Printf("[Fulfillment] Order %s placed by account %d, total %s",
		order.Reference, account.ID, order.TotalAmount.StringFixed(2))

	if err := s.RebuildIndex(ctx); err != nil {
		log.Printf("[Fulfillment] Index rebuild failed: %v", err)
	}
	s.notifyLowStock(ctx, levels)

	return order, nil
}

// RebuildIndex refreshes the fuzzy index from the current catalog.
// Also invoked by the admin API after external stock edits.
func (s *FulfillmentService) RebuildIndex(ctx context.Context) error {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalog for index rebuild: %w", err)
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	s.index.Rebuild(names)
	return nil
}

// notifyLowStock emits one notification per item whose remaining stock
// fell below the threshold. Distinct from the order confirmation the
// conversation sends to the caller.
func (s *FulfillmentService) notifyLowStock(ctx context.Context, levels []model.StockLevel) {
	if s.adminRecipient == "" {
		return
	}
	for _, level := range levels {
		if level.Remaining >= s.lowStockThreshold {
			continue
		}
		msg := notify.Message{
			Text: fmt.Sprintf("Low stock: %s has %d left.", level.Name, level.Remaining),
		}
		if err := s.notifier.Notify(ctx, s.adminRecipient, msg); err != nil {
			log.Printf("[Fulfillment] Low-stock notification for %s failed: %v", level.Name, err)
		}
	}
}
