package chat

import (
	"context"
	"fmt"

	"orderhub-bot/internal/catalog"
	"orderhub-bot/internal/model"
	"orderhub-bot/internal/repository"
)

// ResolveReason classifies why a parsed line failed to resolve.
type ResolveReason string

const (
	ResolveNotFound          ResolveReason = "not found"
	ResolveInsufficientStock ResolveReason = "insufficient stock"
	ResolveZeroQuantity      ResolveReason = "quantity must be at least 1"
)

// ResolutionError reports a single line that could not be bound to a
// catalog item with enough stock. Available is only meaningful for
// ResolveInsufficientStock.
type ResolutionError struct {
	Name      string
	Reason    ResolveReason
	Available int64
}

func (e ResolutionError) Error() string {
	if e.Reason == ResolveInsufficientStock {
		return fmt.Sprintf("%s: %s (available: %d)", e.Name, e.Reason, e.Available)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// Resolver maps requested item names to catalog entries via
// exact-then-fuzzy lookup and validates availability.
type Resolver struct {
	catalog repository.CatalogRepository
	index   *catalog.Index
}

// NewResolver creates a resolver over the catalog and its fuzzy index.
func NewResolver(catalogRepo repository.CatalogRepository, index *catalog.Index) *Resolver {
	return &Resolver{catalog: catalogRepo, index: index}
}

// Resolve binds each parsed line to a catalog item. Lines are resolved
// independently and every error is collected, matching the parser's
// all-at-once philosophy, so the caller corrects everything in one
// round-trip.
func (r *Resolver) Resolve(ctx context.Context, lines []ParsedLine) ([]model.DraftLine, []ResolutionError) {
	var resolved []model.DraftLine
	var errs []ResolutionError

	for _, line := range lines {
		item, err := r.resolveName(ctx, line.Name)
		if err != nil || item == nil {
			errs = append(errs, ResolutionError{Name: line.Name, Reason: ResolveNotFound})
			continue
		}
		if line.Quantity < 1 {
			errs = append(errs, ResolutionError{Name: item.Name, Reason: ResolveZeroQuantity})
			continue
		}
		if item.QuantityAvailable < line.Quantity {
			errs = append(errs, ResolutionError{
				Name:      item.Name,
				Reason:    ResolveInsufficientStock,
				Available: item.QuantityAvailable,
			})
			continue
		}
		resolved = append(resolved, model.DraftLine{
			CatalogItemID: item.ID,
			Name:          item.Name,
			Quantity:      line.Quantity,
			UnitPrice:     item.UnitPrice,
		})
	}

	return resolved, errs
}

// resolveName looks up a name exactly, then falls back to the fuzzy
// index and re-resolves the top candidate exactly. A stale index entry
// can only miss, never mis-match: the final word is always the exact
// catalog lookup.
func (r *Resolver) resolveName(ctx context.Context, name string) (*model.CatalogItem, error) {
	item, err := r.catalog.GetItemByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return item, nil
	}

	matches := r.index.Search(name)
	if len(matches) == 0 {
		return nil, nil
	}
	return r.catalog.GetItemByName(ctx, matches[0].Name)
}
