package chat

import (
	"context"
	"strings"
	"testing"

	"orderhub-bot/internal/catalog"
	"orderhub-bot/internal/model"
	"orderhub-bot/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-memory CatalogRepository for resolver and
// conversation tests.
type fakeCatalog struct {
	items  map[int64]*model.CatalogItem
	nextID int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{items: make(map[int64]*model.CatalogItem), nextID: 1}
}

func (f *fakeCatalog) add(name string, stock int64, price string) *model.CatalogItem {
	item := &model.CatalogItem{
		ID:                f.nextID,
		Name:              name,
		QuantityAvailable: stock,
		UnitPrice:         decimal.RequireFromString(price),
	}
	f.items[item.ID] = item
	f.nextID++
	return item
}

func (f *fakeCatalog) ListItems(ctx context.Context) ([]model.CatalogItem, error) {
	items := []model.CatalogItem{}
	for _, item := range f.items {
		items = append(items, *item)
	}
	return items, nil
}

func (f *fakeCatalog) GetItemByName(ctx context.Context, name string) (*model.CatalogItem, error) {
	for _, item := range f.items {
		if strings.EqualFold(item.Name, name) {
			copied := *item
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetItem(ctx context.Context, id int64) (*model.CatalogItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeCatalog) CreateItem(ctx context.Context, item *model.CatalogItem) error {
	item.ID = f.nextID
	f.nextID++
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeCatalog) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	item, ok := f.items[id]
	if !ok || item.QuantityAvailable+delta < 0 {
		return 0, repository.ErrStockConflict
	}
	item.QuantityAvailable += delta
	return item.QuantityAvailable, nil
}

var _ repository.CatalogRepository = (*fakeCatalog)(nil)

func newTestResolver(t *testing.T, repo *fakeCatalog) *Resolver {
	t.Helper()
	idx := catalog.NewIndex(catalog.DefaultThreshold)
	items, err := repo.ListItems(context.Background())
	require.NoError(t, err)
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	idx.Rebuild(names)
	return NewResolver(repo, idx)
}

func TestResolveExactCaseInsensitive(t *testing.T) {
	repo := newFakeCatalog()
	repo.add("Paracetamol", 20, "12.50")
	r := newTestResolver(t, repo)

	resolved, errs := r.Resolve(context.Background(), []ParsedLine{{Name: "paracetamol", Quantity: 5}})

	require.Empty(t, errs)
	require.Len(t, resolved, 1)
	assert.Equal(t, "Paracetamol", resolved[0].Name)
	assert.Equal(t, int64(5), resolved[0].Quantity)
	assert.True(t, resolved[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
}

func TestResolveFuzzyTypo(t *testing.T) {
	repo := newFakeCatalog()
	repo.add("Paracetamol", 20, "12.50")
	r := newTestResolver(t, repo)

	resolved, errs := r.Resolve(context.Background(), []ParsedLine{{Name: "Paracetmol", Quantity: 5}})

	require.Empty(t, errs)
	require.Len(t, resolved, 1)
	assert.Equal(t, "Paracetamol", resolved[0].Name)
}

func TestResolveNotFound(t *testing.T) {
	repo := newFakeCatalog()
	repo.add("Paracetamol", 20, "12.50")
	r := newTestResolver(t, repo)

	resolved, errs := r.Resolve(context.Background(), []ParsedLine{{Name: "Zzzzzz", Quantity: 5}})

	assert.Empty(t, resolved)
	require.Len(t, errs, 1)
	assert.Equal(t, ResolveNotFound, errs[0].Reason)
	assert.Equal(t, "Zzzzzz", errs[0].Name)
}

func TestResolveInsufficientStock(t *testing.T) {
	repo := newFakeCatalog()
	repo.add("Paracetamol", 3, "12.50")
	r := newTestResolver(t, repo)

	resolved, errs := r.Resolve(context.Background(), []ParsedLine{{Name: "Paracetamol", Quantity: 5}})

	assert.Empty(t, resolved)
	require.Len(t, errs, 1)
	assert.Equal(t, ResolveInsufficientStock, errs[0].Reason)
	assert.Equal(t, int64(3), errs[0].Available)
}

func TestResolveZeroQuantity(t *testing.T) {
	repo := newFakeCatalog()
	repo.add("Paracetamol", 20, "12.50")
	r := newTestResolver(t, repo)

	resolved, errs := r.Resolve(context.Background(), []ParsedLine{{Name: "Paracetamol", Quantity: 0}})

	assert.Empty(t, resolved)
	require.Len(t, errs, 1)
	assert.Equal(t, ResolveZeroQuantity, errs[0].Reason)
}

func TestResolveAggregatesAllErrors(t *testing.T) {
	repo := newFakeCatalog()
	repo.add("Paracetamol", 3, "12.50")
	repo.add("Ibuprofen", 50, "8.00")
	r := newTestResolver(t, repo)

	resolved, errs := r.Resolve(context.Background(), []ParsedLine{
		{Name: "Zzzzzz", Quantity: 1},
		{Name: "Paracetamol", Quantity: 10},
		{Name: "Ibuprofen", Quantity: 2},
	})

	// No short-circuit: the good line resolves, both bad lines report.
	require.Len(t, resolved, 1)
	assert.Equal(t, "Ibuprofen", resolved[0].Name)
	require.Len(t, errs, 2)
	assert.Equal(t, ResolveNotFound, errs[0].Reason)
	assert.Equal(t, ResolveInsufficientStock, errs[1].Reason)
}
