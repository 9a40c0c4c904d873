package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"orderhub-bot/internal/model"
	"orderhub-bot/internal/repository"
	"orderhub-bot/internal/service"
	"orderhub-bot/pkg/apierror"
	"orderhub-bot/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// StatsProvider exposes store statistics for the admin dashboard.
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// AdminHandler exposes the administrator API. It operates directly on
// the stores and never calls into the conversation state machine; its
// one obligation to the chat core is triggering an index rebuild after
// any stock edit.
type AdminHandler struct {
	catalog     repository.CatalogRepository
	orders      repository.OrderRepository
	accounts    repository.AccountRepository
	feedback    repository.FeedbackRepository
	fulfillment *service.FulfillmentService
	startTime   time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	catalogRepo repository.CatalogRepository,
	orders repository.OrderRepository,
	accounts repository.AccountRepository,
	feedback repository.FeedbackRepository,
	fulfillment *service.FulfillmentService,
) *AdminHandler {
	return &AdminHandler{
		catalog:     catalogRepo,
		orders:      orders,
		accounts:    accounts,
		feedback:    feedback,
		fulfillment: fulfillment,
		startTime:   time.Now(),
	}
}

// ListCatalog handles GET /api/v1/admin/catalog
func (h *AdminHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, items)
}

// createItemRequest is the POST /admin/catalog payload.
type createItemRequest struct {
	Name              string          `json:"name"`
	QuantityAvailable int64           `json:"quantity_available"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

// CreateItem handles POST /api/v1/admin/catalog
func (h *AdminHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Name == "" {
		response.Error(w, apierror.BadRequest("name is required"))
		return
	}
	if req.QuantityAvailable < 0 || req.UnitPrice.IsNegative() {
		response.Error(w, apierror.BadRequest("quantity and price must be non-negative"))
		return
	}

	item := &model.CatalogItem{
		Name:              req.Name,
		QuantityAvailable: req.QuantityAvailable,
		UnitPrice:         req.UnitPrice.Round(2),
	}
	if err := h.catalog.CreateItem(r.Context(), item); err != nil {
		response.Error(w, err)
		return
	}

	h.rebuildIndex(r)
	response.Created(w, item)
}

// adjustStockRequest is the PATCH stock payload.
type adjustStockRequest struct {
	Delta int64 `json:"delta"`
}

// AdjustStock handles PATCH /api/v1/admin/catalog/{id}/stock
func (h *AdminHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid item id"))
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	remaining, err := h.catalog.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		if errors.Is(err, repository.ErrStockConflict) {
			response.Error(w, apierror.Conflict("adjustment would drive stock below zero"))
			return
		}
		response.Error(w, err)
		return
	}

	h.rebuildIndex(r)
	response.OK(w, map[string]interface{}{
		"catalog_item_id": id,
		"remaining":       remaining,
	})
}

// ListOrders handles GET /api/v1/admin/orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	orders, total, err := h.orders.ListOrders(r.Context(), limit, (page-1)*limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, orders, page, limit, total)
}

// GetOrder handles GET /api/v1/admin/orders/{id}
func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid order id"))
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	if order == nil {
		response.Error(w, apierror.NotFound("order not found"))
		return
	}
	response.OK(w, order)
}

// updateStatusRequest is the PATCH status payload.
type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus handles PATCH /api/v1/admin/orders/{id}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid order id"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if !model.ValidOrderStatus(req.Status) {
		response.Error(w, apierror.BadRequest("unknown status"))
		return
	}

	if err := h.orders.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"order_id": id,
		"status":   req.Status,
	})
}

// createAccountRequest is the POST /admin/accounts payload.
type createAccountRequest struct {
	DisplayName      string `json:"display_name"`
	ExternalIdentity string `json:"external_identity"`
	Address          string `json:"address"`
}

// CreateAccount handles POST /api/v1/admin/accounts
func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.DisplayName == "" || req.ExternalIdentity == "" {
		response.Error(w, apierror.BadRequest("display_name and external_identity are required"))
		return
	}

	account := &model.Account{
		DisplayName:      req.DisplayName,
		ExternalIdentity: req.ExternalIdentity,
		Address:          req.Address,
	}
	if err := h.accounts.CreateAccount(r.Context(), account); err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, account)
}

// ListFeedback handles GET /api/v1/admin/feedback
func (h *AdminHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	entries, total, err := h.feedback.ListFeedback(r.Context(), limit, (page-1)*limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, entries, page, limit, total)
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":   float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":     float64(memStats.Sys) / 1024 / 1024,
		"num_gc":     memStats.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}

	if store, ok := h.catalog.(StatsProvider); ok {
		if storeStats, err := store.Stats(r.Context()); err == nil {
			stats["store"] = storeStats
		} else {
			stats["store"] = map[string]interface{}{"status": "error", "error": err.Error()}
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// rebuildIndex refreshes the fuzzy catalog index after a catalog edit.
func (h *AdminHandler) rebuildIndex(r *http.Request) {
	if h.fulfillment == nil {
		return
	}
	if err := h.fulfillment.RebuildIndex(r.Context()); err != nil {
		// Staleness is tolerated; the next commit rebuilds again.
		return
	}
}

// pagination extracts page/limit query params with sane defaults.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return page, limit
}
