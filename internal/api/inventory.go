package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/store"
)

// InventoryHandler handles stock items and manual corrections.
type InventoryHandler struct {
	DB     *sqlx.DB
	Logger *zap.Logger
}

type createItemRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	StockOnHand  int    `json:"stock_on_hand"`
	MinThreshold int    `json:"min_threshold"`
}

type adjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

// List handles GET /api/inventory. ?low_stock=1 limits the list to items at
// or below their threshold.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	lowStock := r.URL.Query().Get("low_stock")
	items, err := store.ListInventoryItems(r.Context(), h.DB, lowStock == "1" || lowStock == "true")
	if err != nil {
		h.Logger.Error("listing inventory", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to list inventory")
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SKU == "" || req.Name == "" {
		jsonError(w, http.StatusBadRequest, "sku and name required")
		return
	}
	if req.StockOnHand < 0 || req.MinThreshold < 0 {
		jsonError(w, http.StatusBadRequest, "stock and threshold must not be negative")
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.CreateInventoryItem(r.Context(), h.DB, model.InventoryItem{
		SKU:          req.SKU,
		Name:         req.Name,
		Unit:         req.Unit,
		StockOnHand:  req.StockOnHand,
		MinThreshold: req.MinThreshold,
		Active:       true,
	}, &claims.UserID)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.Logger.Error("creating inventory item", zap.Error(err))
			jsonError(w, status, "failed to create item")
			return
		}
		jsonError(w, status, err.Error())
		return
	}

	h.Logger.Info("inventory item created",
		zap.String("user", claims.Username),
		zap.String("sku", item.SKU),
		zap.Int("stock", item.StockOnHand),
	)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetInventoryItem(r.Context(), h.DB, id)
	if err != nil {
		h.Logger.Error("getting inventory item", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Adjust handles POST /api/inventory/{id}/adjust. The correction is
// recorded as a movement.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.AdjustStock(r.Context(), h.DB, id, req.Delta, req.Reason, &claims.UserID)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.Logger.Error("adjusting stock", zap.Error(err))
			jsonError(w, status, "failed to adjust stock")
			return
		}
		jsonError(w, status, err.Error())
		return
	}

	h.Logger.Info("stock adjusted",
		zap.String("user", claims.Username),
		zap.String("sku", item.SKU),
		zap.Int("delta", req.Delta),
		zap.Int("stock", item.StockOnHand),
	)
	if item.LowStock() {
		h.Logger.Warn("item at low stock", zap.String("sku", item.SKU), zap.Int("stock", item.StockOnHand))
	}
	jsonResponse(w, http.StatusOK, item)
}

// SetActive handles PUT /api/inventory/{id}/active. Inactive items are not
// offered to package runs.
func (h *InventoryHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req activeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetInventoryItemActive(r.Context(), h.DB, id, req.Active); err != nil {
		h.Logger.Error("updating inventory item", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	item, err := store.GetInventoryItem(r.Context(), h.DB, id)
	if err != nil || item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}
