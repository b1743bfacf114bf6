package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/store"
)

// MovementsHandler exposes the stock ledger.
type MovementsHandler struct {
	DB     *sqlx.DB
	Logger *zap.Logger
}

// List handles GET /api/movements, optionally filtered by item_id and
// package_id.
func (h *MovementsHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, err := queryInt64(r, "item_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item_id")
		return
	}
	packageID, err := queryInt64(r, "package_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid package_id")
		return
	}

	movements, err := store.ListMovements(r.Context(), h.DB, itemID, packageID)
	if err != nil {
		h.Logger.Error("listing movements", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to list movements")
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
