package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/store"
)

// BranchesHandler manages destination branches.
type BranchesHandler struct {
	DB     *sqlx.DB
	Logger *zap.Logger
}

type createBranchRequest struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// List handles GET /api/branches.
func (h *BranchesHandler) List(w http.ResponseWriter, r *http.Request) {
	branches, err := store.ListBranches(r.Context(), h.DB)
	if err != nil {
		h.Logger.Error("listing branches", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to list branches")
		return
	}
	if branches == nil {
		branches = []model.Branch{}
	}
	jsonResponse(w, http.StatusOK, branches)
}

// Create handles POST /api/branches.
func (h *BranchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBranchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	branch, err := store.CreateBranch(r.Context(), h.DB, req.Name, req.IsDefault)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.Logger.Error("creating branch", zap.Error(err))
		}
		jsonError(w, status, err.Error())
		return
	}

	h.Logger.Info("branch created",
		zap.String("user", GetClaims(r.Context()).Username),
		zap.String("branch", branch.Name),
		zap.Bool("default", branch.IsDefault),
	)
	jsonResponse(w, http.StatusCreated, branch)
}

// SetDefault handles PUT /api/branches/{id}/default.
func (h *BranchesHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid branch id")
		return
	}

	if err := store.SetDefaultBranch(r.Context(), h.DB, id); err != nil {
		status := errorStatus(err)
		if status == http.StatusNotFound {
			jsonError(w, status, "branch not found")
			return
		}
		h.Logger.Error("setting default branch", zap.Error(err))
		jsonError(w, status, "failed to set default branch")
		return
	}

	branch, err := store.GetBranch(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get branch")
		return
	}
	h.Logger.Info("default branch changed",
		zap.String("user", GetClaims(r.Context()).Username),
		zap.String("branch", branch.Name),
	)
	jsonResponse(w, http.StatusOK, branch)
}

// Delete handles DELETE /api/branches/{id}.
func (h *BranchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid branch id")
		return
	}

	branch, err := store.GetBranch(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get branch")
		return
	}
	if branch == nil || branch.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "branch not found")
		return
	}
	if err := store.DeleteBranch(r.Context(), h.DB, id); err != nil {
		h.Logger.Error("deleting branch", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to delete branch")
		return
	}

	h.Logger.Info("branch deleted", zap.String("user", GetClaims(r.Context()).Username), zap.String("branch", branch.Name))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "branch deleted"})
}
