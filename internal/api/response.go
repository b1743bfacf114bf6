package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/lock"
	"github.com/erazemk/posiljke/internal/sheet"
	"github.com/erazemk/posiljke/internal/shipment"
	"github.com/erazemk/posiljke/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// queryInt64 parses an optional integer query parameter. Missing means 0.
func queryInt64(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// errorStatus maps pipeline and store errors onto HTTP statuses.
func errorStatus(err error) int {
	var (
		cfgErr   *shipment.ConfigurationError
		fmtErr   *sheet.FormatError
		stockErr *shipment.InsufficientStockError
	)
	switch {
	case errors.Is(err, shipment.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &stockErr),
		errors.Is(err, lock.ErrLocked),
		errors.Is(err, store.ErrDuplicateSKU),
		errors.Is(err, store.ErrDuplicateBranch),
		errors.Is(err, store.ErrDuplicateUser),
		errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict
	case errors.As(err, &cfgErr),
		errors.As(err, &fmtErr),
		errors.Is(err, shipment.ErrUnknownProduct),
		errors.Is(err, shipment.ErrInvalidQuantity),
		errors.Is(err, shipment.ErrNoItems),
		errors.Is(err, shipment.ErrNoValidProducts):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
