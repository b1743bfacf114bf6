package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/shipment"
	"github.com/erazemk/posiljke/internal/store"
)

// MaxUploadSize caps spreadsheet uploads.
const MaxUploadSize = 10 << 20

const defaultListLimit = 100

// PackagesHandler creates, imports and looks up packages.
type PackagesHandler struct {
	DB       *sqlx.DB
	Importer *shipment.Importer
	Creator  *shipment.Creator
	Logger   *zap.Logger
}

type createPackageResponse struct {
	Package  model.Package `json:"package"`
	Warnings []string      `json:"warnings"`
}

type shortageResponse struct {
	Error     string              `json:"error"`
	Shortages []shipment.Shortage `json:"shortages"`
}

// Create handles POST /api/packages.
func (h *PackagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shipment.SingleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pkg, rep, err := h.Creator.CreateSingle(r.Context(), req)
	if err != nil {
		var stockErr *shipment.InsufficientStockError
		if errors.As(err, &stockErr) {
			jsonResponse(w, http.StatusConflict, shortageResponse{Error: err.Error(), Shortages: stockErr.Shortages})
			return
		}
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.Logger.Error("creating package", zap.Error(err))
			jsonError(w, status, "failed to create package")
			return
		}
		jsonError(w, status, err.Error())
		return
	}

	warnings := rep.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	jsonResponse(w, http.StatusCreated, createPackageResponse{Package: *pkg, Warnings: warnings})
}

// Import handles POST /api/packages/import. The spreadsheet is either the
// raw request body or a multipart "file" field. ?destination= picks the
// branch and ?encoding= the input charset.
func (h *PackagesHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	body, name, err := uploadedSheet(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	q := r.URL.Query()
	opts := shipment.Options{
		Destination: q.Get("destination"),
		Encoding:    q.Get("encoding"),
		Progress: func(processed, total int) {
			h.Logger.Debug("import progress", zap.String("file", name), zap.Int("processed", processed), zap.Int("total", total))
		},
	}

	rep, err := h.Importer.ImportCSV(r.Context(), body, opts)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.Logger.Error("importing packages", zap.String("file", name), zap.Error(err))
			jsonError(w, status, "import failed")
			return
		}
		jsonError(w, status, err.Error())
		return
	}

	h.Logger.Info("import finished",
		zap.String("user", GetClaims(r.Context()).Username),
		zap.String("file", name),
		zap.Int("created", rep.SuccessCount),
		zap.Int("errors", rep.ErrorCount),
		zap.Int("warnings", rep.WarningCount),
	)
	jsonResponse(w, http.StatusOK, rep)
}

func uploadedSheet(r *http.Request) (io.ReadCloser, string, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, "body", nil
	}
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return nil, "", errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("file field required")
	}
	return file, header.Filename, nil
}

// List handles GET /api/packages, newest first. ?limit= defaults to 100,
// 0 returns everything.
func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	packages, err := store.ListPackages(r.Context(), h.DB, limit)
	if err != nil {
		h.Logger.Error("listing packages", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to list packages")
		return
	}
	if packages == nil {
		packages = []model.Package{}
	}
	jsonResponse(w, http.StatusOK, packages)
}

// Get handles GET /api/packages/{code}.
func (h *PackagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	pkg, err := store.GetPackageByCode(r.Context(), h.DB, r.PathValue("code"))
	if err != nil {
		h.Logger.Error("getting package", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to get package")
		return
	}
	if pkg == nil {
		jsonError(w, http.StatusNotFound, "package not found")
		return
	}
	jsonResponse(w, http.StatusOK, pkg)
}
