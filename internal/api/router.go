package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/shipment"
)

// NewRouter creates the API router with all endpoints registered. The
// importer and creator must use ClaimsIdentity so runs are attributed to
// the signed-in user.
func NewRouter(db *sqlx.DB, jwtSecret string, importer *shipment.Importer, creator *shipment.Creator, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Logger: logger}
	usersHandler := &UsersHandler{DB: db, Logger: logger}
	branchesHandler := &BranchesHandler{DB: db, Logger: logger}
	inventoryHandler := &InventoryHandler{DB: db, Logger: logger}
	movementsHandler := &MovementsHandler{DB: db, Logger: logger}
	packagesHandler := &PackagesHandler{DB: db, Importer: importer, Creator: creator, Logger: logger}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Branches: read (all roles), write (manager+).
	mux.Handle("GET /api/branches", authMW(http.HandlerFunc(branchesHandler.List)))
	mux.Handle("POST /api/branches", authMW(requireManager(http.HandlerFunc(branchesHandler.Create))))
	mux.Handle("PUT /api/branches/{id}/default", authMW(requireManager(http.HandlerFunc(branchesHandler.SetDefault))))
	mux.Handle("DELETE /api/branches/{id}", authMW(requireManager(http.HandlerFunc(branchesHandler.Delete))))

	// Inventory: read (all), write (manager+).
	mux.Handle("GET /api/inventory", authMW(http.HandlerFunc(inventoryHandler.List)))
	mux.Handle("POST /api/inventory", authMW(requireManager(http.HandlerFunc(inventoryHandler.Create))))
	mux.Handle("GET /api/inventory/{id}", authMW(http.HandlerFunc(inventoryHandler.Get)))
	mux.Handle("POST /api/inventory/{id}/adjust", authMW(requireManager(http.HandlerFunc(inventoryHandler.Adjust))))
	mux.Handle("PUT /api/inventory/{id}/active", authMW(requireManager(http.HandlerFunc(inventoryHandler.SetActive))))

	// Ledger.
	mux.Handle("GET /api/movements", authMW(http.HandlerFunc(movementsHandler.List)))

	// Packages (all roles).
	mux.Handle("POST /api/packages", authMW(http.HandlerFunc(packagesHandler.Create)))
	mux.Handle("POST /api/packages/import", authMW(http.HandlerFunc(packagesHandler.Import)))
	mux.Handle("GET /api/packages", authMW(http.HandlerFunc(packagesHandler.List)))
	mux.Handle("GET /api/packages/{code}", authMW(http.HandlerFunc(packagesHandler.Get)))

	return LoggingMiddleware(logger)(mux)
}
