package shipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/store"
)

// Store is the data access the pipeline needs.
type Store interface {
	// LoadInventory returns every active inventory item.
	LoadInventory(ctx context.Context) ([]model.InventoryItem, error)
	// InsertPackages stores all packages or none. Returned rows carry the
	// submitted temp_id; their order is not significant.
	InsertPackages(ctx context.Context, packages []model.Package) ([]store.InsertedPackage, error)
	// DecrementStock removes quantity from an item, failing with
	// store.ErrInsufficientStock when less remains.
	DecrementStock(ctx context.Context, itemID int64, quantity int) error
	InsertMovements(ctx context.Context, movements []model.Movement) error
	// DestinationBranch returns the named branch, or the default branch when
	// name is empty. It returns nil when there is no such branch.
	DestinationBranch(ctx context.Context, name string) (*model.Branch, error)
}

// SQLStore implements Store on the application database.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) LoadInventory(ctx context.Context) ([]model.InventoryItem, error) {
	return store.ListActiveInventory(ctx, s.db)
}

func (s *SQLStore) InsertPackages(ctx context.Context, packages []model.Package) ([]store.InsertedPackage, error) {
	return store.InsertPackages(ctx, s.db, packages)
}

func (s *SQLStore) DecrementStock(ctx context.Context, itemID int64, quantity int) error {
	return store.DecrementStock(ctx, s.db, itemID, quantity)
}

func (s *SQLStore) InsertMovements(ctx context.Context, movements []model.Movement) error {
	return store.InsertMovements(ctx, s.db, movements)
}

func (s *SQLStore) DestinationBranch(ctx context.Context, name string) (*model.Branch, error) {
	if name == "" {
		return store.GetDefaultBranch(ctx, s.db)
	}
	return store.GetBranchByName(ctx, s.db, name)
}

// Identity supplies the authenticated user for a request.
type Identity interface {
	CurrentUserID(ctx context.Context) (int64, error)
}

// IdentityFunc adapts a function to Identity.
type IdentityFunc func(ctx context.Context) (int64, error)

func (f IdentityFunc) CurrentUserID(ctx context.Context) (int64, error) { return f(ctx) }

// StaticIdentity always returns the same user. Used by the CLI, which
// authenticates by looking the user up before the run starts.
type StaticIdentity int64

func (s StaticIdentity) CurrentUserID(context.Context) (int64, error) {
	if s <= 0 {
		return 0, ErrUnauthenticated
	}
	return int64(s), nil
}

func currentUser(ctx context.Context, id Identity) (int64, error) {
	if id == nil {
		return 0, ErrUnauthenticated
	}
	userID, err := id.CurrentUserID(ctx)
	if errors.Is(err, ErrUnauthenticated) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if userID <= 0 {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}
