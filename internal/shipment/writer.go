package shipment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/store"
)

// codeRetries is how many times a batch insert is attempted while short
// codes collide with existing packages.
const codeRetries = 3

// DefaultStoreTimeout bounds each store round trip.
const DefaultStoreTimeout = 10 * time.Second

// Writer persists batches of package plans. For each batch it inserts the
// packages, deducts stock once per distinct item and records the movements
// for the stock it actually deducted.
type Writer struct {
	store   Store
	planner *Planner
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewWriter(st Store, planner *Planner, timeout time.Duration, logger *zap.Logger) *Writer {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: st, planner: planner, timeout: timeout, logger: logger, now: time.Now}
}

type storedPlan struct {
	plan *model.PackagePlan
	pkg  model.Package
}

type pendingDelta struct {
	stored *storedPlan
	name   string
	qty    int
}

// WriteBatch stores plans and records the outcome in rep. If the package
// insert fails every plan is counted as an error, nothing else is written and
// a *BatchPersistenceError is returned. Stock and ledger failures after a
// successful insert become warnings; the packages stand. Cancelling ctx after
// the insert has committed does not stop the stock and ledger steps.
func (w *Writer) WriteBatch(ctx context.Context, plans []*model.PackagePlan, userID int64, rep *Report) ([]model.Package, error) {
	if len(plans) == 0 {
		return nil, nil
	}

	rows, inserted, err := w.insertPackages(ctx, plans, userID)
	if err != nil {
		batchErr := &BatchPersistenceError{
			FirstRow: plans[0].RowNumber,
			LastRow:  plans[len(plans)-1].RowNumber,
			Size:     len(plans),
			Err:      err,
		}
		w.logger.Error("batch insert failed",
			zap.Int("size", len(plans)),
			zap.Int("first_row", batchErr.FirstRow),
			zap.Int("last_row", batchErr.LastRow),
			zap.Error(err),
		)
		for _, p := range plans {
			rep.addError(&RowError{Row: p.RowNumber, Err: err})
		}
		return nil, batchErr
	}

	// The packages are committed. Deduct their stock and write the ledger
	// even if the caller has gone away; each call is still bounded by the
	// store timeout.
	tail := context.WithoutCancel(ctx)
	stored := w.pair(plans, rows, inserted, rep)
	movements := w.applyStock(tail, stored, userID, rep)
	w.recordMovements(tail, movements, rep)

	out := make([]model.Package, len(stored))
	for i, s := range stored {
		rep.succeed(s.pkg.ShortCode)
		out[i] = s.pkg
	}
	return out, nil
}

func (w *Writer) insertPackages(ctx context.Context, plans []*model.PackagePlan, userID int64) ([]model.Package, []store.InsertedPackage, error) {
	createdBy := &userID

	for attempt := 1; ; attempt++ {
		now := w.now().UTC()
		rows := make([]model.Package, len(plans))
		for i, p := range plans {
			rows[i] = p.Package(createdBy, now)
		}

		sctx, cancel := context.WithTimeout(ctx, w.timeout)
		inserted, err := w.store.InsertPackages(sctx, rows)
		cancel()
		if err == nil {
			return rows, inserted, nil
		}
		if !errors.Is(err, store.ErrDuplicateCode) || attempt >= codeRetries {
			return nil, nil, err
		}

		w.logger.Warn("short code collision, regenerating codes for batch",
			zap.Int("attempt", attempt),
			zap.Int("size", len(plans)),
		)
		if err := w.planner.Recode(plans); err != nil {
			return nil, nil, err
		}
	}
}

// pair matches inserted rows to plans by correlation id.
func (w *Writer) pair(plans []*model.PackagePlan, rows []model.Package, inserted []store.InsertedPackage, rep *Report) []storedPlan {
	known := make(map[string]bool, len(plans))
	for _, p := range plans {
		known[p.TempID] = true
	}

	ids := make(map[string]int64, len(inserted))
	for _, ip := range inserted {
		if !known[ip.TempID] {
			w.logger.Error("store returned unknown correlation id",
				zap.Int64("package_id", ip.ID),
				zap.String("temp_id", ip.TempID),
			)
			rep.addError(fmt.Errorf("package %d returned with unknown correlation id %q", ip.ID, ip.TempID))
			continue
		}
		ids[ip.TempID] = ip.ID
	}

	stored := make([]storedPlan, 0, len(plans))
	for i, p := range plans {
		id, ok := ids[p.TempID]
		if !ok {
			rep.addError(&RowError{Row: p.RowNumber, Err: fmt.Errorf("package %s missing from store result", p.ShortCode)})
			continue
		}
		pkg := rows[i]
		pkg.ID = id
		stored = append(stored, storedPlan{plan: p, pkg: pkg})
	}
	return stored
}

// applyStock issues one conditional decrement per distinct item for the whole
// batch. When an item cannot cover the batch total it falls back to one
// decrement per package in plan order. It returns a movement for every delta
// that was applied.
func (w *Writer) applyStock(ctx context.Context, stored []storedPlan, userID int64, rep *Report) []model.Movement {
	var order []int64
	byItem := make(map[int64][]pendingDelta)

	for i := range stored {
		s := &stored[i]
		names := make(map[int64]string, len(s.plan.LineItems))
		for _, li := range s.plan.LineItems {
			names[li.ProductID] = li.DisplayName
		}
		for _, d := range s.plan.Deltas {
			if d.Delta >= 0 {
				continue
			}
			if _, seen := byItem[d.ItemID]; !seen {
				order = append(order, d.ItemID)
			}
			byItem[d.ItemID] = append(byItem[d.ItemID], pendingDelta{stored: s, name: names[d.ItemID], qty: -d.Delta})
		}
	}

	now := w.now().UTC()
	var movements []model.Movement

	for _, itemID := range order {
		pending := byItem[itemID]
		total := 0
		for _, p := range pending {
			total += p.qty
		}

		err := w.decrement(ctx, itemID, total)
		if err == nil {
			for _, p := range pending {
				movements = append(movements, movementFor(itemID, p, userID, now))
			}
			continue
		}

		if !errors.Is(err, store.ErrInsufficientStock) {
			w.logger.Error("stock update failed",
				zap.Int64("item_id", itemID),
				zap.Int("quantity", total),
				zap.Error(err),
			)
			for _, p := range pending {
				rep.addWarning(&StockWarning{PackageCode: p.stored.pkg.ShortCode, Item: p.name, Quantity: p.qty, Err: err})
			}
			continue
		}

		w.logger.Warn("stock cannot cover batch, deducting per package",
			zap.Int64("item_id", itemID),
			zap.Int("quantity", total),
		)
		for _, p := range pending {
			if err := w.decrement(ctx, itemID, p.qty); err != nil {
				rep.addWarning(&StockWarning{PackageCode: p.stored.pkg.ShortCode, Item: p.name, Quantity: p.qty, Err: err})
				continue
			}
			movements = append(movements, movementFor(itemID, p, userID, now))
		}
	}
	return movements
}

func (w *Writer) decrement(ctx context.Context, itemID int64, quantity int) error {
	sctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.store.DecrementStock(sctx, itemID, quantity)
}

func (w *Writer) recordMovements(ctx context.Context, movements []model.Movement, rep *Report) {
	if len(movements) == 0 {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.store.InsertMovements(sctx, movements); err != nil {
		warn := &LedgerWriteWarning{Movements: len(movements), Err: err}
		w.logger.Error("ledger write failed", zap.Int("movements", len(movements)), zap.Error(err))
		rep.addWarning(warn)
	}
}

func movementFor(itemID int64, p pendingDelta, userID int64, now time.Time) model.Movement {
	pkgID := p.stored.pkg.ID
	uid := userID
	return model.Movement{
		ItemID:       itemID,
		Delta:        -p.qty,
		Reason:       MovementReason(p.stored.pkg.ShortCode),
		RefPackageID: &pkgID,
		UserID:       &uid,
		CreatedAt:    now,
	}
}

// MovementReason is the ledger text for stock taken by a package.
func MovementReason(code string) string {
	return fmt.Sprintf("Package %s created", code)
}
