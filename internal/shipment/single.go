package shipment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/notify"
)

// LineRequest is one product picked on the manual form.
type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// SingleRequest is a manually entered package.
type SingleRequest struct {
	Recipient
	Destination string        `json:"destination"`
	Items       []LineRequest `json:"items"`
}

// Creator creates packages one at a time from the manual form.
type Creator struct {
	pipeline
}

func NewCreator(d Deps, cfg Config) *Creator {
	return &Creator{pipeline: newPipeline(d, cfg)}
}

type packageCreated struct {
	ID          int64                    `json:"id"`
	ShortCode   string                   `json:"short_code"`
	Destination *int64                   `json:"destination_branch_id,omitempty"`
	Items       []model.ResolvedLineItem `json:"items"`
}

// CreateSingle checks that every requested product has enough stock and
// then writes one package. Any shortage rejects the request with an
// *InsufficientStockError before anything is written. The returned report
// carries warnings for stock that changed between the check and the write.
func (c *Creator) CreateSingle(ctx context.Context, req SingleRequest) (*model.Package, *Report, error) {
	userID, err := currentUser(ctx, c.identity)
	if err != nil {
		return nil, nil, err
	}

	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, nil, err
	}

	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	items := make([]model.ResolvedLineItem, 0, len(lines))
	var shortages []Shortage
	for _, l := range lines {
		item, ok := snap.ByID(l.ProductID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnknownProduct, l.ProductID)
		}
		if l.Quantity > item.StockOnHand {
			shortages = append(shortages, Shortage{
				ItemID:    item.ID,
				Name:      displayName(item),
				Needed:    l.Quantity,
				Available: item.StockOnHand,
			})
		}
		items = append(items, model.ResolvedLineItem{
			ProductID:   item.ID,
			DisplayName: displayName(item),
			Quantity:    l.Quantity,
		})
	}
	if len(shortages) > 0 {
		return nil, nil, &InsufficientStockError{Shortages: shortages}
	}

	dest, _, err := c.destination(ctx, req.Destination)
	if err != nil {
		return nil, nil, err
	}

	plan, err := c.planner.Plan(NormalizeManual(req.Recipient), items, dest)
	if err != nil {
		return nil, nil, err
	}

	rep := newReport(1, nil)
	pkgs, err := c.writer.WriteBatch(ctx, []*model.PackagePlan{plan}, userID, rep)
	rep.advance(1)
	if err != nil {
		var bpe *BatchPersistenceError
		if errors.As(err, &bpe) {
			err = bpe.Err
		}
		return nil, rep, &StoreError{Op: "creating package", Err: err}
	}
	if len(pkgs) == 0 {
		return nil, rep, &StoreError{Op: "creating package", Err: errors.New("package missing from store result")}
	}

	pkg := pkgs[0]
	c.logger.Info("package created",
		zap.String("code", pkg.ShortCode),
		zap.Int64("id", pkg.ID),
		zap.Int("warnings", rep.WarningCount),
	)
	c.notify(ctx, notify.NewEvent(notify.EventPackageCreated, pkg.ShortCode, packageCreated{
		ID:          pkg.ID,
		ShortCode:   pkg.ShortCode,
		Destination: pkg.DestinationBranchID,
		Items:       items,
	}))

	return &pkg, rep, nil
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
func mergeLines(req []LineRequest) ([]LineRequest, error) {
	if len(req) == 0 {
		return nil, ErrNoItems
	}

	var out []LineRequest
	index := make(map[int64]int)
	for _, l := range req {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidQuantity, l.ProductID)
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}
