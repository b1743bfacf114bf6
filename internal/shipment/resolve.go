package shipment

import (
	"github.com/erazemk/posiljke/internal/model"
)

// Snapshot is a read-only view of active inventory taken once per run.
type Snapshot struct {
	bySKU map[string]*model.InventoryItem
	byID  map[int64]*model.InventoryItem
}

// NewSnapshot indexes items by lower-cased SKU and by id. Inactive items are
// left out.
func NewSnapshot(items []model.InventoryItem) *Snapshot {
	s := &Snapshot{
		bySKU: make(map[string]*model.InventoryItem, len(items)),
		byID:  make(map[int64]*model.InventoryItem, len(items)),
	}
	for i := range items {
		item := &items[i]
		if !item.Active {
			continue
		}
		s.bySKU[model.NormalizeSKU(item.SKU)] = item
		s.byID[item.ID] = item
	}
	return s
}

func (s *Snapshot) BySKU(sku string) (*model.InventoryItem, bool) {
	item, ok := s.bySKU[model.NormalizeSKU(sku)]
	return item, ok
}

func (s *Snapshot) ByID(id int64) (*model.InventoryItem, bool) {
	item, ok := s.byID[id]
	return item, ok
}

func (s *Snapshot) Len() int { return len(s.byID) }

// Resolution is the outcome of matching one row's SKUs.
type Resolution struct {
	Items     []model.ResolvedLineItem
	Unmatched []string // original spelling of SKUs with no inventory item
}

// Resolve matches aggregated SKUs against the snapshot. Unmatched SKUs are
// dropped; if none match the result is ErrNoValidProducts.
func Resolve(agg Aggregate, snap *Snapshot) (Resolution, error) {
	var res Resolution
	for _, c := range agg {
		item, ok := snap.BySKU(c.Key)
		if !ok {
			res.Unmatched = append(res.Unmatched, c.Original)
			continue
		}
		res.Items = append(res.Items, model.ResolvedLineItem{
			ProductID:   item.ID,
			DisplayName: displayName(item),
			Quantity:    c.Quantity,
		})
	}
	if len(res.Items) == 0 {
		return res, ErrNoValidProducts
	}
	return res, nil
}

func displayName(item *model.InventoryItem) string {
	if item.Name != "" {
		return item.Name
	}
	return item.SKU
}
