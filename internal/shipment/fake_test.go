package shipment

import (
	"context"
	"fmt"
	"sync"

	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/store"
)

// fakeStore is an in-memory Store that records every call.
type fakeStore struct {
	mu sync.Mutex

	items    map[int64]*model.InventoryItem
	packages []model.Package
	moves    []model.Movement
	branches []model.Branch
	nextID   int64

	insertCalls    int
	decrementCalls []decrementCall
	movementCalls  int

	// Failure injection.
	insertErr      func(call int, rows []model.Package) error
	movementErr    error
	decrementErr   error
	reverseReturn  bool
	dropReturnedAt int // 1-based index of an inserted row to leave out of the result
	loadErr        error
}

type decrementCall struct {
	ItemID   int64
	Quantity int
}

func newFakeStore(items ...model.InventoryItem) *fakeStore {
	fs := &fakeStore{items: make(map[int64]*model.InventoryItem), nextID: 100}
	for i := range items {
		it := items[i]
		fs.items[it.ID] = &it
	}
	return fs
}

func item(id int64, sku string, stock int) model.InventoryItem {
	return model.InventoryItem{ID: id, SKU: sku, Name: sku, Unit: model.DefaultUnit, StockOnHand: stock, Active: true}
}

func (f *fakeStore) LoadInventory(ctx context.Context) ([]model.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]model.InventoryItem, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, *it)
	}
	return out, nil
}

func (f *fakeStore) InsertPackages(ctx context.Context, rows []model.Package) ([]store.InsertedPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.insertErr != nil {
		if err := f.insertErr(f.insertCalls, rows); err != nil {
			return nil, err
		}
	}

	out := make([]store.InsertedPackage, 0, len(rows))
	for i, r := range rows {
		f.nextID++
		r.ID = f.nextID
		f.packages = append(f.packages, r)
		if f.dropReturnedAt == i+1 {
			continue
		}
		out = append(out, store.InsertedPackage{ID: r.ID, TempID: r.TempID})
	}
	if f.reverseReturn {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (f *fakeStore) DecrementStock(ctx context.Context, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.decrementCalls = append(f.decrementCalls, decrementCall{itemID, quantity})
	if f.decrementErr != nil {
		return f.decrementErr
	}
	it, ok := f.items[itemID]
	if !ok || it.StockOnHand < quantity {
		return store.ErrInsufficientStock
	}
	it.StockOnHand -= quantity
	return nil
}

func (f *fakeStore) InsertMovements(ctx context.Context, movements []model.Movement) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.movementCalls++
	if f.movementErr != nil {
		return f.movementErr
	}
	f.moves = append(f.moves, movements...)
	return nil
}

func (f *fakeStore) DestinationBranch(ctx context.Context, name string) (*model.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.branches {
		b := f.branches[i]
		if (name == "" && b.IsDefault) || (name != "" && b.Name == name) {
			return &b, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].StockOnHand
}

// setStock changes stock behind the snapshot's back.
func (f *fakeStore) setStock(id int64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].StockOnHand = stock
}

func (f *fakeStore) decrementsFor(id int64) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, c := range f.decrementCalls {
		if c.ItemID == id {
			out = append(out, c.Quantity)
		}
	}
	return out
}

// sequentialCodes returns a code generator yielding distinct codes.
func sequentialCodes() CodeGenerator {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("CODE%04d", n), nil
	}
}

func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("temp-%d", n)
	}
}

func testPlanner() *Planner {
	return &Planner{NewCode: sequentialCodes(), NewID: sequentialIDs()}
}
