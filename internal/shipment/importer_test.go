package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/lock"
	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/notify"
	"github.com/erazemk/posiljke/internal/sheet"
)

var header = []string{"Beneficiary", "Company", "Address", "Products", "Notes"}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func newTestImporter(fs *fakeStore, cfg Config) (*Importer, *recordingNotifier) {
	n := &recordingNotifier{}
	im := NewImporter(Deps{
		Store:    fs,
		Identity: StaticIdentity(testUser),
		Notifier: n,
		Planner:  testPlanner(),
		Logger:   zap.NewNop(),
	}, cfg)
	return im, n
}

func TestImportScenarioA(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10), item(2, "B2", 5))
	im, _ := newTestImporter(fs, Config{})

	rep, err := im.ImportBatch(context.Background(), [][]string{
		header,
		{"Jon Doe", "", "", "A1;A1;B2"},
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.SuccessCount)
	assert.Zero(t, rep.ErrorCount)
	assert.Equal(t, 8, fs.stock(1))
	assert.Equal(t, 4, fs.stock(2))

	require.Len(t, fs.packages, 1)
	pkgID := fs.packages[0].ID
	require.Len(t, fs.moves, 2)
	for _, m := range fs.moves {
		assert.Equal(t, pkgID, *m.RefPackageID)
	}
	assert.Equal(t, "Jon Doe\nA1 x2, B2 x1", fs.packages[0].ContentsNote)
}

func TestImportScenarioBSkipsEmptyProducts(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10))
	im, _ := newTestImporter(fs, Config{})

	rep, err := im.ImportBatch(context.Background(), [][]string{
		header,
		{"Ana", "", "", ""},
		{"Bor", "", "", " ; ; "},
		{"Cene"},
	}, Options{})
	require.NoError(t, err)

	assert.Zero(t, rep.SuccessCount)
	assert.Zero(t, rep.ErrorCount)
	assert.Equal(t, 3, rep.SkippedCount)
	assert.Zero(t, fs.insertCalls)
	assert.Equal(t, 3, rep.Processed)
}

func TestImportScenarioCUnknownProduct(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10))
	im, _ := newTestImporter(fs, Config{})

	rep, err := im.ImportBatch(context.Background(), [][]string{
		header,
		{"Ana", "", "", "ZZZ"},
		{"Bor", "", "", "A1;zzz"},
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.ErrorCount)
	assert.Equal(t, []string{"row 2: no valid products found"}, rep.Errors)
	assert.Equal(t, 1, rep.SuccessCount)
	assert.Equal(t, 1, rep.WarningCount)
	assert.Contains(t, rep.Warnings[0], "zzz")
	assert.Equal(t, 9, fs.stock(1))
}

func gridOf(n int) [][]string {
	grid := [][]string{header}
	for i := 0; i < n; i++ {
		grid = append(grid, []string{fmt.Sprintf("R%d", i), "", "", "A1"})
	}
	return grid
}

func TestImportScenarioEProgress(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 1000))
	im, _ := newTestImporter(fs, Config{BatchSize: 50})

	var progress [][2]int
	rep, err := im.ImportBatch(context.Background(), gridOf(120), Options{
		Progress: func(processed, total int) { progress = append(progress, [2]int{processed, total}) },
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{50, 120}, {100, 120}, {120, 120}}, progress)
	assert.Equal(t, 120, rep.SuccessCount)
	assert.Equal(t, 3, fs.insertCalls)
	assert.Equal(t, []int{50, 50, 20}, fs.decrementsFor(1))
	assert.Equal(t, 880, fs.stock(1))
	assert.Len(t, fs.moves, 120)
	assert.False(t, rep.Cancelled)
}

func TestImportFailedBatchOnlyAffectsItsRows(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 1000))
	fs.insertErr = func(call int, _ []model.Package) error {
		if call == 2 {
			return errors.New("timeout talking to store")
		}
		return nil
	}
	im, _ := newTestImporter(fs, Config{BatchSize: 50})

	rep, err := im.ImportBatch(context.Background(), gridOf(120), Options{})
	require.NoError(t, err)

	assert.Equal(t, 70, rep.SuccessCount)
	assert.Equal(t, 50, rep.ErrorCount)
	assert.Len(t, rep.Errors, MaxReportedErrors)
	assert.Equal(t, []int{50, 20}, fs.decrementsFor(1))
	assert.Len(t, fs.moves, 70)
	assert.Equal(t, 120, rep.Processed)
}

func TestImportCancellationKeepsCommittedBatches(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 1000))
	im, _ := newTestImporter(fs, Config{BatchSize: 50})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep, err := im.ImportBatch(ctx, gridOf(120), Options{
		Progress: func(processed, total int) {
			if processed == 50 {
				cancel()
			}
		},
	})
	require.NoError(t, err)

	assert.True(t, rep.Cancelled)
	assert.Equal(t, 50, rep.Processed)
	assert.Equal(t, 50, rep.SuccessCount)
	assert.Equal(t, 1, fs.insertCalls)
	assert.Equal(t, 950, fs.stock(1))
}

func TestImportStaleSnapshotAcrossBatches(t *testing.T) {
	// Snapshot says 100; only 60 are really there.
	fs := newFakeStore(item(1, "A1", 100))
	im, _ := newTestImporter(fs, Config{BatchSize: 50})

	var once sync.Once
	rep, err := im.ImportBatch(context.Background(), gridOf(100), Options{
		Progress: func(processed, total int) {
			once.Do(func() { fs.setStock(1, 10) })
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 100, rep.SuccessCount)
	assert.Equal(t, 40, rep.WarningCount)
	assert.Equal(t, 0, fs.stock(1))
	assert.Len(t, fs.moves, 60)

	sum := 0
	for _, m := range fs.moves {
		sum += m.Delta
	}
	assert.Equal(t, -60, sum)
}

func TestImportConfigurationErrors(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10))
	im, _ := newTestImporter(fs, Config{})
	var ce *ConfigurationError

	_, err := im.ImportBatch(context.Background(), nil, Options{})
	assert.True(t, errors.As(err, &ce))

	_, err = im.ImportBatch(context.Background(), [][]string{{"Beneficiary", "Company"}, {"Ana", "X"}}, Options{})
	assert.True(t, errors.As(err, &ce))

	_, err = im.ImportBatch(context.Background(), gridOf(1), Options{Destination: "Nowhere"})
	assert.True(t, errors.As(err, &ce))

	assert.Zero(t, fs.insertCalls)
}

func TestImportUnauthenticated(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10))
	im := NewImporter(Deps{Store: fs, Identity: StaticIdentity(0)}, Config{})

	_, err := im.ImportBatch(context.Background(), gridOf(1), Options{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	im = NewImporter(Deps{
		Store: fs,
		Identity: IdentityFunc(func(context.Context) (int64, error) {
			return 0, errors.New("token expired")
		}),
	}, Config{})
	_, err = im.ImportBatch(context.Background(), gridOf(1), Options{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, fs.insertCalls)
}

func TestImportInventoryLoadFailure(t *testing.T) {
	fs := newFakeStore()
	fs.loadErr = errors.New("no such table")
	im, _ := newTestImporter(fs, Config{})

	_, err := im.ImportBatch(context.Background(), gridOf(1), Options{})
	var se *StoreError
	assert.True(t, errors.As(err, &se))
}

func TestImportDestinationBranch(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10))
	fs.branches = []model.Branch{{ID: 3, Name: "Koper", IsDefault: true}, {ID: 4, Name: "Celje"}}
	im, _ := newTestImporter(fs, Config{})

	_, err := im.ImportBatch(context.Background(), gridOf(1), Options{})
	require.NoError(t, err)
	_, err = im.ImportBatch(context.Background(), gridOf(1), Options{Destination: "Celje"})
	require.NoError(t, err)

	require.Len(t, fs.packages, 2)
	assert.Equal(t, int64(3), *fs.packages[0].DestinationBranchID)
	assert.Equal(t, int64(4), *fs.packages[1].DestinationBranchID)
	assert.Equal(t, testUser, *fs.packages[0].CreatedBy)
}

func TestImportNotifiesCompletion(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10))
	im, n := newTestImporter(fs, Config{})

	_, err := im.ImportBatch(context.Background(), gridOf(2), Options{})
	require.NoError(t, err)

	require.Len(t, n.events, 1)
	assert.Equal(t, notify.EventImportCompleted, n.events[0].Type)
	rep, ok := n.events[0].Payload.(*Report)
	require.True(t, ok)
	assert.Equal(t, 2, rep.SuccessCount)
}

func TestImportHeldLockRejectsRun(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10))
	locker := lock.NewLocal(time.Minute)
	im := NewImporter(Deps{Store: fs, Identity: StaticIdentity(testUser), Locker: locker}, Config{})

	lease, err := locker.Acquire(context.Background(), "branch:none")
	require.NoError(t, err)

	_, err = im.ImportBatch(context.Background(), gridOf(1), Options{})
	assert.ErrorIs(t, err, lock.ErrLocked)

	lease.Release()
	rep, err := im.ImportBatch(context.Background(), gridOf(1), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.SuccessCount)
}

func TestImportCSV(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 10), item(2, "B2", 5))
	im, _ := newTestImporter(fs, Config{})

	in := "Beneficiary,Surname,Company,Address,Products,Notes\nJon,Doe,ACME,Main St 1,A1;b2;a1,call first\n,,,,,\n"
	rep, err := im.ImportCSV(context.Background(), strings.NewReader(in), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.SuccessCount)
	assert.Equal(t, 1, rep.SkippedCount)
	require.Len(t, fs.packages, 1)
	assert.Equal(t, "Jon Doe | ACME\nMain St 1\nA1 x2, B2 x1", fs.packages[0].ContentsNote)
	assert.Equal(t, "call first", fs.packages[0].Notes)

	_, err = im.ImportCSV(context.Background(), strings.NewReader(""), Options{})
	var fe *sheet.FormatError
	assert.True(t, errors.As(err, &fe))
}

type countingLease struct{ extends, releases int }

func (l *countingLease) Extend(context.Context) error { l.extends++; return nil }
func (l *countingLease) Release()                     { l.releases++ }

type countingLocker struct{ lease countingLease }

func (c *countingLocker) Acquire(context.Context, string) (lock.Lease, error) { return &c.lease, nil }

func TestImportExtendsLockBetweenBatches(t *testing.T) {
	fs := newFakeStore(item(1, "A1", 1000))
	locker := &countingLocker{}
	im := NewImporter(Deps{Store: fs, Identity: StaticIdentity(testUser), Locker: locker}, Config{BatchSize: 50})

	rep, err := im.ImportBatch(context.Background(), gridOf(120), Options{})
	require.NoError(t, err)

	assert.Equal(t, 120, rep.SuccessCount)
	assert.Equal(t, 2, locker.lease.extends)
	assert.Equal(t, 1, locker.lease.releases)
}
