package shipment

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/lock"
	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/notify"
	"github.com/erazemk/posiljke/internal/sheet"
)

// DefaultBatchSize is the number of spreadsheet rows written per batch.
const DefaultBatchSize = 50

// MaxBatchSize caps Config.BatchSize. Larger values are clamped.
const MaxBatchSize = 1000

// Config tunes the pipeline.
type Config struct {
	BatchSize         int
	StoreTimeout      time.Duration
	DestinationBranch string // default destination; empty means the default branch
}

// Deps are the collaborators a pipeline runs against. Notifier and Locker
// are optional.
type Deps struct {
	Store    Store
	Identity Identity
	Notifier notify.Notifier
	Locker   lock.Locker
	Planner  *Planner
	Logger   *zap.Logger
}

type pipeline struct {
	store    Store
	identity Identity
	notifier notify.Notifier
	locker   lock.Locker
	planner  *Planner
	writer   *Writer
	logger   *zap.Logger
	cfg      Config
}

func newPipeline(d Deps, cfg Config) pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		d.Logger.Warn("batch size too large, clamping",
			zap.Int("batch_size", cfg.BatchSize),
			zap.Int("max", MaxBatchSize),
		)
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if d.Planner == nil {
		d.Planner = NewPlanner()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return pipeline{
		store:    d.Store,
		identity: d.Identity,
		notifier: d.Notifier,
		locker:   d.Locker,
		planner:  d.Planner,
		writer:   NewWriter(d.Store, d.Planner, cfg.StoreTimeout, d.Logger),
		logger:   d.Logger,
		cfg:      cfg,
	}
}

// destination resolves the branch packages are sent to. A named branch that
// does not exist is a configuration error; a missing default is not.
func (p *pipeline) destination(ctx context.Context, name string) (*int64, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = p.cfg.DestinationBranch
	}

	sctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	branch, err := p.store.DestinationBranch(sctx, name)
	if err != nil {
		return nil, "", &StoreError{Op: "loading destination branch", Err: err}
	}
	if branch == nil {
		if name != "" {
			return nil, "", &ConfigurationError{Msg: fmt.Sprintf("destination branch %q not found", name)}
		}
		p.logger.Warn("no default branch configured, packages have no destination")
		return nil, "", nil
	}
	id := branch.ID
	return &id, branch.Name, nil
}

func (p *pipeline) snapshot(ctx context.Context) (*Snapshot, error) {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	items, err := p.store.LoadInventory(sctx)
	if err != nil {
		return nil, &StoreError{Op: "loading inventory", Err: err}
	}
	return NewSnapshot(items), nil
}

func (p *pipeline) notify(ctx context.Context, e notify.Event) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
		p.logger.Warn("notification failed", zap.String("type", e.Type), zap.Error(err))
	}
}

// Importer runs spreadsheet imports.
type Importer struct {
	pipeline
}

func NewImporter(d Deps, cfg Config) *Importer {
	return &Importer{pipeline: newPipeline(d, cfg)}
}

// Options are per-run settings.
type Options struct {
	Destination string // branch name; empty uses the configured default
	Encoding    string // input encoding for ImportCSV; empty means UTF-8
	Progress    ProgressFunc
}

// ImportCSV decodes r and imports it. Unreadable input returns a
// *sheet.FormatError.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	grid, err := sheet.Decode(r, opts.Encoding)
	if err != nil {
		return nil, err
	}
	return im.ImportBatch(ctx, grid, opts)
}

// ImportBatch imports a decoded grid whose first row is the header. Rows are
// processed in batches of Config.BatchSize. Row and batch failures are
// counted in the report; only a bad header, an unknown destination, an
// unauthenticated caller or an unreadable inventory stop the run. When ctx
// is cancelled no further batches are started and the report is marked
// Cancelled; batches already written stay.
func (im *Importer) ImportBatch(ctx context.Context, grid [][]string, opts Options) (*Report, error) {
	userID, err := currentUser(ctx, im.identity)
	if err != nil {
		return nil, err
	}

	if len(grid) == 0 {
		return nil, &ConfigurationError{Msg: "spreadsheet has no header row"}
	}
	cm, err := ResolveColumns(grid[0])
	if err != nil {
		return nil, err
	}
	rows := grid[1:]

	dest, destName, err := im.destination(ctx, opts.Destination)
	if err != nil {
		return nil, err
	}

	var lease lock.Lease
	if im.locker != nil {
		key := "branch:none"
		if dest != nil {
			key = fmt.Sprintf("branch:%d", *dest)
		}
		lease, err = im.locker.Acquire(ctx, key)
		if err != nil {
			return nil, err
		}
		defer lease.Release()
	}

	snap, err := im.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rep := newReport(len(rows), opts.Progress)
	log := im.logger.With(zap.String("run_id", uuid.NewString()))
	log.Info("import started",
		zap.Int("rows", len(rows)),
		zap.String("destination", destName),
		zap.Int("inventory_items", snap.Len()),
		zap.Int64("user_id", userID),
	)
	started := time.Now()

	for start := 0; start < len(rows); start += im.cfg.BatchSize {
		if ctx.Err() != nil {
			rep.Cancelled = true
			log.Warn("import cancelled", zap.Int("processed", rep.Processed), zap.Int("rows", len(rows)))
			break
		}

		end := min(start+im.cfg.BatchSize, len(rows))
		plans := im.planRows(rows[start:end], start, cm, snap, dest, rep)
		if _, err := im.writer.WriteBatch(ctx, plans, userID, rep); err != nil {
			log.Warn("batch failed", zap.Int("from", start), zap.Int("to", end), zap.Error(err))
		}
		rep.advance(end)

		if lease != nil && end < len(rows) {
			if err := lease.Extend(ctx); err != nil {
				log.Warn("failed to extend run lock", zap.Int("processed", end), zap.Error(err))
			}
		}
	}
	if !rep.Cancelled && ctx.Err() != nil {
		// Cancelled while the last batch was being written.
		rep.Cancelled = true
		log.Warn("import cancelled", zap.Int("processed", rep.Processed), zap.Int("rows", len(rows)))
	}

	log.Info("import finished",
		zap.Int("success", rep.SuccessCount),
		zap.Int("errors", rep.ErrorCount),
		zap.Int("skipped", rep.SkippedCount),
		zap.Int("warnings", rep.WarningCount),
		zap.Bool("cancelled", rep.Cancelled),
		zap.Duration("took", time.Since(started)),
	)
	im.notify(ctx, notify.NewEvent(notify.EventImportCompleted, destName, rep))

	return rep, nil
}

// planRows normalizes, resolves and plans one batch of data rows. offset is
// the index of the first row among all data rows.
func (im *Importer) planRows(rows [][]string, offset int, cm ColumnMap, snap *Snapshot, dest *int64, rep *Report) []*model.PackagePlan {
	plans := make([]*model.PackagePlan, 0, len(rows))

	for i, cells := range rows {
		rowNumber := HeaderRow + offset + i + 1

		row, ok := Normalize(cm, rowNumber, cells)
		if !ok {
			rep.skip()
			continue
		}
		agg := AggregateSkus(row.RawSkuTokens)
		if len(agg) == 0 {
			rep.skip()
			continue
		}

		res, err := Resolve(agg, snap)
		if err != nil {
			rep.addError(&RowError{Row: rowNumber, Err: err})
			continue
		}
		if len(res.Unmatched) > 0 {
			rep.addWarning(&RowError{Row: rowNumber, Err: fmt.Errorf("unknown products dropped: %s", strings.Join(res.Unmatched, ", "))})
		}

		plan, err := im.planner.Plan(row, res.Items, dest)
		if err != nil {
			rep.addError(&RowError{Row: rowNumber, Err: err})
			continue
		}
		plans = append(plans, plan)
	}
	return plans
}
