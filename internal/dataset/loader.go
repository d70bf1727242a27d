// Package dataset loads the sales file into typed records exactly once per
// process.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"shipdash/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// Dataset is the immutable, normalized content of the source file.
type Dataset struct {
	Records   []models.Record
	Options   models.FilterOptions
	Source    string
	LoadedAt  time.Time
	FromCache bool
}

type Option func(*Loader)

// WithCacheDir enables the gob snapshot cache. An empty dir disables it.
func WithCacheDir(dir string) Option {
	return func(l *Loader) { l.cacheDir = dir }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// Loader memoizes the first Load. Later calls, including concurrent ones,
// return the same *Dataset or the same error. Errors are memoized too: if the
// first caller's ctx is cancelled or times out, that Loader stays failed and a
// retry needs a new Loader.
type Loader struct {
	path     string
	cacheDir string
	workers  int
	logger   *slog.Logger

	once   sync.Once
	ds     *Dataset
	err    error
	parses atomic.Int64
}

func NewLoader(path string, opts ...Option) *Loader {
	l := &Loader{
		path:    path,
		workers: maxWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and normalizes the dataset on first call. ctx only bounds that
// first call; later callers get its result whatever their own ctx.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	l.once.Do(func() {
		l.ds, l.err = l.load(ctx)
	})
	return l.ds, l.err
}

// Parses reports how many times the source file was parsed.
func (l *Loader) Parses() int64 {
	return l.parses.Load()
}

func (l *Loader) load(ctx context.Context) (*Dataset, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}

	if l.cacheDir != "" {
		if records, err := loadSnapshot(l.cacheDir, l.path, info); err == nil {
			l.logger.Info("loaded from cache", "records", len(records))
			return newDataset(l.path, records, true), nil
		}
	}

	start := time.Now()
	l.logger.Info("processing dataset", "filename", l.path)

	records, err := l.parse(ctx)
	if err != nil {
		return nil, fmt.Errorf("process dataset: %w", err)
	}

	if l.cacheDir != "" {
		if err := saveSnapshot(l.cacheDir, l.path, info, records); err != nil {
			l.logger.Warn("failed to save cache", "error", err)
		}
	}

	duration := time.Since(start)
	l.logger.Info("dataset processing complete",
		"records", len(records),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(records))/duration.Seconds()))

	return newDataset(l.path, records, false), nil
}

func (l *Loader) parse(ctx context.Context) ([]models.Record, error) {
	l.parses.Add(1)

	header, rows, err := readTable(l.path)
	if err != nil {
		return nil, err
	}
	idx, err := bindHeader(header)
	if err != nil {
		return nil, err
	}
	return parseRows(ctx, rows, idx, l.workers)
}

// parseRows converts rows in batches on a bounded worker group. Row order is
// preserved and the reported error is the one for the lowest failing row.
func parseRows(ctx context.Context, rows [][]string, idx columnIndex, workers int) ([]models.Record, error) {
	records := make([]models.Record, len(rows))
	nBatches := (len(rows) + batchSize - 1) / batchSize
	batchErrs := make([]error, nBatches)

	var g errgroup.Group
	g.SetLimit(workers)

	for b := 0; b < nBatches; b++ {
		lo := b * batchSize
		hi := min(lo+batchSize, len(rows))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					batchErrs[b] = err
					return nil
				}
				rec, err := parseRecord(rows[i], i+1, idx)
				if err != nil {
					batchErrs[b] = err
					return nil
				}
				records[i] = rec
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range batchErrs {
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// FromRecords wraps already-normalized records, for callers that build the
// dataset in memory.
func FromRecords(records []models.Record) *Dataset {
	return newDataset("memory", records, false)
}

func newDataset(source string, records []models.Record, fromCache bool) *Dataset {
	return &Dataset{
		Records:   records,
		Options:   Options(records),
		Source:    source,
		LoadedAt:  time.Now(),
		FromCache: fromCache,
	}
}

// Options collects the sorted distinct values of the filter dimensions.
func Options(records []models.Record) models.FilterOptions {
	years := make(map[int]struct{})
	markets := make(map[string]struct{})
	regions := make(map[string]struct{})
	flags := make(map[string]struct{})
	for _, r := range records {
		years[r.Year] = struct{}{}
		markets[r.Market] = struct{}{}
		regions[r.Region] = struct{}{}
		flags[r.ExpressFlag] = struct{}{}
	}
	return models.FilterOptions{
		Years:        sortedKeys(years),
		Markets:      sortedKeys(markets),
		Regions:      sortedKeys(regions),
		ExpressFlags: sortedKeys(flags),
	}
}

func sortedKeys[K int | string](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
