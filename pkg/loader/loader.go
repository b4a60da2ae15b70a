package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"election_dashboard/pkg/catalog"
	"election_dashboard/pkg/data"
	"election_dashboard/pkg/utils"
)

// Loader resolves catalog entries to decoded datasets. Results are memoised
// per (location, format, filters) until Invalidate is called, and concurrent
// loads of the same key share one download.
type Loader struct {
	catalog *catalog.Catalog
	fetcher Fetcher
	cache   *utils.CacheHelper
	group   singleflight.Group
	logger  *zap.Logger

	mu        sync.Mutex
	downloads int64
}

// New creates a loader over the given catalog
func New(cat *catalog.Catalog, fetcher Fetcher, logger *zap.Logger) *Loader {
	return &Loader{
		catalog: cat,
		fetcher: fetcher,
		cache:   utils.NewCacheHelper(),
		logger:  logger,
	}
}

// Load returns the dataset called name
func (l *Loader) Load(ctx context.Context, name string) (*data.Dataset, error) {
	src, err := l.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	return l.LoadSource(ctx, src)
}

// LoadSource fetches, decodes and filters one source
func (l *Loader) LoadSource(ctx context.Context, src catalog.Source) (*data.Dataset, error) {
	decode, ok := decoders[src.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnsupportedDatasetFormat, src.Format, src.Name)
	}

	key := cacheKey(src)
	if v, ok := l.cache.Get(key); ok {
		return withName(v.(*data.Dataset), src.Name), nil
	}

	ch := l.group.DoChan(key, func() (interface{}, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		ds, err := l.fetchAndDecode(context.WithoutCancel(ctx), src, decode)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, ds, 0)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return withName(res.Val.(*data.Dataset), src.Name), nil
	}
}

func (l *Loader) fetchAndDecode(ctx context.Context, src catalog.Source, decode decoder) (*data.Dataset, error) {
	start := time.Now()

	l.mu.Lock()
	l.downloads++
	l.mu.Unlock()

	body, err := l.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ds := &data.Dataset{
		Name:      src.Name,
		Format:    src.Format,
		URL:       src.URL,
		FetchedAt: time.Now().UTC(),
	}
	if err := decode(body, ds, src.Filters); err != nil {
		if errors.Is(err, data.ErrMissingColumn) {
			return nil, fmt.Errorf("filtering %s: %w", src.Name, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, src.Name, err)
	}

	fields := []zap.Field{
		zap.String("dataset", src.Name),
		zap.String("format", src.Format),
		zap.Duration("duration", time.Since(start)),
	}
	if ds.Table != nil {
		fields = append(fields, zap.Int("rows", ds.Table.Len()), zap.Int("columns", len(ds.Table.Columns)))
	}
	l.logger.Info("Dataset loaded", fields...)

	return ds, nil
}

func withName(ds *data.Dataset, name string) *data.Dataset {
	if ds.Name == name {
		return ds
	}
	cp := *ds
	cp.Name = name
	return &cp
}

func cacheKey(src catalog.Source) string {
	var b strings.Builder
	b.WriteString(src.Format)
	b.WriteString("|")
	b.WriteString(src.URL)
	for _, f := range src.Filters {
		values := append([]string(nil), f.Values...)
		sort.Strings(values)
		b.WriteString("|")
		b.WriteString(f.Column)
		b.WriteString("=")
		b.WriteString(strings.Join(values, ","))
	}
	return b.String()
}

// Invalidate drops every memoised dataset
func (l *Loader) Invalidate() {
	l.cache.Clear()
}

// Downloads returns how many fetches the loader has started
func (l *Loader) Downloads() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.downloads
}

// Result is the outcome of loading one dataset in LoadAll
type Result struct {
	Dataset *data.Dataset
	Err     error
}

// LoadAll loads names concurrently, at most limit at a time. A failing
// dataset does not stop the others; its error is reported in its Result.
func (l *Loader) LoadAll(ctx context.Context, names []string, limit int) map[string]Result {
	if limit <= 0 {
		limit = 1
	}

	var mu sync.Mutex
	results := make(map[string]Result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range names {
		name := name
		g.Go(func() error {
			ds, err := l.Load(gctx, name)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Warn("Dataset unavailable",
					zap.String("dataset", name),
					zap.Error(err))
			}
			mu.Lock()
			results[name] = Result{Dataset: ds, Err: err}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}
