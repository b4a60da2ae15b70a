package data

import (
	"fmt"
	"sort"
)

// Repository gives read access to the datasets of one refresh
type Repository interface {
	Dataset(name string) (*Dataset, error)
	Table(name string) (*Table, error)
	Names() []string
}

// MemoryRepository is an immutable set of loaded datasets
type MemoryRepository struct {
	datasets map[string]*Dataset
}

// Ensure MemoryRepository implements the Repository interface
var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository indexes datasets by name. Nil entries are skipped.
func NewMemoryRepository(datasets ...*Dataset) *MemoryRepository {
	m := make(map[string]*Dataset, len(datasets))
	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		m[ds.Name] = ds
	}
	return &MemoryRepository{datasets: m}
}

// Dataset returns the dataset called name
func (r *MemoryRepository) Dataset(name string) (*Dataset, error) {
	ds, ok := r.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return ds, nil
}

// Table returns the decoded table of a tabular dataset
func (r *MemoryRepository) Table(name string) (*Table, error) {
	ds, err := r.Dataset(name)
	if err != nil {
		return nil, err
	}
	if !ds.IsTabular() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotTabular, name, ds.Format)
	}
	return ds.Table, nil
}

// Names lists the loaded datasets in ascending order
func (r *MemoryRepository) Names() []string {
	names := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
