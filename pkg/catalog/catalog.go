package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Error variables for catalog lookups
var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrInvalidSource  = errors.New("invalid data source")
)

// Dataset names of the default catalog
const (
	CandidateResults       = "candidats_results"
	GeneralResults         = "general_results"
	Nuances                = "nuances"
	SchemaCandidateResults = "schema_candidats_results"
	SchemaGeneralResults   = "schema_general_results"
	PollingStations        = "table_bv_reu"
)

// Published locations on data.gouv.fr
const (
	CandidateResultsURL       = "https://www.data.gouv.fr/fr/datasets/r/4d3b35f6-0b22-4415-a24c-419a676312e2"
	GeneralResultsURL         = "https://www.data.gouv.fr/fr/datasets/r/ff16d511-10c0-405e-9b35-511723948fce"
	NuancesURL                = "https://www.data.gouv.fr/fr/datasets/r/6fd17a6c-519b-465c-a7fd-ad2955fafc76"
	SchemaCandidateResultsURL = "https://www.data.gouv.fr/fr/datasets/r/c702d75b-4e7e-43c9-84fa-83220302931d"
	SchemaGeneralResultsURL   = "https://www.data.gouv.fr/fr/datasets/r/ced4d21f-9d17-4224-94c0-d0bf0bc28b1c"
	PollingStationsURL        = "https://www.data.gouv.fr/fr/datasets/r/6faacf36-1897-43f5-bf39-af8b41a15d26"

	// SourcesURL is the landing page of the aggregated election data
	SourcesURL = "https://www.data.gouv.fr/fr/datasets/donnees-des-elections-agregees/"
)

// Filter keeps rows whose Column value is one of Values
type Filter struct {
	Column string   `json:"column" mapstructure:"column"`
	Values []string `json:"values" mapstructure:"values"`
}

// Source describes where a dataset lives and how to narrow it
type Source struct {
	Name    string   `json:"name" mapstructure:"name"`
	URL     string   `json:"url" mapstructure:"url"`
	Format  string   `json:"format" mapstructure:"format"`
	Filters []Filter `json:"filters,omitempty" mapstructure:"filters"`
}

// Validate checks the source is usable. The format is checked by the loader.
func (s Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: %s: url is required", ErrInvalidSource, s.Name)
	}
	for _, f := range s.Filters {
		if f.Column == "" {
			return fmt.Errorf("%w: %s: filter column is required", ErrInvalidSource, s.Name)
		}
	}
	return nil
}

// Catalog is a fixed set of data sources keyed by name
type Catalog struct {
	sources map[string]Source
}

// New builds a catalog from sources; names must be unique
func New(sources []Source) (*Catalog, error) {
	m := make(map[string]Source, len(sources))
	for _, s := range sources {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidSource, s.Name)
		}
		m[s.Name] = s
	}
	return &Catalog{sources: m}, nil
}

// Default returns the catalog of the municipality identified by its
// department code and commune code within the department.
func Default(departmentCode, communeCode string) *Catalog {
	resultFilters := []Filter{
		{Column: "Code du département", Values: []string{departmentCode}},
		{Column: "Code de la commune", Values: []string{communeCode}},
	}
	sources := []Source{
		{Name: CandidateResults, URL: CandidateResultsURL, Format: "parquet", Filters: resultFilters},
		{Name: GeneralResults, URL: GeneralResultsURL, Format: "parquet", Filters: resultFilters},
		{Name: Nuances, URL: NuancesURL, Format: "csv"},
		{Name: SchemaCandidateResults, URL: SchemaCandidateResultsURL, Format: "json"},
		{Name: SchemaGeneralResults, URL: SchemaGeneralResultsURL, Format: "json"},
		{
			Name:    PollingStations,
			URL:     PollingStationsURL,
			Format:  "parquet",
			Filters: []Filter{{Column: "code_commune", Values: []string{departmentCode + communeCode}}},
		},
	}
	m := make(map[string]Source, len(sources))
	for _, s := range sources {
		m[s.Name] = s
	}
	return &Catalog{sources: m}
}

// Get returns the source called name
func (c *Catalog) Get(name string) (Source, error) {
	s, ok := c.sources[name]
	if !ok {
		return Source{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return s, nil
}

// Names lists the catalog entries in ascending order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sources lists the catalog entries in name order
func (c *Catalog) Sources() []Source {
	out := make([]Source, 0, len(c.sources))
	for _, name := range c.Names() {
		out = append(out, c.sources[name])
	}
	return out
}

// WithOverrides returns a copy of the catalog where each override replaces
// the URL, format or filters of the source with the same name. Unknown names
// are added as new sources.
func (c *Catalog) WithOverrides(overrides []Source) (*Catalog, error) {
	m := make(map[string]Source, len(c.sources))
	for k, v := range c.sources {
		m[k] = v
	}
	for _, o := range overrides {
		base, ok := m[o.Name]
		if !ok {
			base = Source{Name: o.Name}
		}
		if o.URL != "" {
			base.URL = o.URL
		}
		if o.Format != "" {
			base.Format = o.Format
		}
		if o.Filters != nil {
			base.Filters = o.Filters
		}
		if err := base.Validate(); err != nil {
			return nil, err
		}
		m[o.Name] = base
	}
	return &Catalog{sources: m}, nil
}
