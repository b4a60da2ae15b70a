package loader

import (
	"errors"
	"fmt"

	"election_dashboard/pkg/catalog"
)

// Error variables for dataset loading
var (
	ErrUnsupportedDatasetFormat = errors.New("unsupported dataset format")
	ErrUnknownDataset           = catalog.ErrUnknownDataset
	ErrFetchFailed              = errors.New("fetch failed")
	ErrDecodeFailed             = errors.New("decode failed")

	// errTransient marks failures worth another attempt
	errTransient = errors.New("transient failure")
)

// StatusError is returned for non 2xx responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Is makes 5xx and 429 responses match the transient marker
func (e *StatusError) Is(target error) bool {
	if target != errTransient {
		return false
	}
	return e.StatusCode >= 500 || e.StatusCode == 429
}
