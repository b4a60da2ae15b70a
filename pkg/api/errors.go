package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"election_dashboard/pkg/catalog"
	"election_dashboard/pkg/charts"
	"election_dashboard/pkg/dashboard"
	"election_dashboard/pkg/election"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps a domain error to an HTTP status and a short error code
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, election.ErrMalformedIdentifier),
		errors.Is(err, election.ErrUnknownElectionType),
		errors.Is(err, charts.ErrUnknownKind),
		errors.Is(err, charts.ErrUnknownFormat):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, dashboard.ErrElectionNotFound),
		errors.Is(err, catalog.ErrUnknownDataset):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, charts.ErrEmptyChart):
		return http.StatusUnprocessableEntity, "empty_chart"
	case errors.Is(err, dashboard.ErrRefreshInProgress):
		return http.StatusConflict, "refresh_in_progress"
	case errors.Is(err, dashboard.ErrDatasetUnavailable),
		errors.Is(err, dashboard.ErrNotReady):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
