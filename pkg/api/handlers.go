package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"election_dashboard/pkg/charts"
	"election_dashboard/pkg/dashboard"
	"election_dashboard/pkg/data"
	"election_dashboard/pkg/election"
	"election_dashboard/pkg/scheduler"
	"election_dashboard/pkg/utils"
)

// Dashboard is the query surface served over HTTP
type Dashboard interface {
	Refresh(ctx context.Context) error
	Status() dashboard.Status
	ListElections() ([]dashboard.ElectionSummary, error)
	GetElection(raw string) (dashboard.ElectionDetail, error)
	GetTotals(raw string) (election.Totals, error)
	GetParticipation(raw string) (dashboard.Participation, error)
	GetCandidateBreakdown(raw string) (dashboard.CandidateBreakdown, error)
	GetNuanceBreakdown(raw string) (dashboard.GroupBreakdown, error)
	GetSexBreakdown(raw string) (dashboard.GroupBreakdown, error)
	DatasetView(name, raw string) (data.View, error)
	Datasets() []dashboard.DatasetStatus
}

// TaskLister exposes the scheduled tasks in the status report
type TaskLister interface {
	ListTasks() []scheduler.Task
	GetSchedulerStats() scheduler.SchedulerStats
}

// StatusResponse is the body of GET /api/v1/status
type StatusResponse struct {
	dashboard.Status
	Tasks []scheduler.Task          `json:"tasks,omitempty"`
	Stats *scheduler.SchedulerStats `json:"scheduler,omitempty"`
}

// Handler serves the dashboard endpoints
type Handler struct {
	dashboard      Dashboard
	tasks          TaskLister
	refreshTimeout time.Duration
	logger         *zap.Logger
}

// NewHandler creates a handler. tasks may be nil.
func NewHandler(d Dashboard, tasks TaskLister, refreshTimeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		dashboard:      d,
		tasks:          tasks,
		refreshTimeout: refreshTimeout,
		logger:         logger,
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "ready": h.dashboard.Status().Ready})
}

// Status reports the loaded snapshot and the scheduled tasks
func (h *Handler) Status(c *gin.Context) {
	resp := StatusResponse{Status: h.dashboard.Status()}
	if h.tasks != nil {
		stats := h.tasks.GetSchedulerStats()
		resp.Tasks = h.tasks.ListTasks()
		resp.Stats = &stats
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh reloads the datasets. With ?wait=true the request blocks until
// the refresh ends, otherwise it runs in the background.
func (h *Handler) Refresh(c *gin.Context) {
	if c.Query("wait") == "true" {
		if err := h.dashboard.Refresh(c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, h.dashboard.Status())
		return
	}

	if h.dashboard.Status().Refreshing {
		abortWithError(c, dashboard.ErrRefreshInProgress)
		return
	}

	requestID := c.GetString(requestIDKey)
	utils.SafeGo(h.logger, func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.refreshTimeout)
		defer cancel()
		if err := h.dashboard.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrRefreshInProgress) {
			h.logger.Error("Background refresh failed",
				zap.String("requestID", requestID),
				zap.Error(err))
		}
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// ListElections returns the selector entries
func (h *Handler) ListElections(c *gin.Context) {
	elections, err := h.dashboard.ListElections()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"elections": elections, "total": len(elections)})
}

// GetElection describes one election
func (h *Handler) GetElection(c *gin.Context) {
	respond(c, func() (interface{}, error) { return h.dashboard.GetElection(c.Param("id")) })
}

// GetTotals returns the summed participation figures
func (h *Handler) GetTotals(c *gin.Context) {
	respond(c, func() (interface{}, error) { return h.dashboard.GetTotals(c.Param("id")) })
}

// GetParticipation returns the turnout section
func (h *Handler) GetParticipation(c *gin.Context) {
	respond(c, func() (interface{}, error) { return h.dashboard.GetParticipation(c.Param("id")) })
}

// GetCandidates returns the candidate ranking
func (h *Handler) GetCandidates(c *gin.Context) {
	respond(c, func() (interface{}, error) { return h.dashboard.GetCandidateBreakdown(c.Param("id")) })
}

// GetNuances returns the votes per nuance
func (h *Handler) GetNuances(c *gin.Context) {
	respond(c, func() (interface{}, error) { return h.dashboard.GetNuanceBreakdown(c.Param("id")) })
}

// GetSexes returns the votes per candidate sex
func (h *Handler) GetSexes(c *gin.Context) {
	respond(c, func() (interface{}, error) { return h.dashboard.GetSexBreakdown(c.Param("id")) })
}

// GetChart renders a breakdown as an image
func (h *Handler) GetChart(c *gin.Context) {
	kind, err := charts.ParseKind(c.Param("kind"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	format, err := charts.ParseFormat(c.Query("format"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	id := c.Param("id")
	var buf bytes.Buffer
	switch kind {
	case charts.KindCandidates:
		var b dashboard.CandidateBreakdown
		if b, err = h.dashboard.GetCandidateBreakdown(id); err == nil {
			err = charts.Candidates(&buf, b, format)
		}
	case charts.KindNuances:
		var b dashboard.GroupBreakdown
		if b, err = h.dashboard.GetNuanceBreakdown(id); err == nil {
			err = charts.Nuances(&buf, b, format)
		}
	case charts.KindSexes:
		var b dashboard.GroupBreakdown
		if b, err = h.dashboard.GetSexBreakdown(id); err == nil {
			err = charts.Sexes(&buf, b, format)
		}
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// ListDatasets reports the load outcome of every dataset
func (h *Handler) ListDatasets(c *gin.Context) {
	datasets := h.dashboard.Datasets()
	c.JSON(http.StatusOK, gin.H{"datasets": datasets, "total": len(datasets)})
}

// GetDataset returns the display view of one dataset, optionally restricted
// to ?election=
func (h *Handler) GetDataset(c *gin.Context) {
	respond(c, func() (interface{}, error) {
		return h.dashboard.DatasetView(c.Param("name"), c.Query("election"))
	})
}

func respond(c *gin.Context, fn func() (interface{}, error)) {
	body, err := fn()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}
