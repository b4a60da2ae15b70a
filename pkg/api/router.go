// Package api exposes the dashboard over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"election_dashboard/pkg/utils"
)

// Options configures the router
type Options struct {
	CORSOrigins    []string
	RefreshTimeout time.Duration
	Debug          bool
}

// NewRouter wires the dashboard routes
func NewRouter(d Dashboard, tasks TaskLister, opts Options, logger *zap.Logger) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 5 * time.Minute
	}

	r := gin.New()
	r.Use(gin.CustomRecoveryWithWriter(utils.NewLogWriter(logger, zapcore.ErrorLevel), func(c *gin.Context, recovered interface{}) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal server error"})
	}))
	r.Use(RequestID())
	r.Use(Logger(logger))

	corsConfig := cors.Config{
		AllowOrigins:  opts.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	h := NewHandler(d, tasks, opts.RefreshTimeout, logger)

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/status", h.Status)
		v1.POST("/refresh", h.Refresh)

		elections := v1.Group("/elections")
		{
			elections.GET("", h.ListElections)
			elections.GET("/:id", h.GetElection)
			elections.GET("/:id/totals", h.GetTotals)
			elections.GET("/:id/participation", h.GetParticipation)
			elections.GET("/:id/candidates", h.GetCandidates)
			elections.GET("/:id/nuances", h.GetNuances)
			elections.GET("/:id/sexes", h.GetSexes)
			elections.GET("/:id/charts/:kind", h.GetChart)
		}

		datasets := v1.Group("/datasets")
		{
			datasets.GET("", h.ListDatasets)
			datasets.GET("/:name", h.GetDataset)
		}
	}

	return r
}
