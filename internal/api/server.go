// Package api exposes the simulation's command and observation surfaces
// over HTTP: JSON snapshots for the rendering/UI layers, command
// endpoints for the operator, and a websocket event stream.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/subseaworks/corridor-simulator/core"
	"github.com/subseaworks/corridor-simulator/internal/logging"
	"github.com/subseaworks/corridor-simulator/internal/observability"
	"github.com/subseaworks/corridor-simulator/model"
)

// Server wires handlers onto a gin router over one Simulation.
type Server struct {
	sim *core.Simulation
	log logging.Logger

	metricsHandler http.Handler
	apiMetrics     *observability.APICollector
}

// Option customises Server construction.
type Option func(*Server)

// WithMetricsHandler mounts a /metrics endpoint.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithAPIMetrics installs request count/latency middleware.
func WithAPIMetrics(c *observability.APICollector) Option {
	return func(s *Server) { s.apiMetrics = c }
}

// NewServer constructs the API server and registers the custom
// validations used by command payloads.
func NewServer(sim *core.Simulation, log logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{sim: sim, log: log}
	for _, opt := range opts {
		opt(s)
	}
	registerValidations()
	return s
}

// registerValidations adds hazard kind/severity checks to gin's binding
// validator so malformed payloads fail before reaching the core.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("hazardkind", func(fl validator.FieldLevel) bool {
		_, err := model.ParseHazardKind(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("hazardseverity", func(fl validator.FieldLevel) bool {
		_, err := model.ParseHazardSeverity(fl.Field().String())
		return err == nil
	})
}

// Router builds the configured gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("corridor-api"))
	if s.apiMetrics != nil {
		r.Use(s.apiMetrics.Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
	})
	if s.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/hazards", s.injectHazard)
		v1.GET("/hazards", s.listHazards)

		v1.POST("/investigations", s.dispatchInvestigation)

		v1.GET("/segments/:asset", s.listSegments)
		v1.GET("/sectors", s.listSectors)

		v1.GET("/auvs", s.listAUVs)
		v1.POST("/auvs/:id/abort", s.abortMission)
		v1.POST("/auvs/:id/recover", s.recoverAUV)

		v1.GET("/approvals", s.listApprovals)
		v1.POST("/approvals/:id/approve", s.approveRepair)
		v1.POST("/approvals/:id/escalate", s.escalateShutdown)
		v1.POST("/approvals/:id/override", s.manualOverride)

		v1.GET("/clock", s.getClock)
		v1.PUT("/clock/dilation", s.setDilation)

		v1.GET("/events", s.listEvents)
		v1.GET("/renderer/dirty", s.drainDirty)
	}

	r.GET("/ws/events", s.streamEvents)
	return r
}
