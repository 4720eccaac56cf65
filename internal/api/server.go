package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/amawa/backend/config"
	"github.com/amawa/backend/internal/api/handlers"
	"github.com/amawa/backend/internal/metrics"
	"github.com/amawa/backend/internal/services"
	"github.com/amawa/backend/internal/tracing"
)

// Services groups the domain services exposed over HTTP
type Services struct {
	Clients       *services.ClientService
	Technicians   *services.TechnicianService
	Maintenances  *services.MaintenanceService
	Inventory     *services.InventoryService
	Mappings      *services.MappingService
	WorkOrders    *services.WorkOrderService
	Incidents     *services.IncidentService
	Notifications *services.NotificationService
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, svcs Services, metricsCollector *metrics.Metrics, tracer tracing.Tracer) *Server {
	server := &Server{
		config:   cfg,
		services: svcs,
		metrics:  metricsCollector,
		tracer:   tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	if app := s.tracer.App(); app != nil {
		router.Use(nrgin.Middleware(app))
	}

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	v1 := router.Group("/api/v1")
	v1.Use(JWTAuth(s.config.Auth))

	handlers.NewClientsHandler(s.services.Clients, s.tracer).RegisterRoutes(v1)
	handlers.NewTechniciansHandler(s.services.Technicians).RegisterRoutes(v1)
	handlers.NewMaintenancesHandler(s.services.Maintenances, s.tracer).RegisterRoutes(v1)
	handlers.NewInventoryHandler(s.services.Inventory).RegisterRoutes(v1)
	handlers.NewMappingsHandler(s.services.Mappings).RegisterRoutes(v1)
	handlers.NewWorkOrdersHandler(s.services.WorkOrders, s.tracer).RegisterRoutes(v1)
	handlers.NewIncidentsHandler(s.services.Incidents, s.services.Notifications).RegisterRoutes(v1)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
