package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/amawa/backend/config"
	"github.com/amawa/backend/internal/api"
	"github.com/amawa/backend/internal/cache"
	"github.com/amawa/backend/internal/database"
	"github.com/amawa/backend/internal/messaging"
	"github.com/amawa/backend/internal/metrics"
	"github.com/amawa/backend/internal/search"
	"github.com/amawa/backend/internal/services"
	"github.com/amawa/backend/internal/tracing"
	"github.com/amawa/backend/internal/whatsapp"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for clients, maintenances, inventory and work orders`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}

	deps, err := buildDependencies(cfg, db)
	if err != nil {
		return err
	}
	defer deps.close()

	server := api.NewServer(cfg, deps.services(), deps.metrics, deps.tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

// dependencies holds the shared infrastructure both commands build on
type dependencies struct {
	cfg           config.Config
	redisCache    *cache.RedisCache
	tracer        tracing.Tracer
	elastic       *search.ElasticClient
	bus           messaging.ServiceBusClient
	metrics       *metrics.Metrics
	clients       *services.ClientService
	technicians   *services.TechnicianService
	maintenances  *services.MaintenanceService
	inventory     *services.InventoryService
	mappings      *services.MappingService
	workOrders    *services.WorkOrderService
	incidents     *services.IncidentService
	notifications *services.NotificationService
}

func buildDependencies(cfg config.Config, db *gorm.DB) (*dependencies, error) {
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	metricsCollector := metrics.NewMetrics()

	var bus messaging.ServiceBusClient
	if cfg.Azure.QueueConnStr != "" {
		bus, err = messaging.NewServiceBusClient(cfg.Azure)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Service Bus client, notifications fall back to the retry job")
		}
	}

	metricsCollector.SetHealth("database", true)
	metricsCollector.SetHealth("cache", redisCache != nil)
	metricsCollector.SetHealth("search", elasticClient != nil)
	metricsCollector.SetHealth("queue", bus != nil)

	whatsappClient := whatsapp.NewClient(cfg.WhatsApp)

	mappings := services.NewMappingService(db, redisCache, cfg.Redis.MappingTTL)

	var queue services.QueuePublisher
	if bus != nil {
		queue = bus
	}
	notifications := services.NewNotificationService(db, queue, whatsappClient, metricsCollector)

	return &dependencies{
		cfg:           cfg,
		redisCache:    redisCache,
		tracer:        tracer,
		elastic:       elasticClient,
		bus:           bus,
		metrics:       metricsCollector,
		clients:       services.NewClientService(db, redisCache, elasticClient),
		technicians:   services.NewTechnicianService(db),
		maintenances:  services.NewMaintenanceService(db, mappings, tracer),
		inventory:     services.NewInventoryService(db, metricsCollector),
		mappings:      mappings,
		workOrders:    services.NewWorkOrderService(db, mappings, metricsCollector, tracer),
		incidents:     services.NewIncidentService(db, notifications),
		notifications: notifications,
	}, nil
}

func (d *dependencies) services() api.Services {
	return api.Services{
		Clients:       d.clients,
		Technicians:   d.technicians,
		Maintenances:  d.maintenances,
		Inventory:     d.inventory,
		Mappings:      d.mappings,
		WorkOrders:    d.workOrders,
		Incidents:     d.incidents,
		Notifications: d.notifications,
	}
}

func (d *dependencies) close() {
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Service Bus client")
		}
	}
	if d.redisCache != nil {
		if err := d.redisCache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis cache")
		}
	}
	if d.tracer != nil {
		d.tracer.Close()
	}
}
