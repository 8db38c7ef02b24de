package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/nutrivision-go/internal/analyzer"
	"github.com/anime-shed/nutrivision-go/internal/config"
	"github.com/anime-shed/nutrivision-go/internal/factory"
	"github.com/anime-shed/nutrivision-go/internal/inference"
	"github.com/anime-shed/nutrivision-go/internal/logger"
	"github.com/anime-shed/nutrivision-go/internal/observer"
	"github.com/anime-shed/nutrivision-go/internal/repository"
	"github.com/anime-shed/nutrivision-go/internal/service"
	"github.com/anime-shed/nutrivision-go/internal/storage"
	"github.com/anime-shed/nutrivision-go/internal/strategy"
	"github.com/anime-shed/nutrivision-go/internal/transport"
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config              *config.Config
	client              *inference.Client
	sources             *storage.SourceRouter
	imageRepository     repository.ImageRepository
	inspector           analyzer.PhotoInspector
	presets             *strategy.Registry
	events              *observer.EventPublisher
	metrics             *observer.MetricsObserver
	mealAnalysisService service.MealAnalysisService
	handler             http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	factories := factory.NewComponentFactory(cfg)

	sources, err := factories.StorageFactory.CreateSourceRouter(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to configure image sources: %w", err)
	}

	inspector, err := factories.InspectorFactory.CreateInspector(factory.InspectorType(cfg.QualityProfile))
	if err != nil {
		return nil, fmt.Errorf("failed to create photo inspector: %w", err)
	}

	// Build dependency graph
	client := inference.NewClient(inference.SettingsFromConfig(cfg))
	imageRepository := repository.NewSourceImageRepository(sources, validation.NewImageRefValidator())
	presets := strategy.NewRegistry()

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	mealAnalysisService := service.NewMealAnalysisService(
		client,
		imageRepository,
		inspector,
		presets,
		events,
		cfg.DefaultTemperature,
	)
	handler := transport.NewHandler(mealAnalysisService, metrics, sources.Schemes(), cfg)

	return &Container{
		config:              cfg,
		client:              client,
		sources:             sources,
		imageRepository:     imageRepository,
		inspector:           inspector,
		presets:             presets,
		events:              events,
		metrics:             metrics,
		mealAnalysisService: mealAnalysisService,
		handler:             handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the meal analysis service
func (c *Container) Service() service.MealAnalysisService {
	return c.mealAnalysisService
}

// Metrics returns the in-process analysis counters
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}
