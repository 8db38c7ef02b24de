package factory

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/nutrivision-go/internal/analyzer"
	"github.com/anime-shed/nutrivision-go/internal/config"
	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
	"github.com/anime-shed/nutrivision-go/internal/logger"
	"github.com/anime-shed/nutrivision-go/internal/storage"
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

// InspectorType represents different photo quality profiles
type InspectorType string

const (
	// StandardInspector uses thresholds tuned for phone photos
	StandardInspector InspectorType = "standard"
	// StrictInspector flags softer and smaller photos too
	StrictInspector InspectorType = "strict"
)

// StorageType represents different types of image sources
type StorageType string

const (
	// HTTPStorage for http(s) image URLs
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// S3Storage for S3 compatible object storage
	S3Storage StorageType = "s3"
)

// InspectorFactory creates photo inspectors
type InspectorFactory interface {
	CreateInspector(inspectorType InspectorType) (analyzer.PhotoInspector, error)
}

// StorageFactory creates image sources
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.ImageFetcher, error)
	CreateSourceRouter(ctx context.Context) (*storage.SourceRouter, error)
}

// inspectorFactory implements InspectorFactory
type inspectorFactory struct{}

// NewInspectorFactory creates a new inspector factory
func NewInspectorFactory() InspectorFactory {
	return &inspectorFactory{}
}

// CreateInspector creates an inspector for the given profile
func (f *inspectorFactory) CreateInspector(inspectorType InspectorType) (analyzer.PhotoInspector, error) {
	switch inspectorType {
	case StandardInspector, "":
		return analyzer.NewPhotoInspector(), nil
	case StrictInspector:
		thresholds := validation.DefaultQualityThresholds()
		thresholds.MinLaplacianVariance = 100.0
		thresholds.MinWidth = 512
		thresholds.MinHeight = 512
		return analyzer.NewPhotoInspectorWithValidator(validation.NewQualityValidatorWithThresholds(thresholds)), nil
	default:
		return nil, fmt.Errorf("unsupported inspector type: %s", inspectorType)
	}
}

// storageFactory implements StorageFactory from the loaded configuration
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates an image source of the given type
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		options := storage.DefaultHTTPFetcherOptions()
		options.Timeout = f.cfg.ImageFetchTimeout
		options.MaxBytes = f.cfg.MaxRequestBodySize
		return storage.NewHTTPImageFetcher(options), nil
	case AzureStorage:
		if !f.cfg.Azure.Enabled() {
			return nil, apperrors.NewConfigurationError("azure storage is not configured", nil)
		}
		fetcher, err := storage.NewAzureBlobFetcher(f.cfg.Azure.AccountName, f.cfg.Azure.AccountKey, f.cfg.Azure.ServiceURL)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case S3Storage:
		if !f.cfg.S3.Enabled() {
			return nil, apperrors.NewConfigurationError("s3 storage is not configured", nil)
		}
		fetcher, err := storage.NewS3Fetcher(ctx, storage.S3Options{
			Region:          f.cfg.S3.Region,
			Endpoint:        f.cfg.S3.Endpoint,
			AccessKeyID:     f.cfg.S3.AccessKeyID,
			SecretAccessKey: f.cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateSourceRouter registers http(s) plus every configured object store
func (f *storageFactory) CreateSourceRouter(ctx context.Context) (*storage.SourceRouter, error) {
	router := storage.NewSourceRouter()

	httpFetcher, err := f.CreateStorage(ctx, HTTPStorage)
	if err != nil {
		return nil, err
	}
	router.Register(httpFetcher, storage.SchemeHTTP, storage.SchemeHTTPS)

	if f.cfg.Azure.Enabled() {
		azureFetcher, err := f.CreateStorage(ctx, AzureStorage)
		if err != nil {
			return nil, err
		}
		router.Register(azureFetcher, storage.SchemeAzureBlob)
	}

	if f.cfg.S3.Enabled() {
		s3Fetcher, err := f.CreateStorage(ctx, S3Storage)
		if err != nil {
			return nil, err
		}
		router.Register(s3Fetcher, storage.SchemeS3)
	}

	logger.WithFields(logrus.Fields{
		"schemes": router.Schemes(),
	}).Info("Image sources configured")

	return router, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	InspectorFactory InspectorFactory
	StorageFactory   StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		InspectorFactory: NewInspectorFactory(),
		StorageFactory:   NewStorageFactory(cfg),
	}
}
