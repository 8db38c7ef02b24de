package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
	"github.com/anime-shed/nutrivision-go/internal/logger"
)

const (
	SchemeHTTP      = "http"
	SchemeHTTPS     = "https"
	SchemeAzureBlob = "azblob"
	SchemeS3        = "s3"
)

// SourceRouter dispatches a reference to the fetcher registered for its scheme
type SourceRouter struct {
	fetchers map[string]ImageFetcher
}

// NewSourceRouter creates an empty router
func NewSourceRouter() *SourceRouter {
	return &SourceRouter{fetchers: make(map[string]ImageFetcher)}
}

// Register binds fetcher to one or more schemes
func (r *SourceRouter) Register(fetcher ImageFetcher, schemes ...string) {
	for _, scheme := range schemes {
		r.fetchers[strings.ToLower(scheme)] = fetcher
	}
}

// Schemes lists the schemes that currently have a fetcher
func (r *SourceRouter) Schemes() []string {
	schemes := make([]string, 0, len(r.fetchers))
	for _, scheme := range []string{SchemeHTTP, SchemeHTTPS, SchemeAzureBlob, SchemeS3} {
		if _, ok := r.fetchers[scheme]; ok {
			schemes = append(schemes, scheme)
		}
	}
	return schemes
}

func (r *SourceRouter) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid image reference", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case SchemeHTTP, SchemeHTTPS, SchemeAzureBlob, SchemeS3:
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported image source scheme %q", parsed.Scheme), nil)
	}

	fetcher, ok := r.fetchers[scheme]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("image source %q is not configured", scheme), nil)
	}

	logger.WithFields(logrus.Fields{
		"scheme": scheme,
		"host":   parsed.Host,
	}).Debug("Fetching meal photo")

	return fetcher.FetchImage(ctx, ref)
}
