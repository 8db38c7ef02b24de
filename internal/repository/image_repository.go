package repository

import (
	"context"
	"net/url"
	"strings"

	"github.com/anime-shed/nutrivision-go/internal/storage"
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

// SourceImageRepository implements ImageRepository on top of an image source
type SourceImageRepository struct {
	fetcher   storage.ImageFetcher
	validator *validation.ImageRefValidator
}

// NewSourceImageRepository creates a repository that checks refs before fetching them
func NewSourceImageRepository(fetcher storage.ImageFetcher, validator *validation.ImageRefValidator) ImageRepository {
	if validator == nil {
		validator = validation.NewImageRefValidator()
	}
	return &SourceImageRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

// FetchImage retrieves the photo a reference points at
func (r *SourceImageRepository) FetchImage(ctx context.Context, ref string) (*RemoteImage, error) {
	parsed, err := r.ValidateImageRef(ref)
	if err != nil {
		return nil, err
	}

	// sources parse the ref as given and unescape object keys themselves
	ref = strings.TrimSpace(ref)
	img, err := r.fetcher.FetchImage(ctx, ref)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &RemoteImage{
		Image:  img,
		Ref:    ref,
		Scheme: strings.ToLower(parsed.Scheme),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// ValidateImageRef validates if the provided reference is acceptable
func (r *SourceImageRepository) ValidateImageRef(ref string) (*url.URL, error) {
	return r.validator.ValidateImageRef(ref)
}
