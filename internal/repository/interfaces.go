package repository

import (
	"context"
	"image"
	"net/url"
)

// ImageRepository defines the interface for loading meal photos from remote references
type ImageRepository interface {
	// FetchImage validates ref and retrieves the photo it points at
	FetchImage(ctx context.Context, ref string) (*RemoteImage, error)

	// ValidateImageRef validates if the provided reference is acceptable
	ValidateImageRef(ref string) (*url.URL, error)
}

// RemoteImage is a fetched photo plus where it came from
type RemoteImage struct {
	Image  image.Image
	Ref    string
	Scheme string
	Width  int
	Height int
}
