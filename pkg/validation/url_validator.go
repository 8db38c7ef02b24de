package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

// ImageRefValidator checks references to remote meal photos before anything is fetched.
// Supported forms: http(s)://host/path, azblob://container/blob, s3://bucket/key.
type ImageRefValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewImageRefValidator creates a validator accepting every supported scheme and host
func NewImageRefValidator() *ImageRefValidator {
	return &ImageRefValidator{
		allowedSchemes: []string{"http", "https", "azblob", "s3"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewImageRefValidatorWithOptions creates a validator with custom scheme and host lists
func NewImageRefValidatorWithOptions(schemes []string, hosts []string) *ImageRefValidator {
	return &ImageRefValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageRef validates a reference and returns the parsed URL
func (v *ImageRefValidator) ValidateImageRef(ref string) (*url.URL, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, apperrors.NewValidationError("image reference cannot be empty", nil)
	}

	parsedURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid image reference format", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if !v.isSchemeAllowed(scheme) {
		return nil, apperrors.NewValidationError("image reference scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return nil, apperrors.NewValidationError("image reference must name a host, container or bucket", nil)
	}

	if (scheme == "azblob" || scheme == "s3") && strings.Trim(parsedURL.Path, "/") == "" {
		return nil, apperrors.NewValidationError("image reference must name an object", nil)
	}

	if !v.isHostAllowed(parsedURL.Host) {
		return nil, apperrors.NewValidationError("image reference host not allowed", nil)
	}

	return parsedURL, nil
}

func (v *ImageRefValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *ImageRefValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
