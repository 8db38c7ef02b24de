package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/nutrivision-go/internal/codec"
	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
	"github.com/anime-shed/nutrivision-go/internal/logger"
)

// ImageFetcher loads a meal photo from a remote reference
type ImageFetcher interface {
	FetchImage(ctx context.Context, ref string) (image.Image, error)
}

// HTTPFetcherOptions tunes the HTTP fetcher
type HTTPFetcherOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration // multiplied by the attempt number
	MaxBytes    int64
}

// DefaultHTTPFetcherOptions returns the options used by the API server
func DefaultHTTPFetcherOptions() HTTPFetcherOptions {
	return HTTPFetcherOptions{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		Backoff:     time.Second,
		MaxBytes:    20 << 20,
	}
}

// HTTPImageFetcher downloads photos over http(s) with a small retry budget
type HTTPImageFetcher struct {
	client  *http.Client
	options HTTPFetcherOptions
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(options HTTPFetcherOptions) *HTTPImageFetcher {
	defaults := DefaultHTTPFetcherOptions()
	if options.Timeout <= 0 {
		options.Timeout = defaults.Timeout
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = defaults.MaxAttempts
	}
	if options.Backoff < 0 {
		options.Backoff = 0
	}
	if options.MaxBytes <= 0 {
		options.MaxBytes = defaults.MaxBytes
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   options.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		options: options,
	}
}

// FetchImage downloads and decodes ref. 4xx responses are not retried.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, */*")
	req.Header.Set("User-Agent", "NutriVision/1.0")

	var lastErr error
	for attempt := 0; attempt < h.options.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := h.wait(ctx, attempt); err != nil {
				return nil, apperrors.NewTransportError("image fetch cancelled", err)
			}
		}

		img, retry, err := h.try(req)
		if err == nil {
			return img, nil
		}
		lastErr = err

		logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"retry":   retry,
		}).WithError(err).Warn("Image fetch attempt failed")

		if !retry {
			return nil, err
		}
	}

	return nil, apperrors.NewTransportError(
		fmt.Sprintf("failed to fetch image after %d attempts", h.options.MaxAttempts), lastErr)
}

// try performs one request. retry is true for network errors and 5xx responses.
func (h *HTTPImageFetcher) try(req *http.Request) (img image.Image, retry bool, err error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, apperrors.NewNotFoundError("image not found at source",
			fmt.Errorf("client error: status code %d", resp.StatusCode))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, apperrors.NewValidationError("image source rejected the request",
			fmt.Errorf("client error: status code %d", resp.StatusCode))
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	}

	img, err = decodeCapped(resp.Body, h.options.MaxBytes)
	if err != nil {
		return nil, apperrors.IsTransport(err), err
	}
	return img, false, nil
}

// decodeCapped decodes a photo body of at most maxBytes; anything larger is a size error
func decodeCapped(body io.Reader, maxBytes int64) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return nil, apperrors.NewTransportError("failed to read image body", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.NewImageTooLargeError(maxBytes)
	}
	img, _, err := codec.Decode(bytes.NewReader(data))
	return img, err
}

func (h *HTTPImageFetcher) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * h.options.Backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
