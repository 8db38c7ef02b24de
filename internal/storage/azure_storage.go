package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

// AzureBlobFetcher reads photos referenced as azblob://<container>/<blob>
type AzureBlobFetcher struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureBlobFetcher connects with a shared key. An empty serviceURL means the public endpoint.
func NewAzureBlobFetcher(accountName, accountKey, serviceURL string) (*AzureBlobFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid Azure storage credentials", err)
	}

	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to create Azure blob client", err)
	}

	return &AzureBlobFetcher{client: client, maxBytes: DefaultHTTPFetcherOptions().MaxBytes}, nil
}

func (s *AzureBlobFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	container, blob, err := splitObjectRef(ref, SchemeAzureBlob)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, apperrors.NewNotFoundError("blob not found", err)
		}
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode >= 400 && respErr.StatusCode < 500 {
			return nil, apperrors.NewValidationError("blob storage rejected the request", err)
		}
		return nil, apperrors.NewTransportError("blob download failed", err)
	}
	defer resp.Body.Close()

	return decodeCapped(resp.Body, s.maxBytes)
}

// splitObjectRef returns the container/bucket and the unescaped object key of a scheme://container/key ref
func splitObjectRef(ref, scheme string) (string, string, error) {
	prefix := scheme + "://"
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", "", apperrors.NewValidationError("invalid object reference", err)
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return "", "", apperrors.NewValidationError(fmt.Sprintf("expected a %s reference", prefix), nil)
	}

	key := strings.TrimLeft(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", apperrors.NewValidationError(
			fmt.Sprintf("reference must look like %s<container>/<object>", prefix), nil)
	}
	return u.Host, key, nil
}
