package storage

import (
	"context"
	"errors"
	"image"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

// S3Options holds what is needed to reach a bucket
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint for MinIO and friends; forces path-style addressing
	AccessKeyID     string
	SecretAccessKey string
}

// S3Fetcher reads photos referenced as s3://<bucket>/<key>
type S3Fetcher struct {
	client   *s3.Client
	maxBytes int64
}

// NewS3Fetcher builds a client from the default AWS chain, overridden by static keys when given
func NewS3Fetcher(ctx context.Context, opts S3Options) (*S3Fetcher, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Fetcher{client: client, maxBytes: DefaultHTTPFetcherOptions().MaxBytes}, nil
}

func (s *S3Fetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	bucket, key, err := splitObjectRef(ref, SchemeS3)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err)
	}
	defer out.Body.Close()

	return decodeCapped(out.Body, s.maxBytes)
}

func classifyS3Error(err error) error {
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return apperrors.NewNotFoundError("object not found", err)
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch status := respErr.HTTPStatusCode(); {
		case status == 404:
			return apperrors.NewNotFoundError("object not found", err)
		case status >= 400 && status < 500:
			return apperrors.NewValidationError("object storage rejected the request", err)
		}
	}
	return apperrors.NewTransportError("object download failed", err)
}
