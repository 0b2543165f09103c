package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Fetcher copies the dataset at loc into dir and returns the local path.
type Fetcher interface {
	Fetch(ctx context.Context, loc Locator, dir string) (string, error)
}

// LocalFetcher copies a file already on disk.
type LocalFetcher struct{}

func (LocalFetcher) Fetch(ctx context.Context, loc Locator, dir string) (string, error) {
	if loc.Remote() {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: fmt.Errorf("not a local location")}
	}

	src, err := os.Open(loc.Path)
	if err != nil {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}
	defer src.Close()

	return copyInto(ctx, src, loc, dir)
}

// ObjectGetter is the subset of the S3 client the fetcher needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads objects from S3 or an S3-compatible endpoint.
type S3Fetcher struct {
	client ObjectGetter
}

func NewS3Fetcher(client ObjectGetter) *S3Fetcher {
	return &S3Fetcher{client: client}
}

func (f *S3Fetcher) Fetch(ctx context.Context, loc Locator, dir string) (string, error) {
	if !loc.Remote() {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: fmt.Errorf("not an s3 location")}
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}
	defer out.Body.Close()

	return copyInto(ctx, out.Body, loc, dir)
}

// S3Options configures the S3 client.
type S3Options struct {
	Region string
	// Endpoint points the client at an S3-compatible service; path-style
	// addressing is used when it is set.
	Endpoint string
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// FetcherFor returns the fetcher that serves loc.
func FetcherFor(ctx context.Context, loc Locator, opts S3Options) (Fetcher, error) {
	if !loc.Remote() {
		return LocalFetcher{}, nil
	}
	client, err := NewS3Client(ctx, opts)
	if err != nil {
		return nil, &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}
	return NewS3Fetcher(client), nil
}

// copyInto writes r to dir/<base name> through a temp file and rename. A
// failed download leaves nothing at the destination.
func copyInto(ctx context.Context, r io.Reader, loc Locator, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}

	dest := filepath.Join(dir, loc.BaseName())
	tmp, err := os.CreateTemp(dir, ".tmp-fetch-*")
	if err != nil {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", &StorageError{Op: "fetch", Location: loc.String(), Err: err}
	}

	return dest, nil
}
