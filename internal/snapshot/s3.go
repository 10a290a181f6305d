// Package snapshot archives raw registry snapshots in S3-compatible object
// storage so a crawl can be shared between machines without refetching.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gyorilab/trialsynth/internal/util"
	"github.com/gyorilab/trialsynth/pkg/logger"
)

// Archive stores and retrieves snapshot files under a registry prefix.
type Archive struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Logger
}

// ArchiveParams contains configuration options for creating an Archive.
// Empty fields fall back to the AWS_* environment variables the deployment
// sets.
type ArchiveParams struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix namespaces keys per registry, e.g. "snapshots/clinicaltrials".
	Prefix string

	Log *logger.Logger
}

// NewArchive creates an S3-backed snapshot archive.
func NewArchive(ctx context.Context, params ArchiveParams) (*Archive, error) {
	region := orEnv(params.Region, "AWS_REGION")
	endpoint := orEnv(params.Endpoint, "AWS_ENDPOINT")
	accessKey := orEnv(params.AccessKey, "AWS_ACCESS_KEY")
	secretKey := orEnv(params.SecretKey, "AWS_SECRET_KEY")
	bucket := orEnv(params.Bucket, "AWS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("snapshot: bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithBaseEndpoint(endpoint),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	log := params.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: params.Prefix,
		log:    log,
	}, nil
}

// Upload stores the local snapshot file under its base name in the archive.
func (a *Archive) Upload(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("snapshot: open %s: %w", localPath, err)
	}
	defer file.Close()

	key := a.key(filepath.Base(localPath))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("snapshot: upload %s: %w", key, err)
	}
	a.log.Info("[snapshot] uploaded", "bucket", a.bucket, "key", key)
	return nil
}

// Download fetches the archived snapshot into localPath, creating parent
// directories as needed.
func (a *Archive) Download(ctx context.Context, name, localPath string) error {
	key := a.key(name)
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("snapshot: download %s: %w", key, err)
	}
	defer result.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir for %s: %w", localPath, err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", localPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, result.Body); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", localPath, err)
	}
	a.log.Info("[snapshot] downloaded", "bucket", a.bucket, "key", key, "path", localPath)
	return nil
}

// Downloader fetches one archived object into a local path. *Archive
// implements it.
type Downloader interface {
	Download(ctx context.Context, name, localPath string) error
}

// Seed restores the raw snapshot from the archive when no local copy exists,
// so a fresh machine can skip the initial crawl. A failed download is not
// fatal: the fetcher falls back to the live API.
func Seed(ctx context.Context, dl Downloader, localPath string, log *logger.Logger) {
	if _, err := os.Stat(localPath); err == nil {
		log.Debug("[snapshot] local snapshot present, skipping seed", "path", localPath)
		return
	}
	if err := dl.Download(ctx, filepath.Base(localPath), localPath); err != nil {
		log.Warn("[snapshot] could not seed snapshot from archive", "path", localPath, "error", err)
	}
}

func (a *Archive) key(name string) string {
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

func orEnv(value, envKey string) string {
	if value != "" {
		return value
	}
	return util.GetEnvString(envKey, "")
}
