// Package archive uploads the run artifacts (raw payload and output table)
// to S3 for retention beyond the overwrite-per-run lifecycle on disk.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "indexflow/config"
	"indexflow/logger"
)

type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Log
}

// NewS3Archiver configures the AWS SDK and validates credentials, the same
// way the collector configures its other AWS clients.
func NewS3Archiver(ctx context.Context, cfg *appconfig.Config) (*S3Archiver, error) {
	log := logger.GetLogger()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("archive").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("s3 archiver initialized")

	return &S3Archiver{
		client: client,
		bucket: cfg.Storage.S3.Bucket,
		prefix: cfg.Storage.S3.Prefix,
		log:    log,
	}, nil
}

// Upload stores each artifact file under a date-partitioned, run-scoped key.
// The first failure aborts the batch and is returned to the caller, which
// treats archival as best-effort.
func (a *S3Archiver) Upload(ctx context.Context, runTime time.Time, runID string, paths ...string) error {
	log := a.log.WithComponent("archive").WithFields(logger.Fields{"run_id": runID})

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read artifact %s: %w", p, err)
		}

		key := objectKey(a.prefix, runTime, runID, p)
		if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/octet-stream"),
		}); err != nil {
			return fmt.Errorf("failed to upload to S3 bucket %s: %w", a.bucket, err)
		}

		log.WithFields(logger.Fields{"key": key, "size": len(data)}).Info("artifact archived")
	}

	return nil
}

// objectKey builds a date-partitioned object key:
// <prefix>/<yyyy>/<mm>/<dd>/<runID>_<filename>.
func objectKey(prefix string, ts time.Time, runID, artifactPath string) string {
	datePath := fmt.Sprintf("%04d/%02d/%02d", ts.Year(), ts.Month(), ts.Day())
	name := fmt.Sprintf("%s_%s", runID, filepath.Base(artifactPath))
	if prefix == "" {
		return path.Join(datePath, name)
	}
	return path.Join(prefix, datePath, name)
}
