package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"retraction-check/config"
)

// ObjectAPI is the subset of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ExportArchive stores CSV exports under a key prefix and keeps only the
// newest ones.
type ExportArchive struct {
	client  ObjectAPI
	baseURL string
	bucket  string
	prefix  string
	keep    int
	logger  *zap.Logger
}

// NewExportArchive creates an archive writing to the configured bucket.
func NewExportArchive(client ObjectAPI, cfg *config.Config, logger *zap.Logger) *ExportArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportArchive{
		client:  client,
		baseURL: strings.TrimRight(cfg.ExportS3URL, "/"),
		bucket:  cfg.ExportS3Bucket,
		prefix:  cfg.ExportS3Prefix,
		keep:    cfg.ExportKeep,
		logger:  logger,
	}
}

// ObjectName is the archive name of the export produced by run runID at t.
func ObjectName(runID string, t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", t.UTC().Format("20060102T150405Z"), runID)
}

// Upload stores data as prefix+name and returns its link.
func (a *ExportArchive) Upload(ctx context.Context, name string, data []byte) (string, error) {
	key := a.prefix + name
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	a.logger.Info("Export archived", zap.String("key", key), zap.Int("bytes", len(data)))
	return fmt.Sprintf("%s/%s/%s", a.baseURL, a.bucket, key), nil
}

// Rotate deletes all but the newest keep exports under the prefix and
// returns how many were removed. A keep of zero or less disables rotation.
func (a *ExportArchive) Rotate(ctx context.Context) (int, error) {
	if a.keep <= 0 {
		return 0, nil
	}

	var objects []types.Object
	pages := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("list exports: %w", err)
		}
		objects = append(objects, page.Contents...)
	}

	if len(objects) <= a.keep {
		return 0, nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	var errs []error
	deleted := 0
	for _, obj := range objects[a.keep:] {
		key := aws.ToString(obj.Key)
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			a.logger.Warn("Failed to delete old export", zap.String("key", key), zap.Error(err))
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			continue
		}
		deleted++
		a.logger.Info("Deleted old export", zap.String("key", key))
	}
	return deleted, errors.Join(errs...)
}
