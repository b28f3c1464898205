package storage

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"retraction-check/config"
)

// ErrArchiveDisabled is returned when the EXPORT_S3_* settings are incomplete.
var ErrArchiveDisabled = errors.New("export archive is not configured")

// OpenExportArchive connects to the configured S3-compatible bucket. Object
// keys are addressed path style so links read endpoint/bucket/key.
func OpenExportArchive(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ExportArchive, error) {
	if !cfg.ExportArchiveEnabled() {
		return nil, ErrArchiveDisabled
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.ExportS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ExportS3Key, cfg.ExportS3Secret, "")),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.ExportS3URL)
		o.UsePathStyle = true
	})
	return NewExportArchive(client, cfg, logger), nil
}
