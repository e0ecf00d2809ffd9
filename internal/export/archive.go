package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/config"
)

// Uploader is the part of manager.Uploader the archiver needs
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ArchiveResult tells the caller where the document was stored
type ArchiveResult struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Location string `json:"location,omitempty"`
	Bytes    int    `json:"bytes"`
}

// Archiver uploads export documents to an S3 bucket
type Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   *slog.Logger
}

// NewS3Archiver builds an uploader from the default AWS credential chain
func NewS3Archiver(ctx context.Context, cfg *config.ExportConfig, logger *slog.Logger) (*Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewArchiver(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewArchiver wraps an existing uploader
func NewArchiver(uploader Uploader, bucket, prefix string, logger *slog.Logger) *Archiver {
	return &Archiver{uploader: uploader, bucket: bucket, prefix: prefix, logger: logger}
}

// Key returns the object key for a document: <prefix>/<user>/<timestamp>.json
func (a *Archiver) Key(doc *Document) string {
	return path.Join(a.prefix, doc.User.ID, doc.ExportedAt.UTC().Format("20060102T150405Z")+".json")
}

// Archive uploads doc as JSON
func (a *Archiver) Archive(ctx context.Context, doc *Document) (*ArchiveResult, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "Archiver/Archive")
	defer span.End()

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	key := a.Key(doc)
	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading export: %w", err)
	}

	a.logger.Info("export archived", "bucket", a.bucket, "key", key, "bytes", len(body))
	return &ArchiveResult{Bucket: a.bucket, Key: key, Location: out.Location, Bytes: len(body)}, nil
}
