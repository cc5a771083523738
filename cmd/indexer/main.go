// Package main finalizes an upload after S3 PUT by marking its record COMPLETE.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/shiftpoint/upload-signer/internal/awsutil"
	"github.com/shiftpoint/upload-signer/internal/config"
	"github.com/shiftpoint/upload-signer/internal/ddb"
	"github.com/shiftpoint/upload-signer/internal/models"
	"github.com/shiftpoint/upload-signer/internal/s3io"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// headObjectAPI is the slice of the S3 client the indexer needs.
type headObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// finalizer marks upload records complete.
type finalizer interface {
	UpsertComplete(ctx context.Context, subject, uploadID, s3Key string, size int64, etag, uploadedAt string) error
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env config.Env
	s3c headObjectAPI
	rec finalizer
}

// main initializes the app and starts the Lambda handler.
func main() {
	env := config.MustLoad()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	ddbc := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	app := &App{
		env: env,
		s3c: s3c,
		rec: &ddb.Repo{DB: ddbc, Table: env.Table},
	}
	lambda.Start(app.handler)
}

// handler processes S3 event records to finalize upload records.
// Per-record failures are logged and skipped, never failing the batch.
func (a *App) handler(ctx context.Context, ev events.S3Event) (any, error) {
	for _, rec := range ev.Records {
		if err := a.processS3Record(ctx, rec); err != nil {
			log.Printf("indexer: process error: %v", err)
		}
	}
	return nil, nil
}

// processS3Record handles a single S3 event record.
func (a *App) processS3Record(ctx context.Context, record events.S3EventRecord) error {
	bucket := record.S3.Bucket.Name
	keyEsc := record.S3.Object.Key
	key, _ := url.QueryUnescape(keyEsc)

	meta, err := a.getObjectMetadata(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("head %s: %w", key, err)
	}

	// Prefer metadata-sourced identity; fall back to key parsing.
	subject := strings.TrimSpace(meta.Meta["subject"])
	uploadID := strings.TrimSpace(meta.Meta["upload_id"])
	if subject == "" {
		if s2, _, _, ok := s3io.ParseKey(key); ok {
			subject = s2
		}
	}
	if uploadID == "" {
		return fmt.Errorf("no upload_id metadata on %q", key)
	}
	if subject == "" {
		subject = models.AnonymousSubject
	}

	if err := a.rec.UpsertComplete(ctx, subject, uploadID, key, meta.Size, meta.ETag, ddb.NowISO()); err != nil {
		return fmt.Errorf("finalize %s/%s: %w", subject, uploadID, err)
	}

	log.Printf("finalized %s/%s status=%s size=%d etag=%s",
		subject, uploadID, models.StatusComplete, meta.Size, meta.ETag)
	return nil
}

// objectMetadata holds S3 object metadata and user-defined metadata.
type objectMetadata struct {
	Size        int64
	ETag        string
	ContentType string
	Meta        map[string]string // lowercased user metadata
}

// getObjectMetadata fetches S3 object metadata including user-defined metadata.
func (a *App) getObjectMetadata(ctx context.Context, bucket, key string) (*objectMetadata, error) {
	ho, err := a.s3c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}

	m := &objectMetadata{
		Meta: make(map[string]string, len(ho.Metadata)),
	}
	if ho.ContentLength != nil {
		m.Size = *ho.ContentLength
	}
	if ho.ETag != nil {
		m.ETag = strings.Trim(*ho.ETag, "\"")
	}
	if ho.ContentType != nil {
		m.ContentType = strings.ToLower(*ho.ContentType)
	}
	// Normalize user metadata keys to lowercase
	for k, v := range ho.Metadata {
		m.Meta[strings.ToLower(k)] = v
	}

	return m, nil
}
