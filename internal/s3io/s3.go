// Package s3io provides utilities for working with S3, including presigning upload URLs.
package s3io

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignPut mints a presigned URL authorizing exactly one PUT of the given
// bucket+key+contentType. When unlimited is true the TTL bound is omitted and
// the presigner's default expiry applies; otherwise the URL expires after ttl.
func PresignPut(ctx context.Context, p Presigner, bucket, key, contentType string, meta map[string]string, ttl time.Duration, unlimited bool) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	}

	req, err := p.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		if !unlimited {
			o.Expires = ttl
		}
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
