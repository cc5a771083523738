package s3io

import (
	"context"
	"errors"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePresigner records the presign call instead of signing.
type fakePresigner struct {
	input *s3.PutObjectInput
	opts  s3.PresignOptions
	err   error
}

func (f *fakePresigner) PresignPutObject(_ context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.input = params
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	f.opts = o
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3.amazonaws.com/" + *params.Key, Method: "PUT"}, nil
}

func TestPresignPutScopesTheCredential(t *testing.T) {
	p := &fakePresigner{}
	meta := map[string]string{"upload_id": "01H", "subject": "u1"}

	url, err := PresignPut(context.Background(), p, "bkt", "u1/20240115/photo.png", "image/png", meta, 300*time.Second, false)
	require.NoError(t, err)

	assert.Equal(t, "bkt", *p.input.Bucket)
	assert.Equal(t, "u1/20240115/photo.png", *p.input.Key)
	assert.Equal(t, "image/png", *p.input.ContentType)
	assert.Equal(t, meta, p.input.Metadata)
	assert.Equal(t, 300*time.Second, p.opts.Expires)
	assert.Contains(t, url, "u1/20240115/photo.png")
}

func TestPresignPutUnlimitedOmitsExpiry(t *testing.T) {
	p := &fakePresigner{}

	_, err := PresignPut(context.Background(), p, "bkt", "k", "text/plain", nil, 300*time.Second, true)
	require.NoError(t, err)
	assert.Zero(t, p.opts.Expires, "unlimited must leave the TTL bound unset")
}

func TestPresignPutError(t *testing.T) {
	p := &fakePresigner{err: errors.New("signing broke")}

	_, err := PresignPut(context.Background(), p, "bkt", "k", "text/plain", nil, time.Minute, false)
	assert.Error(t, err)
}
