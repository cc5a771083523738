package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftpoint/upload-signer/internal/jwks"
	"github.com/shiftpoint/upload-signer/internal/models"
	"github.com/shiftpoint/upload-signer/internal/token"
)

type fakeVerifier struct {
	claims *token.IdentityClaims
	err    error
}

func (f *fakeVerifier) Verify(context.Context, string) (*token.IdentityClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

type fakeLister struct {
	subject string
	items   []models.Upload
	err     error
}

func (f *fakeLister) ListBySubject(_ context.Context, subject string, _ int32) ([]models.Upload, error) {
	f.subject = subject
	return f.items, f.err
}

func request(bearer string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{Headers: map[string]string{}}
	if bearer != "" {
		req.Headers["authorization"] = "Bearer " + bearer
	}
	return req
}

func TestListMissingTokenIs401(t *testing.T) {
	app := &App{rec: &fakeLister{}, ver: &fakeVerifier{}}

	resp, err := app.handler(context.Background(), request(""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListInvalidTokenIs401(t *testing.T) {
	app := &App{rec: &fakeLister{}, ver: &fakeVerifier{err: token.ErrSignatureInvalid}}

	resp, err := app.handler(context.Background(), request("tok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListVerifierUnavailableIs500(t *testing.T) {
	app := &App{rec: &fakeLister{}, ver: &fakeVerifier{err: jwks.ErrFetchFailed}}

	resp, err := app.handler(context.Background(), request("tok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListReturnsSubjectUploads(t *testing.T) {
	rec := &fakeLister{items: []models.Upload{{UploadID: "01H", Subject: "u1", Status: models.StatusComplete}}}
	app := &App{rec: rec, ver: &fakeVerifier{claims: &token.IdentityClaims{Subject: "u1"}}}

	resp, err := app.handler(context.Background(), request("tok"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1", rec.subject)

	var items []models.Upload
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "01H", items[0].UploadID)
}

func TestListDBErrorIs500(t *testing.T) {
	app := &App{
		rec: &fakeLister{err: errors.New("ddb down")},
		ver: &fakeVerifier{claims: &token.IdentityClaims{Subject: "u1"}},
	}

	resp, err := app.handler(context.Background(), request("tok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
