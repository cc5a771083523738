// Package main issues scoped presigned S3 upload URLs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shiftpoint/upload-signer/internal/api"
	"github.com/shiftpoint/upload-signer/internal/authz"
	"github.com/shiftpoint/upload-signer/internal/awsutil"
	"github.com/shiftpoint/upload-signer/internal/config"
	"github.com/shiftpoint/upload-signer/internal/ddb"
	"github.com/shiftpoint/upload-signer/internal/httpx"
	"github.com/shiftpoint/upload-signer/internal/jwks"
	"github.com/shiftpoint/upload-signer/internal/models"
	"github.com/shiftpoint/upload-signer/internal/s3io"
	"github.com/shiftpoint/upload-signer/internal/token"
	"github.com/shiftpoint/upload-signer/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

// verifier validates bearer identity tokens.
type verifier interface {
	Verify(ctx context.Context, raw string) (*token.IdentityClaims, error)
}

// recorder persists upload records.
type recorder interface {
	PutPending(ctx context.Context, u models.Upload) error
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env config.Env
	s3p s3io.Presigner
	rec recorder
	ver verifier
	now func() time.Time
}

func main() {
	env := config.MustLoad()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}

	// S3 client: path-style against a LocalStack endpoint
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
		s3p: s3.NewPresignClient(s3c),
		rec: &ddb.Repo{DB: ddbc, Table: env.Table},
		now: time.Now,
	}
	if env.JWKSURL != "" {
		app.ver = token.NewVerifier(jwks.NewProvider(env.JWKSURL), env.Issuer, env.Audience)
	}
	lambda.Start(app.handler)
}

// handler processes the incoming request and maps every outcome to a status code.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := parseRequest(req.Body)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	claims, resp, ok := a.authenticate(ctx, req.Headers)
	if !ok {
		return resp, nil
	}

	decision := authz.Authorize(claims, a.policy(), a.now())
	if !decision.Allowed {
		return httpx.ErrorDetails(http.StatusUnauthorized, "unauthorized", decision.Reason)
	}

	finalKey := s3io.FinalKey(decision.NamespacePrefix, body.key)
	subject := models.AnonymousSubject
	if claims != nil {
		subject = claims.Subject
	}
	uploadID := ulid.Make().String()
	pk, sk := ddb.MakeKeys(subject, uploadID)

	if err := a.rec.PutPending(ctx, models.Upload{
		PK: pk, SK: sk,
		UploadID:    uploadID,
		Subject:     subject,
		Key:         finalKey,
		ContentType: body.fileType,
		Status:      models.StatusPending,
		CreatedAt:   ddb.NowISO(),
	}); err != nil {
		log.Printf("signurl: put pending: %v", err)
		return httpx.Error(http.StatusInternalServerError, "record error")
	}

	ttl := a.env.PresignTTL
	if body.ttl > 0 {
		ttl = body.ttl
	}
	meta := map[string]string{"upload_id": uploadID, "subject": subject}
	url, err := s3io.PresignPut(ctx, a.s3p, a.env.Bucket, finalKey, body.fileType, meta, ttl, body.unlimited)
	if err != nil {
		log.Printf("signurl: presign: %v", err)
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}

	return httpx.JSON(http.StatusOK, api.SignResponse{URL: url, Key: finalKey})
}

// policy builds the authorization policy from the environment.
func (a *App) policy() authz.Policy {
	return authz.Policy{
		RequireAuth:     a.env.RequireAuth,
		AllowedSubjects: a.env.AllowedSubjects,
		AnonDatePrefix:  a.env.AnonDatePrefix,
	}
}

// authenticate verifies the bearer token when one is supplied or required.
// On failure it returns the response to send and ok=false.
func (a *App) authenticate(ctx context.Context, headers map[string]string) (*token.IdentityClaims, events.APIGatewayV2HTTPResponse, bool) {
	raw := bearerToken(headers)
	if raw == "" {
		if a.env.RequireAuth {
			resp, _ := httpx.ErrorDetails(http.StatusUnauthorized, "unauthorized", "missing token")
			return nil, resp, false
		}
		return nil, events.APIGatewayV2HTTPResponse{}, true
	}

	if a.ver == nil {
		resp, _ := httpx.Error(http.StatusInternalServerError, "verifier not configured")
		return nil, resp, false
	}

	claims, err := a.ver.Verify(ctx, raw)
	if err != nil {
		if errors.Is(err, jwks.ErrFetchFailed) {
			log.Printf("signurl: jwks fetch: %v", err)
			resp, _ := httpx.Error(http.StatusInternalServerError, "verifier unavailable")
			return nil, resp, false
		}
		resp, _ := httpx.ErrorDetails(http.StatusUnauthorized, "unauthorized", authFailureReason(err))
		return nil, resp, false
	}
	return claims, events.APIGatewayV2HTTPResponse{}, true
}

// authFailureReason reduces a verification error to its coarse category.
// The category is all a caller learns; internals stay out of the response.
func authFailureReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "token expired"
	case errors.Is(err, token.ErrSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, token.ErrIssuerMismatch):
		return "issuer mismatch"
	case errors.Is(err, token.ErrAudienceMismatch):
		return "audience mismatch"
	case errors.Is(err, jwks.ErrKeyNotFound):
		return "unknown signing key"
	default:
		return "malformed token"
	}
}

// parsedRequest is the validated form of the POST body.
type parsedRequest struct {
	key       string
	fileType  string
	ttl       time.Duration
	unlimited bool
}

// parseRequest parses the JSON body and validates the key and expires fields.
func parseRequest(body string) (parsedRequest, error) {
	var req api.SignRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return parsedRequest{}, errors.New("invalid json")
	}

	key, err := validate.Key(req.Key)
	if err != nil {
		return parsedRequest{}, err
	}
	ttl, unlimited, err := validate.Expires(req.Expires)
	if err != nil {
		return parsedRequest{}, err
	}
	return parsedRequest{key: key, fileType: req.FileType, ttl: ttl, unlimited: unlimited}, nil
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(headers map[string]string) string {
	auth := headerLookup(headers, "Authorization")
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		auth = auth[len("bearer "):]
	}
	return strings.TrimSpace(auth)
}

// headerLookup retrieves a header value in a case-insensitive manner.
func headerLookup(h map[string]string, key string) string {
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}
