// Package main powers the dashboard by listing all uploads for the current subject.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/shiftpoint/upload-signer/internal/awsutil"
	"github.com/shiftpoint/upload-signer/internal/config"
	"github.com/shiftpoint/upload-signer/internal/ddb"
	"github.com/shiftpoint/upload-signer/internal/httpx"
	"github.com/shiftpoint/upload-signer/internal/jwks"
	"github.com/shiftpoint/upload-signer/internal/models"
	"github.com/shiftpoint/upload-signer/internal/token"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// verifier validates bearer identity tokens.
type verifier interface {
	Verify(ctx context.Context, raw string) (*token.IdentityClaims, error)
}

// lister reads upload records.
type lister interface {
	ListBySubject(ctx context.Context, subject string, limit int32) ([]models.Upload, error)
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env config.Env
	rec lister
	ver verifier
}

// subject verifies the bearer token and returns its subject.
func (a *App) subject(ctx context.Context, req events.APIGatewayV2HTTPRequest) (string, error) {
	raw := bearerToken(req.Headers)
	if raw == "" {
		return "", errors.New("missing token")
	}
	claims, err := a.ver.Verify(ctx, raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// handler lists upload records for the authenticated subject.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sub, err := a.subject(ctx, req)
	if err != nil {
		if errors.Is(err, jwks.ErrFetchFailed) {
			log.Printf("list: jwks fetch: %v", err)
			return httpx.Error(http.StatusInternalServerError, "verifier unavailable")
		}
		return httpx.Error(http.StatusUnauthorized, "unauthorized")
	}
	items, err := a.rec.ListBySubject(ctx, sub, 100)
	if err != nil {
		log.Printf("list error: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, items)
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(headers map[string]string) string {
	var auth string
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			auth = v
			break
		}
	}
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		auth = auth[len("bearer "):]
	}
	return strings.TrimSpace(auth)
}

// main initializes the application and starts the Lambda handler.
func main() {
	env := config.MustLoad()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}
	ddbc := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	app := &App{
		env: env,
		rec: &ddb.Repo{DB: ddbc, Table: env.Table},
		ver: token.NewVerifier(jwks.NewProvider(env.JWKSURL), env.Issuer, env.Audience),
	}
	lambda.Start(app.handler)
}
