// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env holds the configuration values for the application.
type Env struct {
	Region          string
	Bucket          string
	Table           string
	PresignTTL      time.Duration
	JWKSURL         string
	Issuer          string
	Audience        string
	AllowedSubjects []string
	RequireAuth     bool
	AnonDatePrefix  bool
}

// MustLoad reads the environment variables and returns an Env struct.
// Verifier settings are only required when authentication is enforced.
func MustLoad() Env {
	ttlSec, _ := strconv.Atoi(get("PRESIGN_TTL_SECONDS", "300"))
	e := Env{
		Region:          get("AWS_REGION", "us-east-1"),
		Bucket:          must("S3_BUCKET"),
		Table:           must("DDB_TABLE"),
		PresignTTL:      time.Duration(ttlSec) * time.Second,
		JWKSURL:         get("JWKS_URL", ""),
		Issuer:          get("TOKEN_ISSUER", ""),
		Audience:        get("TOKEN_AUDIENCE", ""),
		AllowedSubjects: splitCSV(get("ALLOWED_SUBJECTS", "")),
		RequireAuth:     get("REQUIRE_AUTH", "true") == "true",
		AnonDatePrefix:  get("ANON_DATE_PREFIX", "") == "true",
	}
	if e.RequireAuth {
		e.JWKSURL = must("JWKS_URL")
		e.Issuer = must("TOKEN_ISSUER")
		e.Audience = must("TOKEN_AUDIENCE")
	}
	return e
}

// splitCSV splits a comma-separated list, dropping empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// must returns the value of the environment variable k or panics if not set.
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic(fmt.Errorf("missing env %s", k))
	}
	return v
}
