package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("S3_BUCKET", "bkt")
	t.Setenv("DDB_TABLE", "uploads")
	t.Setenv("JWKS_URL", "https://issuer.example.com/jwks.json")
	t.Setenv("TOKEN_ISSUER", "https://issuer.example.com/proj-123")
	t.Setenv("TOKEN_AUDIENCE", "proj-123")
}

func TestMustLoadDefaults(t *testing.T) {
	setRequired(t)

	e := MustLoad()
	assert.Equal(t, "us-east-1", e.Region)
	assert.Equal(t, "bkt", e.Bucket)
	assert.Equal(t, "uploads", e.Table)
	assert.Equal(t, 300*time.Second, e.PresignTTL)
	assert.True(t, e.RequireAuth)
	assert.False(t, e.AnonDatePrefix)
	assert.Empty(t, e.AllowedSubjects)
}

func TestMustLoadAllowedSubjects(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_SUBJECTS", "u1, u2 ,,u3")

	e := MustLoad()
	assert.Equal(t, []string{"u1", "u2", "u3"}, e.AllowedSubjects)
}

func TestMustLoadAnonymousModeSkipsVerifierVars(t *testing.T) {
	t.Setenv("S3_BUCKET", "bkt")
	t.Setenv("DDB_TABLE", "uploads")
	t.Setenv("REQUIRE_AUTH", "false")

	e := MustLoad()
	assert.False(t, e.RequireAuth)
	assert.Empty(t, e.JWKSURL)
}

func TestMustLoadPanicsOnMissingVerifierVars(t *testing.T) {
	t.Setenv("S3_BUCKET", "bkt")
	t.Setenv("DDB_TABLE", "uploads")
	t.Setenv("JWKS_URL", "")
	t.Setenv("TOKEN_ISSUER", "")
	t.Setenv("TOKEN_AUDIENCE", "")

	assert.Panics(t, func() { MustLoad() })
}
