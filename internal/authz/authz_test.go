package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shiftpoint/upload-signer/internal/token"
)

var testNow = time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC)

func claimsFor(sub string) *token.IdentityClaims {
	return &token.IdentityClaims{Subject: sub}
}

func TestAuthorize(t *testing.T) {
	strict := Policy{RequireAuth: true, AllowedSubjects: []string{"u1", "u2"}}

	tests := []struct {
		name   string
		claims *token.IdentityClaims
		pol    Policy
		want   Decision
	}{
		{
			name:   "missing token when required",
			claims: nil,
			pol:    strict,
			want:   Decision{Allowed: false, Reason: "missing token"},
		},
		{
			name:   "subject not in allow-list",
			claims: claimsFor("stranger"),
			pol:    strict,
			want:   Decision{Allowed: false, Reason: "subject not allowed"},
		},
		{
			name:   "allowed subject gets dated namespace",
			claims: claimsFor("u1"),
			pol:    strict,
			want:   Decision{Allowed: true, NamespacePrefix: "u1/20240115"},
		},
		{
			name:   "anonymous deployment without prefix",
			claims: nil,
			pol:    Policy{RequireAuth: false},
			want:   Decision{Allowed: true},
		},
		{
			name:   "anonymous deployment with date prefix",
			claims: nil,
			pol:    Policy{RequireAuth: false, AnonDatePrefix: true},
			want:   Decision{Allowed: true, NamespacePrefix: "20240115"},
		},
		{
			name:   "verified subject without configured allow-list",
			claims: claimsFor("u3"),
			pol:    Policy{RequireAuth: true},
			want:   Decision{Allowed: true, NamespacePrefix: "u3/20240115"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.claims, tt.pol, testNow))
		})
	}
}

func TestAuthorizeUsesUTCDate(t *testing.T) {
	// 2024-01-15 23:30 in UTC-5 is already 2024-01-16 in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2024, 1, 15, 23, 30, 0, 0, loc)

	d := Authorize(claimsFor("u1"), Policy{RequireAuth: true, AllowedSubjects: []string{"u1"}}, now)
	assert.Equal(t, "u1/20240116", d.NamespacePrefix)
}
