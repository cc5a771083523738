// Package authz decides whether a verified identity may obtain upload credentials.
package authz

import (
	"time"

	"github.com/shiftpoint/upload-signer/internal/token"
)

// Policy is the static authorization configuration for one deployment.
type Policy struct {
	RequireAuth     bool
	AllowedSubjects []string
	// AnonDatePrefix namespaces anonymous uploads under the current date.
	AnonDatePrefix bool
}

// Decision is the per-request outcome of the policy.
type Decision struct {
	Allowed         bool
	NamespacePrefix string
	Reason          string
}

const dateLayout = "20060102"

// Authorize is a pure function of the claims, policy and current time.
// Verified identities are namespaced under "{subject}/{YYYYMMDD}"; the
// allow-list, when configured, gates which subjects may proceed.
func Authorize(claims *token.IdentityClaims, pol Policy, now time.Time) Decision {
	if claims == nil {
		if pol.RequireAuth {
			return Decision{Reason: "missing token"}
		}
		d := Decision{Allowed: true}
		if pol.AnonDatePrefix {
			d.NamespacePrefix = now.UTC().Format(dateLayout)
		}
		return d
	}

	if len(pol.AllowedSubjects) > 0 && !subjectAllowed(claims.Subject, pol.AllowedSubjects) {
		return Decision{Reason: "subject not allowed"}
	}

	return Decision{
		Allowed:         true,
		NamespacePrefix: claims.Subject + "/" + now.UTC().Format(dateLayout),
	}
}

func subjectAllowed(sub string, allowed []string) bool {
	for _, s := range allowed {
		if s == sub {
			return true
		}
	}
	return false
}
