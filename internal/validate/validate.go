// Package validate provides functions to validate upload request fields.
package validate

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Key checks that the object key is non-empty after trimming and returns the
// trimmed form. The key is otherwise opaque.
func Key(k string) (string, error) {
	k = strings.TrimSpace(k)
	if k == "" {
		return "", errors.New("missing or empty key parameter")
	}
	return k, nil
}

// Expires parses the expires field. Empty or "default" selects the deployment
// default (ttl 0), "unlimited" omits the TTL bound, and a positive decimal is
// a validity window in seconds.
func Expires(s string) (ttl time.Duration, unlimited bool, err error) {
	switch s {
	case "", "default":
		return 0, false, nil
	case "unlimited":
		return 0, true, nil
	}
	n, aerr := strconv.Atoi(s)
	if aerr != nil || n <= 0 {
		return 0, false, errors.New("invalid expires parameter")
	}
	return time.Duration(n) * time.Second, false, nil
}
