package s3io

import "strings"

// FinalKey prepends the namespace prefix to the caller's key. An empty prefix
// leaves the key unchanged.
func FinalKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// ParseKey splits a namespaced key into subject, date and object name.
// Keys issued without a subject prefix do not parse.
func ParseKey(key string) (subject, date, name string, ok bool) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	if !isDate(parts[1]) {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// isDate reports whether s looks like a YYYYMMDD segment.
func isDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
