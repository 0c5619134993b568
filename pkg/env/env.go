package env

import (
	"os"
	"strings"
)

// First returns the first of keys whose environment value is non-blank,
// trimmed, or fallback when none is set. Keys are checked in order so a
// CONTACTALIA_-prefixed name can shadow a generic one.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
