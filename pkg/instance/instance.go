// Package instance names the running process in lock tokens and log fields.
package instance

import (
	"os"
	"strings"
)

const (
	envInstanceID = "FINCORE_INSTANCE_ID"
	fallbackID    = "fincore-0"
)

// ID returns FINCORE_INSTANCE_ID, falling back to the hostname.
func ID() string {
	if id := strings.TrimSpace(os.Getenv(envInstanceID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
