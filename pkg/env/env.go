package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// InstanceID names this process for lock ownership and log lines.
// STRIKEGROUND_INSTANCE_ID wins, then WORKER_ID, then the host name.
func InstanceID() string {
	for _, key := range []string{"STRIKEGROUND_INSTANCE_ID", "WORKER_ID"} {
		if val := Get(key, ""); val != "" {
			return val
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
