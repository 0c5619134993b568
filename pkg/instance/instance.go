package instance

import (
	"os"

	"github.com/contactalia/contactalia-backend/pkg/env"
)

// GetID names this worker process in logs: CONTACTALIA_WORKER_ID when set,
// then the hostname, then a fixed default.
func GetID() string {
	if id := env.First("", "CONTACTALIA_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return env.First("cron-worker-0", "HOSTNAME")
}
