package config

import "os"

// CronSecret guards the time-triggered endpoints. Empty means the check is
// skipped (local development).
func CronSecret() string {
	return os.Getenv("CRON_SECRET")
}

// ListenAddr is the HTTP bind address, defaulting to :8080.
func ListenAddr() string {
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}
