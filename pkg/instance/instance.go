package instance

import "os"

const envInstanceID = "PIZZERIA_INSTANCE_ID"

// GetID identifies this process in logs and lock ownership. It prefers the
// configured id, then the hostname.
func GetID() string {
	if id := os.Getenv(envInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
