package instance

import (
	"os"
	"strings"
)

// GetID returns the identifier of the running process. DYNO wins over
// HOSTNAME; fallback is used when neither is set.
func GetID(fallback string) string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return fallback
}
