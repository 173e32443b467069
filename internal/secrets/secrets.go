package secrets

import (
	"fmt"
	"os"
	"strings"
)

// GetSecret loads a secret from either a `<KEY>_FILE` path (Docker secrets
// pattern) or the environment variable itself, in that order.
func GetSecret(envKey string, defaultValue string) (string, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, nil
	}

	return defaultValue, nil
}

// GetOptionalSecret loads a secret with a default value and never fails.
// Missing optional credentials disable the dependent feature at the call
// site rather than aborting startup.
func GetOptionalSecret(envKey string, defaultValue string) string {
	value, err := GetSecret(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}
