package util

import (
	"os"
	"strings"
)

// GetEnvironmentVariables returns the variables whose names start with prefix,
// keyed by the remainder of the name.
func GetEnvironmentVariables(prefix string) map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		name, value, _ := strings.Cut(variable, "=")
		if key, ok := strings.CutPrefix(name, prefix); ok && key != "" {
			environmentVariables[key] = value
		}
	}

	return environmentVariables
}
