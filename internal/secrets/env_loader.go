package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvLoader returns a Loader that reads the given keys from the environment.
// When KEY is unset and KEY_FILE names a file, the trimmed file contents are
// used instead, which is how container secret mounts are usually exposed.
// Keys with neither are omitted from the result.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
				continue
			}
			path := os.Getenv(k + "_FILE")
			if path == "" {
				continue
			}
			data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied secret path
			if err != nil {
				return nil, fmt.Errorf("read %s_FILE: %w", k, err)
			}
			if v := strings.TrimSpace(string(data)); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
