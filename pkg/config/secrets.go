package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// discoverSecretsFile finds the optional secrets file. An explicit
// <PREFIX>_SECRETS_FILE must point to a readable file; otherwise a
// secrets.<ext> next to the config file is used when present.
func (l *ViperLoader) discoverSecretsFile() (string, error) {
	env := l.envName("secrets_file")
	if raw, ok := os.LookupEnv(env); ok {
		path := strings.TrimSpace(raw)
		if path == "" {
			return "", fmt.Errorf("%s is set but empty", env)
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("%s points to an inaccessible file %s: %w", env, path, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s must point to a file, got directory %s", env, path)
		}
		return path, nil
	}

	if l.configFile == "" {
		return "", nil
	}
	candidate := filepath.Join(filepath.Dir(l.configFile), "secrets"+filepath.Ext(l.configFile))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	return "", nil
}
