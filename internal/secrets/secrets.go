// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files, one
// secret per file: the filename is the key and the trimmed contents are the
// value. Keys missing from the directory fall back to environment variables.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Known secret keys.
const (
	GeminiAPIKey  = "gemini-api-key"
	YouTubeAPIKey = "youtube-api-key"
	RedisPassword = "redis-password"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty set. Unreadable files are skipped with a warning on
// stderr.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Get returns the value for key, falling back to the environment variable
// EnvName(key). It returns "" when neither is set.
func (s Secrets) Get(key string) string {
	if v := s[key]; v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(EnvName(key)))
}

// EnvName maps a key to its environment variable: "gemini-api-key"
// becomes GEMINI_API_KEY.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
