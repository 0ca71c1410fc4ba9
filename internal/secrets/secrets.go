// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text files
// and from a dotenv file. In the directory each file is one secret: the
// filename is the key and the trimmed contents are the value. Dotenv
// variables are mapped to the same key form, so PUSHSHIFT_TOKEN becomes
// pushshift-token.
//
// Supported keys: pushshift-token.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// TokenKey names the archive API bearer token.
const TokenKey = "pushshift-token"

// Load merges secrets from envFile and dir. Values from dir win over the
// dotenv file. Neither source is required to exist.
func Load(dir, envFile string) (map[string]string, error) {
	out, err := LoadEnv(envFile)
	if err != nil {
		return nil, err
	}
	files, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for k, v := range files {
		out[k] = v
	}
	return out, nil
}

// LoadDir reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files produce a
// warning on stderr but do not abort.
func LoadDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

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

// LoadEnv parses a dotenv file without touching the process environment.
// A missing file yields an empty map.
func LoadEnv(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		if v = strings.TrimSpace(v); v != "" {
			out[KeyFromEnv(k)] = v
		}
	}
	return out, nil
}

// KeyFromEnv converts an environment variable name to a secret key.
func KeyFromEnv(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
