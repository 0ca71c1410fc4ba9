// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "pushshift-token", "  tok_abc123  \n")
				writeFile(t, dir, "other-key", "v")
				return dir
			},
			want: map[string]string{
				"pushshift-token": "tok_abc123",
				"other-key":       "v",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "pushshift-token", "valid")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "x")
				return dir
			},
			want: map[string]string{"pushshift-token": "valid"},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "pushshift-token", "t")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{"pushshift-token": "t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadDir(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", "PUSHSHIFT_TOKEN=from-env\nEMPTY=\n# comment\n")

	got, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pushshift-token": "from-env"}, got)

	got, err = LoadEnv(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = LoadEnv("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_DirWinsOverEnv(t *testing.T) {
	root := t.TempDir()
	secretsDir := filepath.Join(root, ".secrets")
	require.NoError(t, os.Mkdir(secretsDir, 0o755))
	writeFile(t, secretsDir, TokenKey, "from-file")
	writeFile(t, root, ".env", "PUSHSHIFT_TOKEN=from-env\nOTHER_KEY=x\n")

	got, err := Load(secretsDir, filepath.Join(root, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", got[TokenKey])
	assert.Equal(t, "x", got["other-key"])
}

func TestKeyFromEnv(t *testing.T) {
	assert.Equal(t, "pushshift-token", KeyFromEnv("PUSHSHIFT_TOKEN"))
	assert.Equal(t, "a-b-c", KeyFromEnv(" A_B_C "))
}

func TestLoadDirUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	assert.NotContains(t, got, "bad-key")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
