package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "najdeno.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL.Duration)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = "127.0.0.1:9000"

[auth]
jwt-secret = "s3cret"
token-ttl = "12h"

[admin]
email = "desk@campus.example"

[images]
max-dimension = 640
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL.Duration)
	assert.Equal(t, "desk@campus.example", cfg.Admin.Email)
	assert.Equal(t, 640, cfg.Images.MaxDimension)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "najdeno.sqlite3", cfg.Database.Path)
	assert.Equal(t, "Admin", cfg.Admin.Name)
	assert.Equal(t, Default().Images.JPEGQuality, cfg.Images.JPEGQuality)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[server]
adress = ":9000"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.adress")
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"bad duration": "[auth]\ntoken-ttl = \"a week\"\n",
		"zero ttl":     "[auth]\ntoken-ttl = \"0s\"\n",
		"quality":      "[images]\njpeg-quality = 101\n",
		"admin email":  "[admin]\nemail = \"admin\"\n",
		"syntax":       "[server\naddr = 1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "/var/lib/najdeno/file.sqlite3"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, cfg.Override("d", "/tmp/flag.sqlite3"))
	require.NoError(t, cfg.Override("addr", ":7070"))
	require.NoError(t, cfg.Override("e", "lost@example.com"))
	require.NoError(t, cfg.Override("log", "/tmp/najdeno.log"))

	assert.Equal(t, "/tmp/flag.sqlite3", cfg.Database.Path)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "lost@example.com", cfg.Admin.Email)
	assert.Equal(t, "/tmp/najdeno.log", cfg.Log.Path)

	assert.Error(t, cfg.Override("config", "other.toml"))
}

func TestImageOptions(t *testing.T) {
	cfg := Default()
	cfg.Images.MaxDimension = 512
	opts := cfg.ImageOptions()
	assert.Equal(t, 512, opts.MaxDimension)
	assert.Equal(t, cfg.Images.JPEGQuality, opts.Quality)
	assert.Equal(t, cfg.Images.MaxUploadBytes, opts.MaxBytes)
}
