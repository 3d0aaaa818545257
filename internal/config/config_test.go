package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
port: "8080"
databaseURL: "postgres://localhost/bookify"
jwtSecret: "secret"
minioEndpoint: "localhost:9000"
minioAccessKey: "minio"
minioSecretKey: "minio123"
minioBucket: "bookify"
redisAddr: "localhost:6379"
smtpHost: "localhost"
smtpPort: 1025
smtpFrom: "noreply@bookify.test"
adminEmail: "admin@bookify.test"
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected default upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.RateLimitPerMinute != 30 {
		t.Fatalf("expected default rate limit, got %d", cfg.RateLimitPerMinute)
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	path := writeConfigFile(t, `
port: "8080"
databaseURL: "postgres://localhost/bookify"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for missing jwtSecret")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, validConfig)
	t.Setenv("BOOKIFY_JWT_SECRET", "env-secret")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("BOOKIFY_MAX_UPLOAD_BYTES", "1048576")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("expected env secret override, got %q", cfg.JWTSecret)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Fatalf("expected env redis override, got %q", cfg.RedisAddr)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Fatalf("expected env upload cap, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
