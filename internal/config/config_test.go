package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storefront/internal/catalog"
)

// clearEnv blanks every variable Load reads so the host environment can't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "LOG_FILE",
		"GCP_PROJECT", "STORE_SECRET", "NODE_ID",
		"CATALOG_URL", "CATALOG_TRANSPORT", "CATALOG_TIMEOUT", "CATALOG_FRESH_FOR",
		"STORAGE_KIND", "STORAGE_LOCATION",
		"ADMIN_EMAIL", "ADMIN_PASSWORD", "ADMIN_NAME", "TRANSFER_ACCOUNT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %s, want development", cfg.Environment)
	}
	if cfg.Catalog.URL != catalog.DefaultCatalogURL {
		t.Errorf("Catalog.URL = %s, want %s", cfg.Catalog.URL, catalog.DefaultCatalogURL)
	}
	if cfg.Catalog.Transport != "standard" {
		t.Errorf("Catalog.Transport = %s, want standard", cfg.Catalog.Transport)
	}
	if cfg.Storage.Kind != "memory" {
		t.Errorf("Storage.Kind = %s, want memory", cfg.Storage.Kind)
	}
	if cfg.NodeID != 1 {
		t.Errorf("NodeID = %d, want 1", cfg.NodeID)
	}
	if cfg.Store.AdminEmail != "admin@shop.com" || cfg.Store.AdminPassword != "admin123" {
		t.Errorf("Store admin = %s/%s, want development account", cfg.Store.AdminEmail, cfg.Store.AdminPassword)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/storefront.log")
	t.Setenv("NODE_ID", "7")
	t.Setenv("CATALOG_URL", "https://cdn.example.com/guitars.json")
	t.Setenv("CATALOG_TRANSPORT", "chrome")
	t.Setenv("CATALOG_TIMEOUT", "5s")
	t.Setenv("CATALOG_FRESH_FOR", "30")
	t.Setenv("STORAGE_KIND", "bolt")
	t.Setenv("STORAGE_LOCATION", "/tmp/storefront.db")
	t.Setenv("ADMIN_EMAIL", "root@guitars.test")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("TRANSFER_ACCOUNT", "BCA 123-456")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.LogFile != "/var/log/storefront.log" {
		t.Errorf("LogFile = %s", cfg.LogFile)
	}
	if cfg.NodeID != 7 {
		t.Errorf("NodeID = %d, want 7", cfg.NodeID)
	}
	if cfg.Catalog.Transport != "chrome" {
		t.Errorf("Catalog.Transport = %s, want chrome", cfg.Catalog.Transport)
	}
	if cfg.Catalog.FetchTimeout != 5*time.Second {
		t.Errorf("Catalog.FetchTimeout = %v, want 5s", cfg.Catalog.FetchTimeout)
	}
	if cfg.Catalog.FreshFor != 30*time.Second {
		t.Errorf("Catalog.FreshFor = %v, want 30s", cfg.Catalog.FreshFor)
	}
	if cfg.Storage.Kind != "bolt" || cfg.Storage.Location != "/tmp/storefront.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Store.AdminEmail != "root@guitars.test" {
		t.Errorf("AdminEmail = %s, want root@guitars.test", cfg.Store.AdminEmail)
	}
	if cfg.Store.TransferAccount != "BCA 123-456" {
		t.Errorf("TransferAccount = %s, want BCA 123-456", cfg.Store.TransferAccount)
	}
}

func TestLoadProductionRequiresProject(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "GCP_PROJECT") {
		t.Errorf("Load() error = %v, want GCP_PROJECT error", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown transport",
			env:     map[string]string{"CATALOG_TRANSPORT": "firefox"},
			wantErr: "unknown catalog transport",
		},
		{
			name:    "unknown storage",
			env:     map[string]string{"STORAGE_KIND": "redis"},
			wantErr: "unknown storage kind",
		},
		{
			name:    "bolt without location",
			env:     map[string]string{"STORAGE_KIND": "bolt"},
			wantErr: "storage location is required",
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"STORAGE_KIND": "postgres"},
			wantErr: "storage location is required",
		},
		{
			name:    "catalog url scheme",
			env:     map[string]string{"CATALOG_URL": "ftp://example.com/guitars.json"},
			wantErr: "must be http or https",
		},
		{
			name:    "node id range",
			env:     map[string]string{"NODE_ID": "4096"},
			wantErr: "node_id must be between",
		},
		{
			name:    "node id not a number",
			env:     map[string]string{"NODE_ID": "abc"},
			wantErr: "parsing NODE_ID",
		},
		{
			name:    "bad timeout",
			env:     map[string]string{"CATALOG_TIMEOUT": "soon"},
			wantErr: "parsing CATALOG_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background())
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      any
		want    time.Duration
		wantErr bool
	}{
		{nil, 0, false},
		{"", 0, false},
		{"1m30s", 90 * time.Second, false},
		{"15", 15 * time.Second, false},
		{"0.5", 500 * time.Millisecond, false},
		{float64(2), 2 * time.Second, false},
		{"later", 0, true},
	}

	for _, tt := range tests {
		got, err := parseDuration("x", tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDuration(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "custom")
	if got := envOrDefault("TEST_ENV_VAR", "default"); got != "custom" {
		t.Errorf("envOrDefault with set var = %q, want custom", got)
	}

	t.Setenv("TEST_ENV_VAR", "")
	if got := envOrDefault("TEST_ENV_VAR", "default"); got != "default" {
		t.Errorf("envOrDefault with empty var = %q, want default", got)
	}
}

func TestWithDefault(t *testing.T) {
	if got := withDefault("value", "default"); got != "value" {
		t.Errorf("withDefault(value, default) = %q, want value", got)
	}
	if got := withDefault("", "default"); got != "default" {
		t.Errorf("withDefault('', default) = %q, want default", got)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfig(t, `{
		"port": "9090",
		"environment": "test",
		"log_level": "debug",
		"node_id": 12,
		"catalog": {
			"url": "https://cdn.example.com/guitars.json",
			"transport": "chrome",
			"fetch_timeout": "3s",
			"fresh_for": 60
		},
		"storage": {"kind": "bolt", "location": "/data/store.db"},
		"store": {
			"admin_email": "owner@guitars.test",
			"admin_password": "pw",
			"admin_name": "Owner",
			"transfer_account": "Mandiri 987"
		}
	}`))

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.NodeID != 12 {
		t.Errorf("NodeID = %d, want 12", cfg.NodeID)
	}
	if cfg.Catalog.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v, want 3s", cfg.Catalog.FetchTimeout)
	}
	if cfg.Catalog.FreshFor != time.Minute {
		t.Errorf("FreshFor = %v, want 1m", cfg.Catalog.FreshFor)
	}
	if cfg.Storage.Location != "/data/store.db" {
		t.Errorf("Storage.Location = %s", cfg.Storage.Location)
	}
	if cfg.Store.AdminName != "Owner" || cfg.Store.TransferAccount != "Mandiri 987" {
		t.Errorf("Store = %+v", cfg.Store)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	t.Run("file not found", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", "/nonexistent/config.json")
		if _, err := Load(context.Background()); err == nil {
			t.Error("expected error for nonexistent file")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfig(t, "{invalid json"))
		if _, err := Load(context.Background()); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})

	t.Run("missing admin credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfig(t, `{"port": "8081"}`))
		_, err := Load(context.Background())
		if err == nil || !strings.Contains(err.Error(), "admin_email is required") {
			t.Errorf("expected admin_email error, got: %v", err)
		}
	})
}
