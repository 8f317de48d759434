// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"storefront/internal/catalog"
	"storefront/internal/storage"
	"storefront/internal/transport"
)

// Development credentials of the built-in admin account.
// Production must supply its own through Secret Manager.
const (
	devAdminEmail    = "admin@shop.com"
	devAdminPassword = "admin123"
)

// Config holds all service configuration.
// Environment determines whether store secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"
	LogFile     string // Empty = stdout

	// GCP settings (required in production)
	GCPProject string
	SecretName string

	// NodeID seeds the snowflake generator; distinct per running instance.
	NodeID int64

	Catalog CatalogConfig
	Storage StorageConfig

	// Store-specific configuration (loaded from secrets)
	Store StoreConfig
}

// CatalogConfig controls how the remote catalog document is fetched.
type CatalogConfig struct {
	URL          string
	Transport    string        // "standard" or "chrome"
	FetchTimeout time.Duration
	FreshFor     time.Duration // Freshness when the response carries no max-age
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Kind     string // "memory", "bolt" or "postgres"
	Location string // File path for bolt, DSN for postgres
}

// StoreConfig contains the account and payment settings.
// In production, this is loaded from Secret Manager as JSON.
type StoreConfig struct {
	AdminEmail      string `json:"admin_email"`
	AdminPassword   string `json:"admin_password"`
	AdminName       string `json:"admin_name,omitempty"`
	TransferAccount string `json:"transfer_account,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over it.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		SecretName:  envOrDefault("STORE_SECRET", "storefront"),
		Catalog: CatalogConfig{
			URL:       envOrDefault("CATALOG_URL", catalog.DefaultCatalogURL),
			Transport: envOrDefault("CATALOG_TRANSPORT", transport.ModeStandard),
		},
		Storage: StorageConfig{
			Kind:     envOrDefault("STORAGE_KIND", storage.KindMemory),
			Location: os.Getenv("STORAGE_LOCATION"),
		},
	}

	var err error
	if cfg.NodeID, err = cast.ToInt64E(envOrDefault("NODE_ID", "1")); err != nil {
		return nil, fmt.Errorf("parsing NODE_ID: %w", err)
	}
	if cfg.Catalog.FetchTimeout, err = parseDuration("CATALOG_TIMEOUT", os.Getenv("CATALOG_TIMEOUT")); err != nil {
		return nil, err
	}
	if cfg.Catalog.FreshFor, err = parseDuration("CATALOG_FRESH_FOR", os.Getenv("CATALOG_FRESH_FOR")); err != nil {
		return nil, err
	}

	// Load store config based on environment
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Durations and ids stay loose so "10s", 10 and "10" all work.
	var fileConfig struct {
		Port        string `json:"port"`
		Environment string `json:"environment"`
		LogLevel    string `json:"log_level"`
		LogFile     string `json:"log_file"`
		NodeID      any    `json:"node_id"`
		Catalog     struct {
			URL          string `json:"url"`
			Transport    string `json:"transport"`
			FetchTimeout any    `json:"fetch_timeout"`
			FreshFor     any    `json:"fresh_for"`
		} `json:"catalog"`
		Storage struct {
			Kind     string `json:"kind"`
			Location string `json:"location"`
		} `json:"storage"`
		Store StoreConfig `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		LogFile:     fileConfig.LogFile,
		NodeID:      1,
		Catalog: CatalogConfig{
			URL:       withDefault(fileConfig.Catalog.URL, catalog.DefaultCatalogURL),
			Transport: withDefault(fileConfig.Catalog.Transport, transport.ModeStandard),
		},
		Storage: StorageConfig{
			Kind:     withDefault(fileConfig.Storage.Kind, storage.KindMemory),
			Location: fileConfig.Storage.Location,
		},
		Store: fileConfig.Store,
	}

	if fileConfig.NodeID != nil {
		if cfg.NodeID, err = cast.ToInt64E(fileConfig.NodeID); err != nil {
			return nil, fmt.Errorf("parsing node_id: %w", err)
		}
	}
	if cfg.Catalog.FetchTimeout, err = parseDuration("catalog.fetch_timeout", fileConfig.Catalog.FetchTimeout); err != nil {
		return nil, err
	}
	if cfg.Catalog.FreshFor, err = parseDuration("catalog.fresh_for", fileConfig.Catalog.FreshFor); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseDuration accepts Go duration strings or plain numbers of seconds.
// nil and "" yield zero, which leaves the component default in place.
func parseDuration(name string, v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		if val == "" {
			return 0, nil
		}
		if secs, err := cast.ToFloat64E(val); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return d, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretName)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads store config from individual environment variables.
// Unset admin credentials fall back to the development account.
func (c *Config) loadFromEnv() {
	c.Store = StoreConfig{
		AdminEmail:      envOrDefault("ADMIN_EMAIL", devAdminEmail),
		AdminPassword:   envOrDefault("ADMIN_PASSWORD", devAdminPassword),
		AdminName:       os.Getenv("ADMIN_NAME"),
		TransferAccount: os.Getenv("TRANSFER_ACCOUNT"),
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.AdminEmail == "" {
		return fmt.Errorf("admin_email is required")
	}
	if c.Store.AdminPassword == "" {
		return fmt.Errorf("admin_password is required")
	}

	u, err := url.Parse(c.Catalog.URL)
	if err != nil {
		return fmt.Errorf("invalid catalog url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("catalog url must be http or https, got %q", c.Catalog.URL)
	}

	switch strings.ToLower(c.Catalog.Transport) {
	case transport.ModeStandard, transport.ModeChrome:
	default:
		return fmt.Errorf("unknown catalog transport %q", c.Catalog.Transport)
	}

	switch c.Storage.Kind {
	case storage.KindMemory:
	case storage.KindBolt, storage.KindPostgres:
		if c.Storage.Location == "" {
			return fmt.Errorf("storage location is required for %s storage", c.Storage.Kind)
		}
	default:
		return fmt.Errorf("unknown storage kind %q", c.Storage.Kind)
	}

	// Snowflake node ids are 10 bits.
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("node_id must be between 0 and 1023, got %d", c.NodeID)
	}

	if c.Catalog.FetchTimeout < 0 || c.Catalog.FreshFor < 0 {
		return fmt.Errorf("catalog durations must not be negative")
	}

	return nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
