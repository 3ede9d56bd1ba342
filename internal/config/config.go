// Package config loads podcored's YAML configuration file, decoding an
// operator-facing YAML document with gopkg.in/yaml.v3 rather than
// hand-rolling a flag-only configuration surface.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level podcored configuration document.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	DevMode bool          `yaml:"dev_mode"`
}

// StorageConfig groups the storage-space and repository-backend options.
type StorageConfig struct {
	Space SpaceConfig `yaml:"space"`
	Repo  RepoConfig  `yaml:"repo"`
}

// SpaceConfig names one storage space: its root URI and owning WebID.
type SpaceConfig struct {
	RootURI string `yaml:"root_uri"`
	OwnerID string `yaml:"owner_id"`
}

// RepoConfig selects and configures the object-store backend plus the
// repository engine's ancillary features.
type RepoConfig struct {
	Backend BackendConfig `yaml:"backend"`
	// DatabrowserEnabled is recognized but unacted on: the HTML databrowser
	// is an external collaborator, not something this module renders.
	DatabrowserEnabled bool `yaml:"databrowser_enabled"`
	// AccessControlEngine selects the PDP's policy language: "acp" (default)
	// or "wac".
	AccessControlEngine string `yaml:"access_control_engine"`
}

// BackendConfig is the backend-specific union; exactly one of these
// should be populated
// according to Kind.
type BackendConfig struct {
	Kind string `yaml:"kind"` // "memory", "fs", "embedded", or "s3"
	FS   struct {
		Root string `yaml:"root"`
	} `yaml:"fs"`
	Embedded struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"embedded"`
	S3 struct {
		Bucket   string `yaml:"bucket"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"s3"`
}

// ServerConfig governs the HTTP listener.
type ServerConfig struct {
	Addr       string    `yaml:"addr"`
	TrustProxy bool      `yaml:"trust_proxy"`
	TLS        TLSConfig `yaml:"tls"`
}

// TLSConfig is optional; when both paths are set the server terminates TLS
// itself rather than relying on a fronting proxy.
type TLSConfig struct {
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

// Enabled reports whether both halves of the TLS keypair are configured.
func (t TLSConfig) Enabled() bool { return t.CertPath != "" && t.KeyPath != "" }

// AuthConfig governs the Solid-OIDC/DPoP authentication pipeline.
type AuthConfig struct {
	TrustedIssuers []string      `yaml:"trusted_issuers"`
	CacheCapacity  int           `yaml:"cache_capacity"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// Load reads and parses the YAML document at path, applying defaults for
// every optional field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Repo.Backend.Kind == "" {
		c.Storage.Repo.Backend.Kind = "memory"
	}
	if c.Storage.Repo.AccessControlEngine == "" {
		c.Storage.Repo.AccessControlEngine = "acp"
	}
	if c.Auth.CacheCapacity == 0 {
		c.Auth.CacheCapacity = 5000
	}
	if c.Auth.CacheTTL == 0 {
		c.Auth.CacheTTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Storage.Space.RootURI == "" {
		return fmt.Errorf("storage.space.root_uri is required")
	}
	switch c.Storage.Repo.Backend.Kind {
	case "memory", "fs", "embedded", "s3":
	default:
		return fmt.Errorf("storage.repo.backend.kind %q is not one of memory|fs|embedded|s3", c.Storage.Repo.Backend.Kind)
	}
	switch c.Storage.Repo.AccessControlEngine {
	case "acp", "wac":
	default:
		return fmt.Errorf("storage.repo.access_control_engine %q is not one of acp|wac", c.Storage.Repo.AccessControlEngine)
	}
	return nil
}
