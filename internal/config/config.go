// Package config provides configuration management for ceph2swift.
//
// Configuration is loaded from multiple sources with the following precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables (CEPH2SWIFT_* prefix, plus the historical bare
//     names CEPH_KEY_ID, CEPH_ACCESS_KEY, CEPH_HOST, SWIFT_AUTH_URL,
//     SWIFT_TENANT_NAME, SWIFT_USER, SWIFT_PASSWORD)
//  3. Configuration file (config.yaml)
//  4. Default values (lowest priority)
//
// All required fields are validated at load time; a migration never starts
// with an incomplete configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Destination backend types.
const (
	DestSwift = "swift"
	DestS3    = "s3"
)

// Folder discovery modes: what counts as "already a folder" in the
// destination listing.
const (
	// FolderModeSuffix treats names ending in '/' as folders.
	FolderModeSuffix = "suffix"
	// FolderModeContentType treats application/directory objects as folders.
	FolderModeContentType = "content-type"
)

// Config holds all configuration for a migration run.
type Config struct {
	// Tenant selects the bucket/container pair to migrate.
	Tenant string `mapstructure:"tenant" yaml:"tenant"`

	// ContainerPrefix is prepended to the tenant name to form the bucket and
	// container names (<prefix>-<tenant>).
	ContainerPrefix string `mapstructure:"container_prefix" yaml:"container_prefix"`

	// Preload toggles bulk up-front listing of destination state instead of
	// one remote existence check per item.
	Preload bool `mapstructure:"preload" yaml:"preload"`

	// FolderMode selects the folder discovery mode.
	FolderMode string `mapstructure:"folder_mode" yaml:"folder_mode"`

	// StateDir is where the failed-object log is written.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`

	// MetricsListen, when set, exposes Prometheus metrics on this address.
	MetricsListen string `mapstructure:"metrics_listen" yaml:"metrics_listen"`

	// LogLevel is the zerolog level name.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Ceph  CephConfig  `mapstructure:"ceph" yaml:"ceph"`
	Swift SwiftConfig `mapstructure:"swift" yaml:"swift"`
	Dest  DestConfig  `mapstructure:"dest" yaml:"dest"`
}

// CephConfig holds the source Ceph RGW connection parameters.
type CephConfig struct {
	KeyID     string `mapstructure:"key_id" yaml:"key_id"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	Host      string `mapstructure:"host" yaml:"host"`
	Region    string `mapstructure:"region" yaml:"region"`
	Secure    bool   `mapstructure:"secure" yaml:"secure"`
}

// SwiftConfig holds the Swift destination connection parameters.
type SwiftConfig struct {
	AuthURL     string `mapstructure:"auth_url" yaml:"auth_url"`
	TenantName  string `mapstructure:"tenant_name" yaml:"tenant_name"`
	User        string `mapstructure:"user" yaml:"user"`
	Password    string `mapstructure:"password" yaml:"password"`
	AuthVersion int    `mapstructure:"auth_version" yaml:"auth_version"`
}

// DestConfig selects and configures the destination backend.
type DestConfig struct {
	// Type is "swift" or "s3".
	Type string `mapstructure:"type" yaml:"type"`

	// S3-compatible destination parameters (ignored for swift).
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Region    string `mapstructure:"region" yaml:"region"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// Options are command line overrides.
type Options struct {
	Tenant        string
	DestType      string
	FolderMode    string
	StateDir      string
	MetricsListen string
	NoPreload     bool
	Debug         bool
}

// ContainerName returns the destination container (or bucket) name for the
// configured tenant.
func (c *Config) ContainerName() string {
	return fmt.Sprintf("%s-%s", c.ContainerPrefix, c.Tenant)
}

// SourceBucketName returns the source bucket name for the configured tenant.
// Source and destination share the <prefix>-<tenant> naming scheme.
func (c *Config) SourceBucketName() string {
	return c.ContainerName()
}

// Load loads configuration from file and applies command line options.
func Load(configPath string, opts Options) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("ceph2swift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ceph2swift")
		v.AddConfigPath("$HOME/.ceph2swift")

		// Ignore error if config file not found
		_ = v.ReadInConfig()
	}

	// Environment variables override
	v.SetEnvPrefix("CEPH2SWIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	// Apply command line options
	if opts.Tenant != "" {
		v.Set("tenant", opts.Tenant)
	}
	if opts.DestType != "" {
		v.Set("dest.type", opts.DestType)
	}
	if opts.FolderMode != "" {
		v.Set("folder_mode", opts.FolderMode)
	}
	if opts.StateDir != "" {
		v.Set("state_dir", opts.StateDir)
	}
	if opts.MetricsListen != "" {
		v.Set("metrics_listen", opts.MetricsListen)
	}
	if opts.NoPreload {
		v.Set("preload", false)
	}
	if opts.Debug {
		v.Set("log_level", "debug")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindLegacyEnv binds the environment variable names the original tool used,
// so existing deployments keep working without a prefix.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("ceph.key_id", "CEPH2SWIFT_CEPH_KEY_ID", "CEPH_KEY_ID")
	_ = v.BindEnv("ceph.access_key", "CEPH2SWIFT_CEPH_ACCESS_KEY", "CEPH_ACCESS_KEY")
	_ = v.BindEnv("ceph.host", "CEPH2SWIFT_CEPH_HOST", "CEPH_HOST")
	_ = v.BindEnv("swift.auth_url", "CEPH2SWIFT_SWIFT_AUTH_URL", "SWIFT_AUTH_URL")
	_ = v.BindEnv("swift.tenant_name", "CEPH2SWIFT_SWIFT_TENANT_NAME", "SWIFT_TENANT_NAME")
	_ = v.BindEnv("swift.user", "CEPH2SWIFT_SWIFT_USER", "SWIFT_USER")
	_ = v.BindEnv("swift.password", "CEPH2SWIFT_SWIFT_PASSWORD", "SWIFT_PASSWORD")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("container_prefix", "alaya")
	v.SetDefault("preload", true)
	v.SetDefault("folder_mode", FolderModeContentType)
	v.SetDefault("state_dir", "./state")
	v.SetDefault("log_level", "info")

	v.SetDefault("ceph.secure", true)
	v.SetDefault("ceph.region", "us-east-1")

	v.SetDefault("swift.auth_version", 2)

	v.SetDefault("dest.type", DestSwift)
	v.SetDefault("dest.use_ssl", true)
}

func (c *Config) validate() error {
	if c.Tenant == "" {
		return fmt.Errorf("tenant is required")
	}

	if c.Ceph.Host == "" {
		return fmt.Errorf("ceph host is required")
	}
	if c.Ceph.KeyID == "" || c.Ceph.AccessKey == "" {
		return fmt.Errorf("ceph credentials are required")
	}

	switch c.FolderMode {
	case FolderModeSuffix, FolderModeContentType:
	default:
		return fmt.Errorf("invalid folder_mode %q (want %q or %q)", c.FolderMode, FolderModeSuffix, FolderModeContentType)
	}

	switch c.Dest.Type {
	case DestSwift:
		if c.Swift.AuthURL == "" {
			return fmt.Errorf("swift auth_url is required")
		}
		if c.Swift.User == "" || c.Swift.Password == "" {
			return fmt.Errorf("swift credentials are required")
		}
		if c.Swift.TenantName == "" {
			return fmt.Errorf("swift tenant_name is required")
		}
	case DestS3:
		if c.Dest.Endpoint == "" {
			return fmt.Errorf("dest endpoint is required for s3 destinations")
		}
		if c.Dest.AccessKey == "" || c.Dest.SecretKey == "" {
			return fmt.Errorf("dest credentials are required for s3 destinations")
		}
	default:
		return fmt.Errorf("invalid dest type %q (want %q or %q)", c.Dest.Type, DestSwift, DestS3)
	}

	return nil
}
