package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "AICOMPLY"

// envBoundKeys are bound explicitly so that LoadFromEnv works without a file;
// viper's AutomaticEnv only resolves keys it already knows about.
var envBoundKeys = []string{
	"server.host", "server.port", "server.mode",
	"grpc.enabled", "grpc.port",
	"database.host", "database.port", "database.user", "database.password", "database.db_name",
	"database.ssl_mode", "database.auto_migrate", "database.migration_path",
	"redis.addr", "redis.password", "redis.db",
	"kafka.brokers", "kafka.group_id",
	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket", "minio.use_ssl",
	"opensearch.addresses", "opensearch.user", "opensearch.password", "opensearch.index",
	"store.path",
	"log.level", "log.format",
	"metrics.enabled",
	"scoring.table_path", "scoring.framework_path",
	"recommendation.enabled", "recommendation.base_url", "recommendation.api_key",
	"recommendation.model", "recommendation.timeout", "recommendation.language",
	"certificate.authority", "certificate.standard", "certificate.validity_days",
	"certificate.issue_max_attempts",
}

// newViper builds a Viper instance with YAML file type, AICOMPLY_ env prefix
// and a "." → "_" key replacer so "database.host" resolves AICOMPLY_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envBoundKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges AICOMPLY_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from AICOMPLY_* environment variables and defaults.
//
//	AICOMPLY_<SECTION>_<FIELD>   e.g. AICOMPLY_DATABASE_HOST, AICOMPLY_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads configPath when non-empty, otherwise falls back to the
// environment. The CLI uses it so a config file is optional.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// whenever the file changes. A change that fails to parse or validate is
// reported through onError (when non-nil) and onChange is not called.
//
// Only hot-reload-safe settings (scoring table path, log level) should be
// applied by callers at runtime.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on error. For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
