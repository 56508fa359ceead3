// Package config loads the assistant CLI configuration.
//
// Values are resolved in order: defaults, then the YAML file, then
// THREADGRAPH_* environment variables.
//
//	cfg, err := config.NewLoader().WithConfigPath("threadgraph.yaml").Load()
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "THREADGRAPH"

// Config is the complete CLI configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine" env:"ENGINE"`
	Store     StoreConfig     `yaml:"store" env:"STORE"`
	Model     ModelConfig     `yaml:"model" env:"MODEL"`
	Assistant AssistantConfig `yaml:"assistant" env:"ASSISTANT"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Metrics   MetricsConfig   `yaml:"metrics" env:"METRICS"`
	Tracing   TracingConfig   `yaml:"tracing" env:"TRACING"`
}

// EngineConfig tunes the workflow engine.
type EngineConfig struct {
	// StepCeiling bounds the steps of one conversation turn.
	StepCeiling int `yaml:"step_ceiling" env:"STEP_CEILING"`
}

// StoreConfig selects the checkpoint store.
type StoreConfig struct {
	// Driver is one of memory, sqlite, mysql, postgres or redis.
	Driver string `yaml:"driver" env:"DRIVER"`
	// Path is the SQLite database file.
	Path string `yaml:"path" env:"PATH"`
	// DSN is the MySQL or Postgres connection string.
	DSN           string        `yaml:"dsn" env:"DSN"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	Prefix        string        `yaml:"prefix" env:"PREFIX"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
}

// ModelConfig selects the chat model.
type ModelConfig struct {
	// Provider is one of mock, openai, anthropic or google.
	Provider string `yaml:"provider" env:"PROVIDER"`
	// Name is the provider's model identifier. Empty selects the adapter
	// default.
	Name string `yaml:"name" env:"NAME"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv  string        `yaml:"api_key_env" env:"API_KEY_ENV"`
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// AssistantConfig configures the research assistant.
type AssistantConfig struct {
	// Directory is a YAML company catalog. Empty uses the built-in one.
	Directory string `yaml:"directory" env:"DIRECTORY"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables
// it.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// TracingConfig configures OTLP trace export. An empty Endpoint disables
// it.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"INSECURE"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{StepCeiling: 50},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "threadgraph.db",
			Prefix: "threadgraph:",
		},
		Model: ModelConfig{
			Provider:   "mock",
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "console"},
		Tracing: TracingConfig{ServiceName: "threadgraph-assistant"},
	}
}

var (
	storeDrivers   = []string{"memory", "sqlite", "mysql", "postgres", "redis"}
	modelProviders = []string{"mock", "openai", "anthropic", "google"}
	logFormats     = []string{"console", "json"}
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Engine.StepCeiling <= 0 {
		return fmt.Errorf("engine.step_ceiling must be positive, got %d", c.Engine.StepCeiling)
	}
	if !contains(storeDrivers, c.Store.Driver) {
		return fmt.Errorf("store.driver %q is not one of %s", c.Store.Driver, strings.Join(storeDrivers, ", "))
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case "mysql", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for %s", c.Store.Driver)
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for redis")
		}
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("store.ttl cannot be negative")
	}
	if !contains(modelProviders, c.Model.Provider) {
		return fmt.Errorf("model.provider %q is not one of %s", c.Model.Provider, strings.Join(modelProviders, ", "))
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("model.max_retries cannot be negative")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if !contains(logFormats, c.Log.Format) {
		return fmt.Errorf("log.format %q is not one of %s", c.Log.Format, strings.Join(logFormats, ", "))
	}
	return nil
}

// APIKey returns the model API key from the environment. Without
// model.api_key_env the provider's conventional variable is used.
func (c *Config) APIKey() string {
	name := c.Model.APIKeyEnv
	if name == "" {
		switch c.Model.Provider {
		case "openai":
			name = "OPENAI_API_KEY"
		case "anthropic":
			name = "ANTHROPIC_API_KEY"
		case "google":
			name = "GOOGLE_API_KEY"
		default:
			return ""
		}
	}
	return os.Getenv(name)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Loader builds a Config from defaults, a file and the environment.
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader returns a loader that reads THREADGRAPH_* variables.
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix, lookupEnv: os.LookupEnv}
}

// WithConfigPath sets the YAML file. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix changes the environment prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", l.configPath, err)
	}
	return nil
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, key); err != nil {
				return err
			}
			continue
		}

		value, ok := l.lookupEnv(key)
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
