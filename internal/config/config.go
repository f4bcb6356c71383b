package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"breezbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Engine     EngineConfig     `yaml:"engine"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Exports    ExportConfig     `yaml:"exports"`
	Tenants    TenantsConfig    `yaml:"tenants"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey grants a named client permissions. Tenants limits the client
// to the listed tenants; empty means all.
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	Tenants     []string `yaml:"tenants"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// EngineConfig bounds what one availability request may ask the engine for.
type EngineConfig struct {
	MaxRangeDays int           `yaml:"max_range_days"`
	QuoteTTL     time.Duration `yaml:"quote_ttl"`
	Timezone     string        `yaml:"timezone"`
	Currency     string        `yaml:"currency"`
	// QuoteLimit caps quotes per customer within QuoteWindow.
	QuoteLimit   int           `yaml:"quote_limit"`
	QuoteWindow  time.Duration `yaml:"quote_window"`
}

// Location resolves Timezone, falling back to UTC.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	return loc, nil
}

type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type SchedulerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ExportCron string `yaml:"export_cron"`
	BackupCron string `yaml:"backup_cron"`
	MaxRetries int    `yaml:"max_retries"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
	Days int    `yaml:"days"`
}

// TenantsConfig lists seed files loaded by cmd/seed.
type TenantsConfig struct {
	SeedFiles []string `yaml:"seed_files"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Engine.MaxRangeDays < 1 {
		return errors.New("engine.max_range_days must be positive")
	}
	if c.Engine.QuoteTTL <= 0 {
		return errors.New("engine.quote_ttl must be positive")
	}
	if _, err := c.Engine.Location(); err != nil {
		return err
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing.endpoint is required when tracing is enabled")
	}
	if c.API.GRPC.TLS.Enabled && (c.API.GRPC.TLS.CertFile == "" || c.API.GRPC.TLS.KeyFile == "") {
		return errors.New("api.grpc.tls requires cert_file and key_file")
	}

	keys := make(map[string]bool, len(c.API.Auth.APIKeys))
	for _, k := range c.API.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("api key for client %q is empty", k.Name)
		}
		if keys[k.Key] {
			return fmt.Errorf("duplicate api key for client %q", k.Name)
		}
		keys[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "breezbook"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}

	if c.Engine.MaxRangeDays == 0 {
		c.Engine.MaxRangeDays = models.DefaultMaxRangeDays
	}
	if c.Engine.QuoteTTL == 0 {
		c.Engine.QuoteTTL = models.DefaultQuoteTTL * time.Second
	}
	if c.Engine.Currency == "" {
		c.Engine.Currency = models.DefaultCurrency
	}
	if c.Engine.QuoteLimit == 0 {
		c.Engine.QuoteLimit = models.DefaultQuoteLimit
	}
	if c.Engine.QuoteWindow == 0 {
		c.Engine.QuoteWindow = time.Minute
	}

	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = c.App.Name
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
	if c.Scheduler.ExportCron == "" {
		c.Scheduler.ExportCron = "0 2 * * *"
	}
	if c.Scheduler.BackupCron == "" {
		c.Scheduler.BackupCron = c.Backup.Schedule
	}
	if c.Scheduler.BackupCron == "" {
		c.Scheduler.BackupCron = "30 3 * * *"
	}
	if c.Scheduler.MaxRetries == 0 {
		c.Scheduler.MaxRetries = 3
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Exports.Days == 0 {
		c.Exports.Days = models.DefaultExportDays
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
}
