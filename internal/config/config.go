package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server and scanner configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	DB        DBConfig        `yaml:"db"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	GitHub    GitHubConfig    `yaml:"github"`
	Feed      FeedConfig      `yaml:"feed"`
	Scan      ScanConfig      `yaml:"scan"`
	OTel      OTelConfig      `yaml:"otel"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled     bool          `yaml:"enabled"`
	IdentityURL string        `yaml:"identity_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Timeout     time.Duration `yaml:"timeout"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig selects where the registry documents live. The audit log
// and the identity cache always stay in the sqlite database.
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GitHubConfig struct {
	APIBase string        `yaml:"api_base"`
	Token   string        `yaml:"token"`
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
	Timeout time.Duration `yaml:"timeout"`
}

type FeedConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	Limit int    `yaml:"limit"`
}

type CooldownConfig struct {
	Interval        time.Duration `yaml:"interval"`
	BackoffAfter    int           `yaml:"backoff_after"`
	BackoffInterval time.Duration `yaml:"backoff_interval"`
}

type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

type ScanConfig struct {
	Budget            time.Duration  `yaml:"budget"`
	Interval          time.Duration  `yaml:"interval"`
	Reserve           time.Duration  `yaml:"reserve"`
	Contributors      CooldownConfig `yaml:"contributors"`
	Events            CooldownConfig `yaml:"events"`
	Website           CooldownConfig `yaml:"website"`
	NotFoundThreshold int            `yaml:"not_found_threshold"`
	ArchiveCap        int            `yaml:"archive_cap"`
	ProcessedCap      int            `yaml:"processed_cap"`
	BackfillLimit     int            `yaml:"backfill_limit"`
	SelfDomain        string         `yaml:"self_domain"`
	Retry             RetryConfig    `yaml:"retry"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			CacheTTL: 10 * time.Minute,
			Timeout:  5 * time.Second,
		},
		DB: DBConfig{
			Path: "forge.db",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Prefix:  "registry/",
		},
		Log: LogConfig{
			Level: "info",
		},
		GitHub: GitHubConfig{
			APIBase: "https://api.github.com",
			RPS:     5,
			Burst:   10,
			Timeout: 15 * time.Second,
		},
		Feed: FeedConfig{
			Limit: 200,
		},
		Scan: ScanConfig{
			Budget:            50 * time.Second,
			Interval:          5 * time.Minute,
			Reserve:           2 * time.Second,
			Contributors:      CooldownConfig{Interval: 6 * time.Hour, BackoffAfter: 3, BackoffInterval: 24 * time.Hour},
			Events:            CooldownConfig{Interval: time.Hour, BackoffAfter: 3, BackoffInterval: 12 * time.Hour},
			Website:           CooldownConfig{Interval: 12 * time.Hour, BackoffAfter: 3, BackoffInterval: 72 * time.Hour},
			NotFoundThreshold: 3,
			ArchiveCap:        5000,
			ProcessedCap:      2000,
			BackfillLimit:     200,
			Retry:             RetryConfig{Attempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second},
		},
		OTel: OTelConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "forge-registry",
			SampleRatio: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("FORGE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Transport.Mode = strings.ToLower(strings.TrimSpace(cfg.Transport.Mode))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Log.Level))
	}
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		errs = append(errs, fmt.Errorf("invalid transport mode %q", c.Transport.Mode))
	}
	switch c.Storage.Backend {
	case "sqlite":
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage backend %q", c.Storage.Backend))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Auth.Enabled && c.Auth.IdentityURL == "" {
		errs = append(errs, errors.New("auth identity_url is required when auth is enabled"))
	}
	if c.Scan.Budget <= 0 {
		errs = append(errs, errors.New("scan budget must be positive"))
	}
	if c.Scan.NotFoundThreshold < 1 {
		errs = append(errs, errors.New("scan not_found_threshold must be at least 1"))
	}
	if c.Scan.Retry.Attempts < 1 {
		errs = append(errs, errors.New("scan retry attempts must be at least 1"))
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("otel sample_ratio %v out of range", c.OTel.SampleRatio))
	}
	return errors.Join(errs...)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString("FORGE_SERVER_HOST", &cfg.Server.Host)
	setString("FORGE_TRANSPORT_MODE", &cfg.Transport.Mode)
	setString("FORGE_AUTH_IDENTITY_URL", &cfg.Auth.IdentityURL)
	setString("FORGE_DB_PATH", &cfg.DB.Path)
	setString("FORGE_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("FORGE_STORAGE_BUCKET", &cfg.Storage.Bucket)
	setString("FORGE_STORAGE_PREFIX", &cfg.Storage.Prefix)
	setString("FORGE_STORAGE_REGION", &cfg.Storage.Region)
	setString("FORGE_STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	setString("FORGE_LOG_LEVEL", &cfg.Log.Level)
	setString("FORGE_GITHUB_API_BASE", &cfg.GitHub.APIBase)
	setString("FORGE_GITHUB_TOKEN", &cfg.GitHub.Token)
	setString("FORGE_FEED_URL", &cfg.Feed.URL)
	setString("FORGE_FEED_TOKEN", &cfg.Feed.Token)
	setString("FORGE_SCAN_SELF_DOMAIN", &cfg.Scan.SelfDomain)
	setString("FORGE_OTEL_ENDPOINT", &cfg.OTel.Endpoint)
	setString("FORGE_OTEL_SERVICE_NAME", &cfg.OTel.ServiceName)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	collect(setInt("FORGE_SERVER_PORT", &cfg.Server.Port))
	collect(setBool("FORGE_AUTH_ENABLED", &cfg.Auth.Enabled))
	collect(setDuration("FORGE_AUTH_CACHE_TTL", &cfg.Auth.CacheTTL))
	collect(setFloat("FORGE_GITHUB_RPS", &cfg.GitHub.RPS))
	collect(setInt("FORGE_GITHUB_BURST", &cfg.GitHub.Burst))
	collect(setInt("FORGE_FEED_LIMIT", &cfg.Feed.Limit))
	collect(setDuration("FORGE_SCAN_BUDGET", &cfg.Scan.Budget))
	collect(setDuration("FORGE_SCAN_INTERVAL", &cfg.Scan.Interval))
	collect(setInt("FORGE_SCAN_NOT_FOUND_THRESHOLD", &cfg.Scan.NotFoundThreshold))
	collect(setInt("FORGE_SCAN_ARCHIVE_CAP", &cfg.Scan.ArchiveCap))
	collect(setInt("FORGE_SCAN_PROCESSED_CAP", &cfg.Scan.ProcessedCap))
	collect(setInt("FORGE_SCAN_RETRY_ATTEMPTS", &cfg.Scan.Retry.Attempts))
	collect(setBool("FORGE_OTEL_ENABLED", &cfg.OTel.Enabled))
	collect(setBool("FORGE_OTEL_INSECURE", &cfg.OTel.Insecure))
	collect(setFloat("FORGE_OTEL_SAMPLE_RATIO", &cfg.OTel.SampleRatio))
	collect(setBool("FORGE_METRICS_ENABLED", &cfg.Metrics.Enabled))
	return errors.Join(errs...)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
