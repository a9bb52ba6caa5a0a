package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de curvewatch.
type Config struct {
	Sources  SourcesConfig  `yaml:"sources"`
	Retry    RetryConfig    `yaml:"retry"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Backfill BackfillConfig `yaml:"backfill"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// SourcesConfig contiene los base URLs, las keys y el ritmo de cada proveedor.
type SourcesConfig struct {
	FREDBase       string  `yaml:"fred_base"`
	FREDAPIKey     string  `yaml:"fred_api_key"`
	FMPBase        string  `yaml:"fmp_base"`
	FMPAPIKey      string  `yaml:"fmp_api_key"`
	BoCBase        string  `yaml:"boc_base"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	FREDRatePerSec float64 `yaml:"fred_rate_per_sec"`
	FMPRatePerSec  float64 `yaml:"fmp_rate_per_sec"`
	BoCRatePerSec  float64 `yaml:"boc_rate_per_sec"`
}

// RetryConfig controla el backoff de las llamadas transitorias.
type RetryConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	InitialDelayMS int `yaml:"initial_delay_ms"`
}

// BreakerConfig controla los circuit breakers por fuente.
type BreakerConfig struct {
	ConsecutiveFailures int `yaml:"consecutive_failures"`
	OpenSeconds         int `yaml:"open_seconds"`
}

// BackfillConfig controla el ritmo del backfill histórico.
type BackfillConfig struct {
	Months          int `yaml:"months"`
	BatchSize       int `yaml:"batch_size"`
	BatchDelayMS    int `yaml:"batch_delay_ms"`
	USSeriesDelayMS int `yaml:"us_series_delay_ms"`
	CASeriesDelayMS int `yaml:"ca_series_delay_ms"`
	GapDays         int `yaml:"gap_days"`
	GapWindowDays   int `yaml:"gap_window_days"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	Driver         string `yaml:"driver"` // sqlite | postgres
	DSN            string `yaml:"dsn"`    // ruta al archivo SQLite, ":memory:" o DSN de Postgres
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CacheConfig elige la caché de curvas.
type CacheConfig struct {
	Backend    string `yaml:"backend"` // memory | redis | none
	TTLSeconds int    `yaml:"ttl_seconds"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	RedisPass  string `yaml:"redis_password"`
	Prefix     string `yaml:"prefix"`
}

// ServerConfig controla el servidor HTTP.
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	HistoryDays         int    `yaml:"history_days"`
	RollingWindow       int    `yaml:"rolling_window"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben al YAML. Un path vacío usa solo defaults y entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		// Claves desconocidas son error.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// SourceTimeout es el timeout por llamada HTTP.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Sources.TimeoutSeconds) * time.Second
}

// CacheTTL devuelve la vida de las curvas en caché.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// StorageTimeout es el timeout por operación de Postgres.
func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.Storage.TimeoutSeconds) * time.Second
}

// Millis convierte milisegundos de configuración a time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		cfg.Sources.FREDAPIKey = v
	}
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		cfg.Sources.FMPAPIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Backend = "redis"
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPass = v
	}
	if v := os.Getenv("CURVEWATCH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	s := &cfg.Sources
	if s.FREDBase == "" {
		s.FREDBase = "https://api.stlouisfed.org/fred"
	}
	if s.FMPBase == "" {
		s.FMPBase = "https://financialmodelingprep.com"
	}
	if s.BoCBase == "" {
		s.BoCBase = "https://www.bankofcanada.ca"
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = 10
	}
	if s.FREDRatePerSec <= 0 {
		s.FREDRatePerSec = 2
	}
	if s.FMPRatePerSec <= 0 {
		s.FMPRatePerSec = 5
	}
	if s.BoCRatePerSec <= 0 {
		s.BoCRatePerSec = 5
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelayMS <= 0 {
		cfg.Retry.InitialDelayMS = 1000
	}
	if cfg.Breaker.ConsecutiveFailures <= 0 {
		cfg.Breaker.ConsecutiveFailures = 5
	}
	if cfg.Breaker.OpenSeconds <= 0 {
		cfg.Breaker.OpenSeconds = 30
	}

	b := &cfg.Backfill
	if b.Months <= 0 {
		b.Months = 12
	}
	if b.BatchSize <= 0 {
		b.BatchSize = 50
	}
	if b.BatchDelayMS <= 0 {
		b.BatchDelayMS = 100
	}
	if b.USSeriesDelayMS <= 0 {
		b.USSeriesDelayMS = 200
	}
	if b.CASeriesDelayMS <= 0 {
		b.CASeriesDelayMS = 300
	}
	if b.GapDays <= 0 {
		b.GapDays = 30
	}
	if b.GapWindowDays <= 0 {
		b.GapWindowDays = 5
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "curvewatch.db"
	}
	if cfg.Storage.TimeoutSeconds <= 0 {
		cfg.Storage.TimeoutSeconds = 10
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 15 * 60
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "curvewatch:"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 10
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Server.HistoryDays <= 0 {
		cfg.Server.HistoryDays = 3650
	}
	if cfg.Server.RollingWindow <= 0 {
		cfg.Server.RollingWindow = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver %q: want sqlite or postgres", c.Storage.Driver)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend %q: want memory, redis or none", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis backend")
	}
	return nil
}
