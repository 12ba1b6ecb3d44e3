package config

import (
	"fmt"
	"os"
	"time"

	"BreadthPull/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout" validate:"required"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	CoinGecko struct {
		BaseURL      string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3" validate:"required,url"`
		APIKey       string        `yaml:"api_key"`
		APIKeyHeader string        `yaml:"api_key_header" default:"x-cg-demo-api-key" validate:"required"`
		VsCurrency   string        `yaml:"vs_currency" default:"usd" validate:"required"`
		Days         int           `yaml:"days" default:"90" validate:"gte=1,lte=3650"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
		MaxRetries   int           `yaml:"max_retries" default:"5" validate:"gte=0,lte=10"`
		BaseDelay    time.Duration `yaml:"base_delay" default:"2s"`
		Pacing       time.Duration `yaml:"pacing" default:"2500ms"`
	} `yaml:"coingecko"`
	Cache struct {
		TTL           time.Duration `yaml:"ttl" default:"1h"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"256" validate:"gte=1"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"breadth"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Breadth struct {
		Basket            []string `yaml:"basket" validate:"required,min=1,unique,dive,required"`
		Primary           string   `yaml:"primary" default:"bitcoin" validate:"required"`
		BufferFactor      float64  `yaml:"buffer_factor" default:"1.0" validate:"gte=1"`
		ShortWindow       int      `yaml:"short_window" default:"10" validate:"gte=1"`
		LongWindow        int      `yaml:"long_window" default:"30" validate:"gte=1,gtfield=ShortWindow"`
		UseReferenceTotal bool     `yaml:"use_reference_total"`
	} `yaml:"breadth"`
	Pipeline struct {
		Timeout         time.Duration `yaml:"timeout" default:"10m"`
		RefreshInterval time.Duration `yaml:"refresh_interval" default:"1h"`
	} `yaml:"pipeline"`
	Charts struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir" default:"charts"`
		Tail    int    `yaml:"tail" default:"90" validate:"gte=1"`
		Width   int    `yaml:"width" default:"10"`
		Height  int    `yaml:"height" default:"5"`
	} `yaml:"charts"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"breadth.reports"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := getenv("COINGECKO_BASE_URL"); v != "" {
		c.CoinGecko.BaseURL = v
	}
	if v := getenv("BASKET"); v != "" {
		c.Breadth.Basket = util.SplitList(v)
	}
	if v := getenv("PRIMARY_ASSET"); v != "" {
		c.Breadth.Primary = v
	}
	if v := getenv("BUFFER_FACTOR"); v != "" {
		c.Breadth.BufferFactor = util.ParseFloatDefault(v, c.Breadth.BufferFactor)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	found := false
	for _, id := range c.Breadth.Basket {
		if id == c.Breadth.Primary {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("breadth.primary %q must be part of breadth.basket", c.Breadth.Primary)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
