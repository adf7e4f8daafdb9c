package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RPCEndpoint is one upstream Solana RPC node with its rate budget.
type RPCEndpoint struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Priority int    `yaml:"priority"`
	MaxRPS   int    `yaml:"max_rps"`
	Burst    int    `yaml:"burst"`
}

// ExchangeConfig is one watched DEX program.
type ExchangeConfig struct {
	Name           string `yaml:"name"`
	ProgramID      string `yaml:"program_id"`
	SignatureLimit int    `yaml:"signature_limit"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	RPC struct {
		Endpoints  []RPCEndpoint `yaml:"endpoints"`
		Commitment string        `yaml:"commitment"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"rpc"`
	Breaker struct {
		MaxFailures int           `yaml:"max_failures"`
		Cooldown    time.Duration `yaml:"cooldown"`
	} `yaml:"breaker"`
	Fetcher struct {
		Exchanges    []ExchangeConfig `yaml:"exchanges"`
		PollInterval time.Duration    `yaml:"poll_interval"`
		DedupWindow  time.Duration    `yaml:"dedup_window"`
	} `yaml:"fetcher"`
	Orchestrator struct {
		DetectorTimeout       time.Duration `yaml:"detector_timeout"`
		BatchTimeout          time.Duration `yaml:"batch_timeout"`
		MaxLatencyMs          float64       `yaml:"max_latency_ms"`
		MinSuccessRate        float64       `yaml:"min_success_rate"`
		MinParallelEfficiency float64       `yaml:"min_parallel_efficiency"`
	} `yaml:"orchestrator"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"stream"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Emission struct {
		BufferSize int `yaml:"buffer_size"`
	} `yaml:"emission"`
	Cache struct {
		Type     string        `yaml:"type"`
		TTL      time.Duration `yaml:"ttl"`
		Redis    struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
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

	if v := os.Getenv("RPC_ENDPOINTS"); v != "" {
		// comma-separated name=url pairs, appended at lowest priority
		for _, pair := range strings.Split(v, ",") {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			c.RPC.Endpoints = append(c.RPC.Endpoints, RPCEndpoint{
				Name:   parts[0],
				URL:    parts[1],
				MaxRPS: 5,
				Burst:  8,
			})
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("WS_URL"); v != "" {
		c.Stream.WebSocketURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.RPC.Endpoints) == 0 {
		return fmt.Errorf("rpc.endpoints cannot be empty")
	}
	for i, ep := range c.RPC.Endpoints {
		if ep.Name == "" || ep.URL == "" {
			return fmt.Errorf("rpc.endpoints[%d]: name and url are required", i)
		}
		if ep.MaxRPS <= 0 {
			return fmt.Errorf("rpc.endpoints[%d]: max_rps must be positive", i)
		}
		if ep.Burst < ep.MaxRPS {
			return fmt.Errorf("rpc.endpoints[%d]: burst must be at least max_rps", i)
		}
	}
	if len(c.Fetcher.Exchanges) == 0 {
		return fmt.Errorf("fetcher.exchanges cannot be empty")
	}
	for i, ex := range c.Fetcher.Exchanges {
		if ex.Name == "" || ex.ProgramID == "" {
			return fmt.Errorf("fetcher.exchanges[%d]: name and program_id are required", i)
		}
	}
	if c.Cache.Type != "" && c.Cache.Type != "memory" && c.Cache.Type != "redis" && c.Cache.Type != "layered" {
		return fmt.Errorf("cache.type must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Type)
	}
	return nil
}
