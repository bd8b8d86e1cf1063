// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. Legacy key=value parameter files are
// also accepted so that existing experiment setups keep working.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Search    SearchConfig    `yaml:"search"`
	Batch     BatchConfig     `yaml:"batch"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings. RateLimit is the number of
// requests per minute allowed from one client address; 0 disables it.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       int           `yaml:"rateLimit"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters. When Enabled, the
// document table (external ids, field lengths) is read from Postgres instead
// of the segment file.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	QueryEvents string `yaml:"queryEvents"`
	Documents   string `yaml:"documents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexConfig locates the segment file queries are evaluated against.
// FlushInterval is how often the indexer rewrites the segment while
// consuming documents from Kafka.
type IndexConfig struct {
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// RetrievalConfig selects the retrieval model and its parameters.
type RetrievalConfig struct {
	Algorithm      string             `yaml:"algorithm"`
	NumDocs        int                `yaml:"numDocs"`
	BM25           BM25Config         `yaml:"bm25"`
	Indri          IndriConfig        `yaml:"indri"`
	FieldExpansion bool               `yaml:"fieldExpansion"`
	FieldWeights   map[string]float64 `yaml:"fieldWeights"`
}

type BM25Config struct {
	B  float64 `yaml:"b"`
	K1 float64 `yaml:"k1"`
	K3 float64 `yaml:"k3"`
}

type IndriConfig struct {
	Mu     float64 `yaml:"mu"`
	Lambda float64 `yaml:"lambda"`
}

// SearchConfig controls result list size and presentation.
type SearchConfig struct {
	MaxResults   int    `yaml:"maxResults"`
	DefaultLimit int    `yaml:"defaultLimit"`
	TieBreak     string `yaml:"tieBreak"`
	RunTag       string `yaml:"runTag"`
}

// BatchConfig controls file-driven query evaluation.
type BatchConfig struct {
	QueryFile    string        `yaml:"queryFile"`
	OutputFile   string        `yaml:"outputFile"`
	Workers      int           `yaml:"workers"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls per-query span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// AnalyticsConfig controls query-event batching on the producing side and
// snapshot persistence in the analytics service.
type AnalyticsConfig struct {
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects parameter values no retrieval model can work with.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.NumDocs < 0 {
		return fmt.Errorf("retrieval.numDocs must be non-negative, got %d", r.NumDocs)
	}
	if r.BM25.B < 0 || r.BM25.B > 1 {
		return fmt.Errorf("retrieval.bm25.b must be in [0,1], got %g", r.BM25.B)
	}
	if r.BM25.K1 < 0 || r.BM25.K3 < 0 {
		return fmt.Errorf("retrieval.bm25.k1 and k3 must be non-negative")
	}
	if r.Indri.Mu < 0 {
		return fmt.Errorf("retrieval.indri.mu must be non-negative, got %g", r.Indri.Mu)
	}
	if r.Indri.Lambda < 0 || r.Indri.Lambda > 1 {
		return fmt.Errorf("retrieval.indri.lambda must be in [0,1], got %g", r.Indri.Lambda)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.maxResults must be positive, got %d", c.Search.MaxResults)
	}
	switch c.Search.TieBreak {
	case "desc", "asc":
	default:
		return fmt.Errorf("search.tieBreak must be \"desc\" or \"asc\", got %q", c.Search.TieBreak)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "query-analytics",
			Topics: KafkaTopics{
				QueryEvents: "query-events",
				Documents:   "documents",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Index: IndexConfig{
			Path:          "data/index.spdx",
			FlushInterval: 30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			Algorithm: "RankedBoolean",
			BM25: BM25Config{
				B:  0.75,
				K1: 1.2,
				K3: 0,
			},
			Indri: IndriConfig{
				Mu:     2500,
				Lambda: 0.4,
			},
			FieldWeights: map[string]float64{
				"url":    0.1,
				"body":   0.4,
				"inlink": 0.3,
				"title":  0.2,
			},
		},
		Search: SearchConfig{
			MaxResults:   100,
			DefaultLimit: 100,
			TieBreak:     "desc",
			RunTag:       "run-1",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Analytics: AnalyticsConfig{
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: time.Minute,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_INDEX_PATH"); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv("SP_RETRIEVAL_ALGORITHM"); v != "" {
		cfg.Retrieval.Algorithm = v
	}
	if v := os.Getenv("SP_RETRIEVAL_NUM_DOCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.NumDocs = n
		}
	}
	setFloat("SP_BM25_B", &cfg.Retrieval.BM25.B)
	setFloat("SP_BM25_K1", &cfg.Retrieval.BM25.K1)
	setFloat("SP_BM25_K3", &cfg.Retrieval.BM25.K3)
	setFloat("SP_INDRI_MU", &cfg.Retrieval.Indri.Mu)
	setFloat("SP_INDRI_LAMBDA", &cfg.Retrieval.Indri.Lambda)
	if v := os.Getenv("SP_BATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Workers = n
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func setFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
