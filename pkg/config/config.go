// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Ranker, Generation, VectorStore, Redis, Kafka, etc.).
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
	Server      ServerConfig      `yaml:"server"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Ranker      RankerConfig      `yaml:"ranker"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Generation  GenerationConfig  `yaml:"generation"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	Cache       CacheConfig       `yaml:"cache"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// CorpusConfig says where the corpus comes from and where the normalized copy
// is cached.
type CorpusConfig struct {
	URL          string        `yaml:"url"`
	CachePath    string        `yaml:"cachePath"`
	SeedPath     string        `yaml:"seedPath"`
	Name         string        `yaml:"name"`
	StartMarkers []string      `yaml:"startMarkers"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
}

// RankerConfig is the single threshold set used by the keyword ranker.
type RankerConfig struct {
	Mode                   string `yaml:"mode"`
	KeywordThreshold       int    `yaml:"keywordThreshold"`
	MinLineLength          int    `yaml:"minLineLength"`
	MinSentenceLength      int    `yaml:"minSentenceLength"`
	MaxOutputLength        int    `yaml:"maxOutputLength"`
	SentenceFallbackLength int    `yaml:"sentenceFallbackLength"`
}

// ChunkerConfig controls the overlapping windows fed to the vector store.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig selects keyword ranking or vector search.
type RetrievalConfig struct {
	Strategy string `yaml:"strategy"`
	TopK     int    `yaml:"topK"`
}

// ProviderConfig holds credentials and model settings for one generation provider.
type ProviderConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float32 `yaml:"temperature"`
}

// GenerationConfig selects the primary provider and its single fallback.
type GenerationConfig struct {
	Provider string         `yaml:"provider"`
	Fallback string         `yaml:"fallback"`
	Timeout  time.Duration  `yaml:"timeout"`
	OpenAI   ProviderConfig `yaml:"openai"`
	Gemini   ProviderConfig `yaml:"gemini"`
}

// EmbeddingConfig controls the embedding model used by the vector path. It
// reuses the OpenAI provider credentials.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batchSize"`
}

// VectorStoreConfig holds Qdrant connection settings.
type VectorStoreConfig struct {
	Type       string        `yaml:"type"`
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"apiKey"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig controls the in-process answer cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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
	QuestionEvents string `yaml:"questionEvents"`
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

// AnalyticsConfig controls event buffering and snapshot cadence. With Kafka
// enabled and ConsumeInProcess false the server only publishes, leaving
// aggregation to cmd/analytics.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	ConsumeInProcess bool          `yaml:"consumeInProcess"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging for the answer pipeline.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
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

// Validate rejects settings the ranker, chunker or provider registry cannot use.
func (c *Config) Validate() error {
	switch c.Ranker.Mode {
	case "line", "sentence":
	default:
		return fmt.Errorf("ranker.mode must be line or sentence, got %q", c.Ranker.Mode)
	}
	if c.Ranker.KeywordThreshold < 0 {
		return fmt.Errorf("ranker.keywordThreshold must be >= 0")
	}
	if c.Ranker.MaxOutputLength <= 0 {
		return fmt.Errorf("ranker.maxOutputLength must be positive")
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Size <= c.Chunker.Overlap {
		return fmt.Errorf("chunker requires size > overlap >= 0 (size=%d overlap=%d)", c.Chunker.Size, c.Chunker.Overlap)
	}
	switch c.Retrieval.Strategy {
	case "keyword", "vector":
	default:
		return fmt.Errorf("retrieval.strategy must be keyword or vector, got %q", c.Retrieval.Strategy)
	}
	if c.Generation.Provider == "" {
		return fmt.Errorf("generation.provider is required")
	}
	if c.Generation.Fallback != "" && c.Generation.Fallback == c.Generation.Provider {
		return fmt.Errorf("generation.fallback must differ from generation.provider")
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			RequestTimeout:  75 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			URL:       "https://www.gutenberg.org/cache/epub/100/pg100.txt",
			CachePath: "data/shakespeare.txt",
			Name:      "The Complete Works of William Shakespeare",
			StartMarkers: []string{
				"THE SONNETS",
				"ALL’S WELL THAT ENDS WELL",
				"THE TRAGEDY OF ANTONY AND CLEOPATRA",
			},
			FetchTimeout: 60 * time.Second,
		},
		Ranker: RankerConfig{
			Mode:                   "sentence",
			KeywordThreshold:       3,
			MinLineLength:          20,
			MinSentenceLength:      50,
			MaxOutputLength:        2000,
			SentenceFallbackLength: 8000,
		},
		Chunker: ChunkerConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			Strategy: "keyword",
			TopK:     5,
		},
		Generation: GenerationConfig{
			Provider: "openai",
			Fallback: "offline",
			Timeout:  45 * time.Second,
			OpenAI: ProviderConfig{
				Model:       "gpt-4o-mini",
				MaxTokens:   800,
				Temperature: 0.7,
			},
			Gemini: ProviderConfig{
				BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai/",
				Model:       "gemini-1.5-flash",
				MaxTokens:   800,
				Temperature: 0.7,
			},
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			BatchSize: 64,
		},
		VectorStore: VectorStoreConfig{
			Type:       "qdrant",
			URL:        "http://localhost:6333",
			Collection: "shakespeare",
			Timeout:    15 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
			TTL:     10 * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "shakespeareqa",
			User:            "shakespeareqa",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "shakespeareqa-group",
			Topics: KafkaTopics{
				QuestionEvents: "question-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: time.Hour,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			SnapshotInterval: time.Minute,
			ConsumeInProcess: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SQA_* environment variables and overrides the
// corresponding config fields. Provider API keys also fall back to the
// conventional OPENAI_API_KEY and GEMINI_API_KEY variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SQA_CORPUS_URL"); v != "" {
		cfg.Corpus.URL = v
	}
	if v := os.Getenv("SQA_CORPUS_CACHE_PATH"); v != "" {
		cfg.Corpus.CachePath = v
	}
	if v := os.Getenv("SQA_CORPUS_SEED_PATH"); v != "" {
		cfg.Corpus.SeedPath = v
	}
	if v := os.Getenv("SQA_RANKER_MODE"); v != "" {
		cfg.Ranker.Mode = v
	}
	if v := os.Getenv("SQA_RANKER_KEYWORD_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranker.KeywordThreshold = n
		}
	}
	if v := os.Getenv("SQA_RANKER_MAX_OUTPUT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranker.MaxOutputLength = n
		}
	}
	if v := os.Getenv("SQA_RETRIEVAL_STRATEGY"); v != "" {
		cfg.Retrieval.Strategy = v
	}
	if v := os.Getenv("SQA_GENERATION_PROVIDER"); v != "" {
		cfg.Generation.Provider = v
	}
	if v := os.Getenv("SQA_GENERATION_FALLBACK"); v != "" {
		cfg.Generation.Fallback = v
	}
	cfg.Generation.OpenAI.APIKey = firstNonEmpty(os.Getenv("SQA_OPENAI_API_KEY"), os.Getenv("OPENAI_API_KEY"), cfg.Generation.OpenAI.APIKey)
	cfg.Generation.Gemini.APIKey = firstNonEmpty(os.Getenv("SQA_GEMINI_API_KEY"), os.Getenv("GEMINI_API_KEY"), cfg.Generation.Gemini.APIKey)
	if v := os.Getenv("SQA_OPENAI_MODEL"); v != "" {
		cfg.Generation.OpenAI.Model = v
	}
	if v := os.Getenv("SQA_GEMINI_MODEL"); v != "" {
		cfg.Generation.Gemini.Model = v
	}
	if v := os.Getenv("SQA_VECTORSTORE_URL"); v != "" {
		cfg.VectorStore.URL = v
	}
	if v := os.Getenv("SQA_VECTORSTORE_API_KEY"); v != "" {
		cfg.VectorStore.APIKey = v
	}
	if v := os.Getenv("SQA_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("SQA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SQA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SQA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SQA_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("SQA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SQA_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("SQA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SQA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SQA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SQA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
