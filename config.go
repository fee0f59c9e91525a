package courserag

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Desarso/courserag/stores"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds settings for the course assistant service
type Config struct {
	ModelProvider   string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
	EmbeddingModel  string
	EmbeddingDims   int

	VectorDBURL    string
	MaxResults     int
	HistoryStore   string // "memory", "sqlite", "postgres"
	HistoryDSN     string
	HistoryOptions map[string]string
	MaxHistory     int

	Port          string
	StaticDir     string
	SessionTTL    time.Duration
	PruneSchedule string
	LogLevel      string
}

// NewConfig creates a configuration with default values
func NewConfig() *Config {
	return &Config{
		ModelProvider:  ProviderAnthropic,
		AnthropicModel: "claude-sonnet-4-20250514",
		GeminiModel:    "gemini-2.0-flash",
		EmbeddingModel: "gemini-embedding-001",
		EmbeddingDims:  768,
		MaxResults:     5,
		HistoryStore:   "memory",
		HistoryDSN:     "chat_history.sqlite",
		HistoryOptions: map[string]string{},
		MaxHistory:     2,
		Port:           "8000",
		SessionTTL:     24 * time.Hour,
		PruneSchedule:  "0 */15 * * * *",
		LogLevel:       "info",
	}
}

// LoadConfig reads .env if present, then overlays environment variables on the defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	c := NewConfig()
	c.ModelProvider = envString("MODEL_PROVIDER", c.ModelProvider)
	c.AnthropicAPIKey = envString("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envString("ANTHROPIC_MODEL", c.AnthropicModel)
	c.GeminiAPIKey = envString("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = envString("GEMINI_MODEL", c.GeminiModel)
	c.EmbeddingModel = envString("EMBEDDING_MODEL", c.EmbeddingModel)
	c.VectorDBURL = envString("VECTOR_DB_URL", c.VectorDBURL)
	c.HistoryStore = envString("HISTORY_STORE", c.HistoryStore)
	c.HistoryDSN = envString("HISTORY_DSN", c.HistoryDSN)
	c.Port = envString("PORT", c.Port)
	c.StaticDir = envString("STATIC_DIR", c.StaticDir)
	c.PruneSchedule = envString("PRUNE_SCHEDULE", c.PruneSchedule)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)

	var err error
	if c.EmbeddingDims, err = envInt("EMBEDDING_DIMENSIONS", c.EmbeddingDims); err != nil {
		return nil, err
	}
	if c.MaxResults, err = envInt("MAX_RESULTS", c.MaxResults); err != nil {
		return nil, err
	}
	if c.MaxHistory, err = envInt("MAX_HISTORY", c.MaxHistory); err != nil {
		return nil, err
	}
	if v := os.Getenv("HISTORY_OPTIONS"); v != "" {
		opts, err := stores.ParseOptions(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HISTORY_OPTIONS: %w", err)
		}
		c.HistoryOptions = opts
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		c.SessionTTL = ttl
	}
	return c, nil
}

// WithModelProvider sets which model backend answers queries
func (c *Config) WithModelProvider(provider string) *Config {
	c.ModelProvider = provider
	return c
}

// WithAnthropic sets the Anthropic credentials and model
func (c *Config) WithAnthropic(apiKey, model string) *Config {
	c.AnthropicAPIKey = apiKey
	if model != "" {
		c.AnthropicModel = model
	}
	return c
}

// WithVectorDB sets the pgvector connection string
func (c *Config) WithVectorDB(url string) *Config {
	c.VectorDBURL = url
	return c
}

// WithHistoryStore sets the history backend and its connection string
func (c *Config) WithHistoryStore(storeType, dsn string) *Config {
	c.HistoryStore = storeType
	c.HistoryDSN = dsn
	return c
}

// WithHistoryOption sets a store option such as busy_timeout or max_open_conns
func (c *Config) WithHistoryOption(key, value string) *Config {
	if c.HistoryOptions == nil {
		c.HistoryOptions = make(map[string]string)
	}
	c.HistoryOptions[key] = value
	return c
}

// WithMaxHistory sets how many exchanges are replayed into the prompt
func (c *Config) WithMaxHistory(n int) *Config {
	c.MaxHistory = n
	return c
}

// WithMaxResults sets how many chunks a search returns
func (c *Config) WithMaxResults(n int) *Config {
	c.MaxResults = n
	return c
}

// WithPort sets the HTTP listen port
func (c *Config) WithPort(port string) *Config {
	c.Port = port
	return c
}

// WithStaticDir sets the directory served as the frontend
func (c *Config) WithStaticDir(dir string) *Config {
	c.StaticDir = dir
	return c
}

// WithSessionPruning sets the idle TTL and the cron schedule that enforces it
func (c *Config) WithSessionPruning(ttl time.Duration, schedule string) *Config {
	c.SessionTTL = ttl
	c.PruneSchedule = schedule
	return c
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.ModelProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unsupported model provider: %s", c.ModelProvider)
	}
	if c.VectorDBURL == "" {
		return errors.New("VECTOR_DB_URL is required")
	}
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required for query embeddings")
	}
	switch c.HistoryStore {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported history store: %s", c.HistoryStore)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("MAX_RESULTS must be positive, got %d", c.MaxResults)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("MAX_HISTORY must be positive, got %d", c.MaxHistory)
	}
	if c.EmbeddingDims <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDims)
	}
	if c.SessionTTL > 0 && c.PruneSchedule != "" {
		if _, err := cronParser.Parse(c.PruneSchedule); err != nil {
			return fmt.Errorf("invalid PRUNE_SCHEDULE %q: %w", c.PruneSchedule, err)
		}
	}
	return nil
}

// cronParser accepts six-field expressions with a leading seconds field.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
