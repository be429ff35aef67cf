package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"job-agent-core/internal/logging/types"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
		AllowOrigins []string      `yaml:"allow_origins"`
	} `yaml:"server"`

	Broker struct {
		RequestDestination string        `yaml:"request_destination" default:"job.scrape.request"`
		ReplyPrefix        string        `yaml:"reply_prefix" default:"job.scrape.reply"`
		PublishTimeout     time.Duration `yaml:"publish_timeout" default:"5s"`
	} `yaml:"broker"`

	Pipeline struct {
		LookbackCapDays  int           `yaml:"lookback_cap_days" default:"5"`
		DefaultTimeout   time.Duration `yaml:"default_timeout" default:"30s"`
		MaxTimeout       time.Duration `yaml:"max_timeout" default:"300s"`
		SweepInterval    time.Duration `yaml:"sweep_interval" default:"1s"`
		MaxActiveRuns    int           `yaml:"max_active_runs" default:"100"`
		ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" default:"30s"`
		RunStatusRetainT time.Duration `yaml:"run_status_retain" default:"10m"`
	} `yaml:"pipeline"`

	LLM struct {
		Provider    string        `yaml:"provider" default:"claude"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"claude-3-haiku-20240307"`
		MaxTokens   int           `yaml:"max_tokens" default:"4096"`
		Temperature float32       `yaml:"temperature" default:"0.1"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
		RatePerMin  int           `yaml:"rate_per_min" default:"60"`
	} `yaml:"llm"`

	Enrichment struct {
		Enabled            bool          `yaml:"enabled" default:"true"`
		MaxConcurrentTasks int           `yaml:"max_concurrent_tasks" default:"10"`
		TaskTimeout        time.Duration `yaml:"task_timeout" default:"60s"`
		CleanupInterval    time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxTaskAge         time.Duration `yaml:"max_task_age" default:"24h"`
	} `yaml:"enrichment"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Logging struct {
		Level    string                `yaml:"level" default:"info"`
		Adapters []types.AdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
// DefaultConfig returns a Config populated with in-code defaults only,
// ignoring config files and environment variables
func DefaultConfig() *Config {
	config := &Config{}
	config.setDefaults()
	return config
}

func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}
	config.setDefaults()

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

func (c *Config) setDefaults() {
	c.Server.Port = 8080
	c.Server.Host = "0.0.0.0"
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.IdleTimeout = 60 * time.Second

	c.Broker.RequestDestination = "job.scrape.request"
	c.Broker.ReplyPrefix = "job.scrape.reply"
	c.Broker.PublishTimeout = 5 * time.Second

	c.Pipeline.LookbackCapDays = 5
	c.Pipeline.DefaultTimeout = 30 * time.Second
	c.Pipeline.MaxTimeout = 300 * time.Second
	c.Pipeline.SweepInterval = time.Second
	c.Pipeline.MaxActiveRuns = 100
	c.Pipeline.ShutdownTimeout = 30 * time.Second
	c.Pipeline.RunStatusRetainT = 10 * time.Minute

	c.LLM.Provider = "claude"
	c.LLM.Model = "claude-3-haiku-20240307"
	c.LLM.MaxTokens = 4096
	c.LLM.Temperature = 0.1
	c.LLM.Timeout = 30 * time.Second
	c.LLM.RatePerMin = 60

	c.Enrichment.Enabled = true
	c.Enrichment.MaxConcurrentTasks = 10
	c.Enrichment.TaskTimeout = 60 * time.Second
	c.Enrichment.CleanupInterval = time.Hour
	c.Enrichment.MaxTaskAge = 24 * time.Hour

	c.Redis.URL = "redis://localhost:6379"
	c.Redis.DB = 0
	c.Redis.Timeout = 5 * time.Second

	c.Logging.Level = "info"
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if dest := os.Getenv("BROKER_REQUEST_DESTINATION"); dest != "" {
		c.Broker.RequestDestination = dest
	}

	if prefix := os.Getenv("BROKER_REPLY_PREFIX"); prefix != "" {
		c.Broker.ReplyPrefix = prefix
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		c.Database.URL = databaseURL
	}

	if capDays := os.Getenv("PIPELINE_LOOKBACK_CAP_DAYS"); capDays != "" {
		if days, err := strconv.Atoi(capDays); err == nil {
			c.Pipeline.LookbackCapDays = days
		}
	}

	if enabled := os.Getenv("ENRICHMENT_ENABLED"); enabled != "" {
		c.Enrichment.Enabled = enabled == "true" || enabled == "1"
	}
}
