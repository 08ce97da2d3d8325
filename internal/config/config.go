package config

import (
	"os"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Credit   CreditConfig   `mapstructure:"credit"`
	Identity IdentityConfig `mapstructure:"identity"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type AIConfig struct {
	Provider     string       `mapstructure:"provider"`
	SystemPrompt string       `mapstructure:"system_prompt"`
	Gemini       GeminiConfig `mapstructure:"gemini"`
	OpenAI       OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type CreditConfig struct {
	DailyLimit    int           `mapstructure:"daily_limit"`
	ResetInterval time.Duration `mapstructure:"reset_interval"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
}

type IdentityConfig struct {
	LookupURL string        `mapstructure:"lookup_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type StorageConfig struct {
	Type     string                 `mapstructure:"type"`
	DataDir  string                 `mapstructure:"data_dir"`
	Postgres storage.PostgresConfig `mapstructure:"postgres"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CHAT")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Config file wins; fall back to the plain env var when it is unset.
	if cfg.AI.Gemini.APIKey == "" {
		cfg.AI.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.OpenAI.APIKey == "" {
		cfg.AI.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 120*time.Second)
	viper.SetDefault("server.max_header_bytes", 1<<20)

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	viper.SetDefault("ai.gemini.timeout", 60*time.Second)
	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.timeout", 60*time.Second)

	viper.SetDefault("credit.daily_limit", 50)
	viper.SetDefault("credit.reset_interval", 24*time.Hour)
	viper.SetDefault("credit.tick_interval", time.Second)

	viper.SetDefault("identity.lookup_url", "https://api.ipify.org?format=json")
	viper.SetDefault("identity.timeout", 5*time.Second)

	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.user", "postgres")
	viper.SetDefault("storage.postgres.sslmode", "disable")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func Get() *Config {
	return cfg
}
