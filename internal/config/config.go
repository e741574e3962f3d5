package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Models     ModelsConfig     `yaml:"models" mapstructure:"models"`
	Brand      BrandConfig      `yaml:"brand" mapstructure:"brand"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key      string  `yaml:"key" mapstructure:"key"`
	BaseURL  string  `yaml:"base_url" mapstructure:"base_url"`
	Referer  string  `yaml:"referer" mapstructure:"referer"`
	Title    string  `yaml:"title" mapstructure:"title"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
	Burst    int     `yaml:"burst" mapstructure:"burst"`
	UseMocks bool    `yaml:"use_mocks" mapstructure:"use_mocks"`
}

// ModelsConfig maps answer engines and evaluation stages to model slugs.
type ModelsConfig struct {
	ChatGPT    string `yaml:"chatgpt" mapstructure:"chatgpt"`
	Perplexity string `yaml:"perplexity" mapstructure:"perplexity"`
	Default    string `yaml:"default" mapstructure:"default"`
	Evaluator  string `yaml:"evaluator" mapstructure:"evaluator"`
}

// BrandConfig identifies the brand under evaluation.
type BrandConfig struct {
	Names []string `yaml:"names" mapstructure:"names"`
}

// PipelineConfig configures stage execution behavior.
type PipelineConfig struct {
	JSONRetries        int `yaml:"json_retries" mapstructure:"json_retries"`
	MaxCounterfactuals int `yaml:"max_counterfactuals" mapstructure:"max_counterfactuals"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port          int    `yaml:"port" mapstructure:"port"`
	BasicAuthUser string `yaml:"basic_auth_user" mapstructure:"basic_auth_user"`
	BasicAuthPass string `yaml:"basic_auth_pass" mapstructure:"basic_auth_pass"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AEOLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "aeolab.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("openrouter.key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.referer", "https://sellsadvisors.com")
	v.SetDefault("openrouter.title", "AEO Evaluation Lab")
	v.SetDefault("openrouter.rps", 2)
	v.SetDefault("openrouter.burst", 4)
	v.SetDefault("openrouter.use_mocks", false)
	v.SetDefault("models.chatgpt", "openai/gpt-4o-mini")
	v.SetDefault("models.perplexity", "perplexity/sonar")
	v.SetDefault("models.default", "openai/gpt-4o-mini")
	v.SetDefault("models.evaluator", "openai/gpt-4o-mini")
	v.SetDefault("brand.names", []string{"Sells Advisors"})
	v.SetDefault("pipeline.json_retries", 2)
	v.SetDefault("pipeline.max_counterfactuals", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.basic_auth_user", "")
	v.SetDefault("server.basic_auth_pass", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a given mode depends on. Modes are "run" for
// pipeline execution and "serve" for the HTTP API.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		if c.OpenRouter.Key == "" && !c.OpenRouter.UseMocks {
			problems = append(problems, "openrouter.key is required unless openrouter.use_mocks is set")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if (c.Server.BasicAuthUser == "") != (c.Server.BasicAuthPass == "") {
			problems = append(problems, "server.basic_auth_user and server.basic_auth_pass must be set together")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.OpenRouter.RPS <= 0 {
		problems = append(problems, "openrouter.rps must be > 0")
	}
	if c.Pipeline.JSONRetries < 0 || c.Pipeline.JSONRetries > 10 {
		problems = append(problems, "pipeline.json_retries must be between 0 and 10")
	}
	if c.Pipeline.MaxCounterfactuals < 1 || c.Pipeline.MaxCounterfactuals > 10 {
		problems = append(problems, "pipeline.max_counterfactuals must be between 1 and 10")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
