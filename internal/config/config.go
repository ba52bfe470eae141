package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/myrjola/casebook/internal/errors"
)

// Oracle names accepted in CASEBOOK_ORACLE.
const (
	OracleScripted = "scripted"
	OracleOpenAI   = "openai"
	OracleGemini   = "gemini"
)

var ErrInvalidConfig = errors.NewSentinel("invalid configuration")

// Config is populated from the environment, see .env.example for the accepted variables.
type Config struct {
	SQLiteURL    string        `env:"CASEBOOK_SQLITE_URL" envDefault:"./casebook.sqlite"`
	Oracle       string        `env:"CASEBOOK_ORACLE" envDefault:"scripted"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	OpenAIModel  string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo-1106"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	CasesPath    string        `env:"CASEBOOK_CASES_PATH"`
	LabDelay     time.Duration `env:"CASEBOOK_LAB_DELAY" envDefault:"5s"`
	LogLevel     slog.Level    `env:"CASEBOOK_LOG_LEVEL" envDefault:"INFO"`
	// LogFile receives the logs of the terminal game, which owns stdout and stderr.
	LogFile string `env:"CASEBOOK_LOG_FILE" envDefault:"./casebook.log"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return validate(&cfg)
}

// LoadFrom reads the configuration from the given environment instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environment}) //nolint:exhaustruct // defaults
	if err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return validate(&cfg)
}

func validate(cfg *Config) (*Config, error) {
	switch cfg.Oracle {
	case OracleScripted:
	case OracleOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.Wrap(ErrInvalidConfig, "OPENAI_API_KEY is required for the openai oracle")
		}
	case OracleGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.Wrap(ErrInvalidConfig, "GEMINI_API_KEY is required for the gemini oracle")
		}
	default:
		return nil, errors.Wrap(ErrInvalidConfig, "unknown oracle", slog.String("oracle", cfg.Oracle))
	}
	if cfg.LabDelay < 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "lab delay must not be negative",
			slog.Duration("lab_delay", cfg.LabDelay))
	}
	return cfg, nil
}
