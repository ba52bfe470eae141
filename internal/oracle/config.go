package oracle

import (
	"context"
	"log/slog"

	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/errors"
)

// FromConfig builds the oracle selected in cfg. Remote oracles come wrapped in [Fallback]. The returned function
// releases the oracle's resources.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Oracle, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Oracle {
	case config.OracleScripted:
		return Scripted{}, noop, nil
	case config.OracleOpenAI:
		return NewFallback(NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), logger), noop, nil
	case config.OracleGemini:
		gemini, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return NewFallback(gemini, logger), gemini.Close, nil
	default:
		return nil, nil, errors.Wrap(config.ErrInvalidConfig, "unknown oracle", slog.String("oracle", cfg.Oracle))
	}
}
