package oracle

import (
	"fmt"
	"net/http"
	"os"

	"github.com/dhakalaashish/pr-guidebook/internal/config"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

// FromConfig builds the configured oracle wrapped in rate and timeout limits.
func FromConfig(cfg config.OracleConfig) (guidebook.Oracle, error) {
	var base guidebook.Oracle
	switch cfg.Provider {
	case "", "claude":
		base = NewClaudeRunner(cfg)
	case "openai":
		token := os.Getenv(cfg.APIKeyEnv)
		if token == "" {
			return nil, fmt.Errorf("%s is not set", cfg.APIKeyEnv)
		}
		base = NewOpenAIClient(cfg, token, http.DefaultClient)
	case "fake":
		if cfg.Fixture == "" {
			return nil, fmt.Errorf("oracle.fixture is required for the fake provider")
		}
		return NewFakeOracle(cfg.Fixture), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	return NewLimited(base, cfg.RatePerMinute, cfg.Timeout), nil
}
