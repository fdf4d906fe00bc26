package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	JWTSecret    string

	// AI chat (optional; chat endpoints return 503 when unset)
	AnthropicKey string
	Model        string

	// Plaid (optional; bank endpoints return 503 when unset)
	PlaidClientID string
	PlaidSecret   string
	PlaidEnv      string

	// Scrape pipeline
	ScrapeWorkers int
	WorkerKey     string
}

// ParseFlags validates flags and fills in environment fallbacks
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("lodestar", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.IntVar(&cfg.ScrapeWorkers, "workers", -1, "In-process scrape workers (0 disables)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "JWT signing secret (prefer env)")
	fs.StringVar(&cfg.WorkerKey, "worker-key", "", "Shared key for scrape worker callbacks (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 4217 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("DATABASE_TYPE must be sqlite or postgres")
	}

	// Secrets - JWT secret MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	if cfg.WorkerKey == "" {
		cfg.WorkerKey = os.Getenv("SCRAPE_WORKER_KEY")
	}

	if cfg.ScrapeWorkers < 0 {
		if n := os.Getenv("SCRAPE_WORKERS"); n != "" {
			workers, err := strconv.Atoi(n)
			if err != nil || workers < 0 {
				return Config{}, errors.New("invalid SCRAPE_WORKERS env variable")
			}
			cfg.ScrapeWorkers = workers
		} else {
			cfg.ScrapeWorkers = 0
		}
	}

	// Optional integrations, env only
	cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Model = os.Getenv("LODESTAR_MODEL")
	cfg.PlaidClientID = os.Getenv("PLAID_CLIENT_ID")
	cfg.PlaidSecret = os.Getenv("PLAID_SECRET")
	cfg.PlaidEnv = os.Getenv("PLAID_ENV")
	if cfg.PlaidEnv == "" {
		cfg.PlaidEnv = "sandbox"
	}

	return cfg, nil
}

// ChatEnabled reports whether the AI chat layer is configured
func (c Config) ChatEnabled() bool {
	return c.AnthropicKey != ""
}

// PlaidEnabled reports whether the Plaid integration is configured
func (c Config) PlaidEnabled() bool {
	return c.PlaidClientID != "" && c.PlaidSecret != ""
}
