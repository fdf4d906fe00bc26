// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
)

func TestParseFlags_EnvVars(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("DATABASE_URL", "file:test.db")
	os.Setenv("JWT_SECRET", "test-secret")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default sqlite, got %q", cfg.DatabaseType)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("JWT_SECRET", "test-secret")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
}

func TestParseFlags_RequiresDatabaseURL(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret")
	defer os.Clearenv()

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestParseFlags_RequiresJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DATABASE_URL", "file:test.db")
	defer os.Clearenv()

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected error without JWT_SECRET")
	}
}

func TestParseFlags_InvalidDatabaseType(t *testing.T) {
	os.Setenv("DATABASE_URL", "file:test.db")
	os.Setenv("JWT_SECRET", "test-secret")
	defer os.Clearenv()

	if _, err := ParseFlags([]string{"-t", "mysql"}); err == nil {
		t.Error("expected error for unsupported database type")
	}
}

func TestParseFlags_OptionalIntegrations(t *testing.T) {
	os.Setenv("DATABASE_URL", "file:test.db")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ANTHROPIC_API_KEY", "sk-test")
	os.Setenv("PLAID_CLIENT_ID", "client")
	os.Setenv("PLAID_SECRET", "secret")
	os.Setenv("SCRAPE_WORKERS", "2")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.ChatEnabled() {
		t.Error("expected chat enabled")
	}
	if !cfg.PlaidEnabled() {
		t.Error("expected plaid enabled")
	}
	if cfg.PlaidEnv != "sandbox" {
		t.Errorf("expected default sandbox, got %q", cfg.PlaidEnv)
	}
	if cfg.ScrapeWorkers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.ScrapeWorkers)
	}
}
