package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Defaults.
const (
	DefaultLedgerPath = "~/.openclaw/workspace/dana-ledger"
	DefaultAgent      = "alephOne"
	DefaultIndexPath  = "~/.cache/hooktriage/index.db"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Agent   AgentConfig       `yaml:"agent"`
	Ledger  LedgerConfig      `yaml:"ledger"`
	GitHub  GitHubConfig      `yaml:"github"`
	Publish PublishConfig     `yaml:"publish"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := c.GitHub.Validate(); err != nil {
		return fmt.Errorf("github: %w", err)
	}
	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AgentConfig identifies the agent this process triages for.
type AgentConfig struct {
	Name string `yaml:"name"`
}

// Validate validates the agent configuration.
func (c *AgentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
	)
}

// LedgerConfig holds the path to the ledger repository.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// GitHubConfig configures the issue fetcher. Token wins over TokenCommand;
// with neither, requests are unauthenticated.
type GitHubConfig struct {
	BaseURL      string   `yaml:"base_url"`
	Owner        string   `yaml:"owner"`
	Repo         string   `yaml:"repo"`
	Token        string   `yaml:"token"`
	TokenCommand []string `yaml:"token_command"`
}

// Validate validates the GitHub configuration.
func (c *GitHubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.Repo, validation.Required),
	)
}

// PublishConfig configures view regeneration and git publication.
type PublishConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ViewsCommand []string `yaml:"views_command"`
	Remote       string   `yaml:"remote"`
	Branch       string   `yaml:"branch"`
	// RemoteURL may contain {token}, substituted from the GitHub credentials.
	RemoteURL string `yaml:"remote_url"`
}

// Validate validates the publish configuration.
func (c *PublishConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Remote, validation.Required),
		validation.Field(&c.Branch, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration for the ledger index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the HTTP receiver.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Agent: AgentConfig{
			Name: DefaultAgent,
		},
		Ledger: LedgerConfig{
			Path: DefaultLedgerPath,
		},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
			Owner:   "clawDANA",
			Repo:    "dana-ledger",
		},
		Publish: PublishConfig{
			Enabled:      true,
			ViewsCommand: []string{"npm", "run", "views"},
			Remote:       "origin",
			Branch:       "main",
		},
		SQLite: SQLiteConfig{
			Path: DefaultIndexPath,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
