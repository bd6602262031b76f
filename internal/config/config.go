package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default binary name for the platform CLI, resolved via PATH when
// ANYPOINT_CLI_BIN is not set.
const defaultCLIBinary = "anypoint-cli-v4"

// Config holds the credentials, scoping and paths consumed by the platform
// executor. It is constructed once at process start and injected; nothing in
// the core reads the environment directly.
type Config struct {
	// CLIBinary is the path to the external platform CLI binary
	CLIBinary string
	// OrgID scopes every remote call to one organization
	OrgID string
	// EnvID scopes every remote call to one environment
	EnvID string
	// ClientID is the connected-app client id passed to the CLI
	ClientID string
	// ClientSecret is the connected-app client secret passed to the CLI
	ClientSecret string
	// DataDir is where local state such as run history is kept
	DataDir string
}

// FromEnv builds a Config from process environment variables
func FromEnv() *Config {
	cfg := &Config{
		CLIBinary:    os.Getenv("ANYPOINT_CLI_BIN"),
		OrgID:        os.Getenv("ANYPOINT_ORG_ID"),
		EnvID:        os.Getenv("ANYPOINT_ENV_ID"),
		ClientID:     os.Getenv("ANYPOINT_CLIENT_ID"),
		ClientSecret: os.Getenv("ANYPOINT_CLIENT_SECRET"),
		DataDir:      os.Getenv("ANYPOINT_DATA_DIR"),
	}

	if cfg.CLIBinary == "" {
		cfg.CLIBinary = defaultCLIBinary
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	return cfg
}

// Validate checks that the scoping required for remote calls is present
func (c *Config) Validate() error {
	if c.OrgID == "" {
		return fmt.Errorf("organization id is required (set ANYPOINT_ORG_ID)")
	}
	if c.EnvID == "" {
		return fmt.Errorf("environment id is required (set ANYPOINT_ENV_ID)")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anypoint-automation"
	}
	return filepath.Join(home, ".anypoint-automation")
}
