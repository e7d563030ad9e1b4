package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config keys.
const (
	cfgKeyDBPath      = "db_path"
	cfgKeyBaseURL     = "base_url"
	cfgKeyTokenSecret = "token_secret"
	cfgKeyTokenTTL    = "token_ttl"
	cfgKeyBatchLimit  = "batch_limit"
	cfgKeyTxAttempts  = "tx_attempts"
	cfgKeyTxBackoff   = "tx_backoff"
)

// defaultConfigYAML is written to config.yaml on `possync init`.
const defaultConfigYAML = `# possync configuration

# Path of the local SQLite database.
db_path: pos.db

# Base URL of the remote sync API.
base_url: http://localhost:8080

# Secret used to sign device tokens. Replace before provisioning.
token_secret: change-me

# Device token lifetime.
token_ttl: 24h

# Maximum oplog entries claimed per push request.
batch_limit: 200

# Write transaction retry tuning.
tx_attempts: 3
tx_backoff: 400ms
`

var cfg *viper.Viper

// configDir resolves the configuration directory: --config-dir flag, then
// POSSYNC_CONFIG_DIR, then $(CWD)/.possync.
func configDir() (string, error) {
	if flagConfigDir != "" {
		return flagConfigDir, nil
	}
	if dir := os.Getenv("POSSYNC_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return filepath.Join(cwd, ".possync"), nil
}

// loadConfig reads config.yaml from the config directory. A missing file is
// not an error; defaults apply until `possync init` writes one.
func loadConfig() error {
	dir, err := configDir()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetDefault(cfgKeyDBPath, "pos.db")
	v.SetDefault(cfgKeyBaseURL, "http://localhost:8080")
	v.SetDefault(cfgKeyTokenTTL, "24h")
	v.SetDefault(cfgKeyBatchLimit, 200)
	v.SetDefault(cfgKeyTxAttempts, 3)
	v.SetDefault(cfgKeyTxBackoff, "400ms")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("POSSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg = v
	return nil
}

// ensureDefaultConfig creates the config directory and a default config.yaml
// if absent, returning the config file path.
func ensureDefaultConfig() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}

// dbPath returns the database file, honoring the --db flag over config.
func dbPath() string {
	if flagDBPath != "" {
		return flagDBPath
	}
	return cfg.GetString(cfgKeyDBPath)
}

func txBackoff() time.Duration {
	d, err := time.ParseDuration(cfg.GetString(cfgKeyTxBackoff))
	if err != nil {
		return 0
	}
	return d
}

func tokenTTL() time.Duration {
	d, err := time.ParseDuration(cfg.GetString(cfgKeyTokenTTL))
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
