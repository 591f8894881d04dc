// Package config loads the binary-cache server's configuration: defaults,
// optional ".env" overrides via godotenv, and the deprecated
// singular-signing-key-path compatibility shim, the way
// harmonia/src/config.rs and its earlier src/config.rs layer config.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the fully-resolved server configuration.
type Config struct {
	Bind              string
	Workers           int
	MaxConnectionRate int
	Priority          int
	VirtualNixStore   string
	RealNixStore      string
	DaemonSocket      string
	SignKeyPaths      []string
	TLSCertPath       string
	TLSKeyPath        string
	StateDir          string
}

// Default returns the configuration's built-in defaults, matching
// harmonia/src/config.rs's default_* functions.
func Default() Config {
	return Config{
		Bind:              "[::]:5000",
		Workers:           4,
		MaxConnectionRate: 256,
		Priority:          30,
		VirtualNixStore:   "/nix/store",
		DaemonSocket:      "/nix/var/nix/daemon-socket/socket",
		StateDir:          filepath.Join(xdg.StateHome, "go-cache-daemon"),
	}
}

// Load builds a Config from defaults, an optional ".env" file at envPath
// (ignored if absent), and the environment. envPath may be empty, in which
// case no .env file is read.
func Load(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return Config{}, err
			}
		}
	}

	if v := os.Getenv("BIND"); v != "" {
		cfg.Bind = v
	}

	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("MAX_CONNECTION_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConnectionRate = n
		}
	}

	if v := os.Getenv("PRIORITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Priority = n
		}
	}

	if v := os.Getenv("NIX_STORE_DIR"); v != "" {
		cfg.VirtualNixStore = v
	} else if v := os.Getenv("VIRTUAL_NIX_STORE"); v != "" {
		cfg.VirtualNixStore = v
	}

	if v := os.Getenv("REAL_NIX_STORE"); v != "" {
		cfg.RealNixStore = v
	}

	if v := os.Getenv("NIX_DAEMON_SOCKET"); v != "" {
		cfg.DaemonSocket = v
	}

	if v := os.Getenv("TLS_CERT_PATH"); v != "" {
		cfg.TLSCertPath = v
	}

	if v := os.Getenv("TLS_KEY_PATH"); v != "" {
		cfg.TLSKeyPath = v
	}

	if v := os.Getenv("SIGN_KEY_PATH"); v != "" {
		logrus.Warn("SIGN_KEY_PATH is deprecated, use SIGN_KEY_PATHS instead")
		cfg.SignKeyPaths = append(cfg.SignKeyPaths, v)
	}

	if v := os.Getenv("SIGN_KEY_PATHS"); v != "" {
		cfg.SignKeyPaths = append(cfg.SignKeyPaths, strings.Fields(v)...)
	}

	return cfg, nil
}

// AddSignKeyPath appends a signing key path, folding in the deprecated
// singular CLI flag the same way the legacy sign_key_path config field
// folds into sign_key_paths.
func (c *Config) AddSignKeyPath(path string) {
	if path == "" {
		return
	}

	c.SignKeyPaths = append(c.SignKeyPaths, path)
}
