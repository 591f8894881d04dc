// Command binary-cache-server serves a read-only Nix binary cache over
// HTTP, backed by a local nix-daemon connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/nix-community/go-cache-daemon/internal/config"
	"github.com/nix-community/go-cache-daemon/internal/httpapi"
	"github.com/nix-community/go-cache-daemon/internal/store"
	"github.com/nix-community/go-cache-daemon/pkg/daemon"
	"github.com/nix-community/go-cache-daemon/pkg/signing"
)

var cli struct {
	EnvFile      string   `help:"Path to a .env file to load before reading environment variables." type:"path"`
	Bind         string   `help:"Address to listen on, or unix:///path/to.sock for a Unix domain socket." optional:""`
	SignKeyPath  []string `help:"Path to a Nix secret signing key file (repeatable)." type:"path"`
	DaemonSocket string   `help:"Path to the nix-daemon Unix domain socket." optional:""`
	VirtualStore string   `help:"Store path prefix as it should appear to clients (Nix's storeDir)." optional:""`
	RealStore    string   `help:"Filesystem path backing the store, if different from the virtual store." optional:""`
}

func main() {
	kong.Parse(&cli, kong.Description("Serve a Nix binary cache over HTTP."))

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := run(logger); err != nil {
		logger.WithError(err).Fatal("binary-cache-server exited")
	}
}

func run(logger *logrus.Logger) error {
	cfg, err := config.Load(cli.EnvFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cli.Bind != "" {
		cfg.Bind = cli.Bind
	}

	if cli.DaemonSocket != "" {
		cfg.DaemonSocket = cli.DaemonSocket
	}

	if cli.VirtualStore != "" {
		cfg.VirtualNixStore = cli.VirtualStore
	}

	if cli.RealStore != "" {
		cfg.RealNixStore = cli.RealStore
	}

	for _, p := range cli.SignKeyPath {
		cfg.AddSignKeyPath(p)
	}

	keys := make([]signing.Key, 0, len(cfg.SignKeyPaths))

	for _, p := range cfg.SignKeyPaths {
		key, err := signing.ParseKeyFile(p)
		if err != nil {
			return fmt.Errorf("load signing key %s: %w", p, err)
		}

		keys = append(keys, key)
	}

	logs := make(chan daemon.LogMessage, 64)
	go func() {
		sink := logger.WithField("source", "nix-daemon")
		for msg := range logs {
			switch {
			case msg.Activity != nil:
				sink.WithField("activity", msg.Activity.ID).Info(msg.Activity.Text)
			case msg.Type == daemon.LogStopActivity:
				sink.WithField("activity", msg.ActivityID).Debug("activity stopped")
			default:
				sink.Info(msg.Text + msg.Result)
			}
		}
	}()

	client := daemon.NewClient(cfg.DaemonSocket, daemon.WithLogChannel(logs))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to nix-daemon at %s: %w", cfg.DaemonSocket, err)
	}
	defer client.Close()

	logger.WithField("daemon_version", client.Info()).Info("connected to nix-daemon")

	st := store.New(cfg.VirtualNixStore, cfg.RealNixStore, client)

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", cfg.StateDir, err)
	}

	stateFile := filepath.Join(cfg.StateDir, "started_at")
	if err := os.WriteFile(stateFile, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", stateFile, err)
	}

	srv := httpapi.New(st, keys, logger)
	srv.StateFile = stateFile

	router := httpapi.NewRouter(srv)

	listener, err := bindListener(cfg.Bind)
	if err != nil {
		return fmt.Errorf("bind %s: %w", cfg.Bind, err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		logger.WithField("bind", cfg.Bind).Info("listening")

		if cfg.TLSCertPath != "" || cfg.TLSKeyPath != "" {
			serveErr <- httpServer.ServeTLS(listener, cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serveErr <- httpServer.Serve(listener)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-stop:
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}

// bindListener opens a TCP listener for a "host:port" address, or a Unix
// domain socket listener for a "unix:///path/to.sock" address, matching
// harmonia/src/main.rs's scheme-based bind dispatch.
func bindListener(bind string) (net.Listener, error) {
	u, err := url.Parse(bind)
	if err == nil && u.Scheme == "unix" {
		path := u.Path
		if path == "" {
			path = u.Opaque
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}

		return net.Listen("unix", path)
	}

	return net.Listen("tcp", bind)
}
