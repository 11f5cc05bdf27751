// Command shelfmark is a terminal client for the Shelfmark book-library
// tracker. It exercises the session SDK end to end: login, silent refresh,
// status, and logout against a running identity endpoint.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shelfmark/client-go/identity"
	"github.com/shelfmark/client-go/internal/config"
	"github.com/shelfmark/client-go/session"
	"github.com/shelfmark/client-go/storage"
	"github.com/shelfmark/client-go/storage/filestore"
	"github.com/shelfmark/client-go/storage/securestore"
	"github.com/shelfmark/client-go/storage/sqlitestore"
)

func main() {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg     config.Config
	log     zerolog.Logger
	manager *session.Manager
	cleanup func()
}

func newApp() (*app, error) {
	cfg := config.New()

	level := zerolog.WarnLevel
	if cfg.GetEnv() == "DEV" {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	adapter, cleanup, err := buildStorage(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] buildStorage")
	}

	identityClient, err := identity.New(
		cfg.GetIdentityBaseURL(),
		identity.WithTimeout(time.Duration(cfg.GetHTTPTimeoutSeconds())*time.Second),
		identity.WithLogger(log),
	)
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "[newApp] identity.New")
	}

	manager, err := session.New(
		session.Deps{Identity: identityClient, Storage: adapter},
		session.WithLogger(log),
	)
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "[newApp] session.New")
	}

	return &app{cfg: cfg, log: log, manager: manager, cleanup: cleanup}, nil
}

func buildStorage(cfg config.Config) (storage.Adapter, func(), error) {
	noop := func() {}
	switch backend := cfg.GetStorageBackend(); backend {
	case config.StorageBackendFile:
		store, err := filestore.New(cfg.GetDataFolder())
		return store, noop, err
	case config.StorageBackendSecure:
		store, err := securestore.New(cfg.GetDataFolder(), cfg.GetSecurePassphrase())
		return store, noop, err
	case config.StorageBackendSqlite:
		if err := os.MkdirAll(cfg.GetDataFolder(), 0o700); err != nil {
			return nil, noop, errors.Wrap(err, "[buildStorage] create data folder")
		}
		store, err := sqlitestore.New(filepath.Join(cfg.GetDataFolder(), "shelfmark.db"))
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, noop, errors.Errorf("unknown storage backend %q", backend)
	}
}
