package runlens

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-cz/devslog"
	"github.com/google/wire"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/hayeah/runlens/api"
	"github.com/hayeah/runlens/client"
	"github.com/hayeah/runlens/internal/config"
	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
	"github.com/hayeah/runlens/section"
	"github.com/hayeah/runlens/store"
)

// ProvideConfig loads the config file and applies flag overrides.
func ProvideConfig(args *Args) (*config.Config, error) {
	cfg, err := config.Load(args.Config)
	if err != nil {
		return nil, err
	}
	if args.DB != "" {
		cfg.DBPath = args.DB
	}
	if args.Remote != "" {
		cfg.RemoteURL = args.Remote
	}
	if args.Project != "" {
		cfg.Project = args.Project
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}
	if args.LogFormat != "" {
		cfg.LogFormat = args.LogFormat
	}
	if args.Serve != nil && args.Serve.Listen != "" {
		cfg.Listen = args.Serve.Listen
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProvideLogger builds the process logger. "auto" picks devslog on a terminal
// and JSON otherwise.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	format := cfg.LogFormat
	if format == "auto" {
		format = "json"
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "dev"
		}
	}

	var h slog.Handler
	switch format {
	case "dev":
		h = devslog.NewHandler(os.Stderr, &devslog.Options{HandlerOptions: opts})
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	default:
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}

// ProvideDB opens the name index. With a remote index the local one is kept
// in memory.
func ProvideDB(cfg *config.Config, logger *slog.Logger) (*sqlx.DB, func(), error) {
	path := cfg.DBPath
	if cfg.RemoteURL != "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("opened name index", "path", path)
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close name index", "err", err)
		}
	}
	return db, cleanup, nil
}

// ProvideStore returns the migrated local index.
func ProvideStore(db *sqlx.DB, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st := store.New(db, cfg.Project, logger.With("component", "store"))
	if err := st.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return st, nil
}

// ProvideIndex picks the name index: the remote server when configured,
// otherwise the local store.
func ProvideIndex(cfg *config.Config, st *store.Store, logger *slog.Logger) (api.NameIndex, error) {
	if cfg.RemoteURL == "" {
		return st, nil
	}
	c, err := client.New(cfg.RemoteURL, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func ProvideSource(idx api.NameIndex, cfg *config.Config) *names.CachedSource {
	return names.NewCachedSource(idx, cfg.CacheTTL.Duration)
}

func ProvideResolver(src *names.CachedSource, logger *slog.Logger) *resolver.Resolver {
	return resolver.New(src, logger.With("component", "resolver"))
}

func ProvideSections(cfg *config.Config) *section.Store {
	return section.NewStore(afero.NewOsFs(), cfg.SectionsPath)
}

func ProvideServer(idx api.NameIndex, r *resolver.Resolver, sections *section.Store, src *names.CachedSource, cfg *config.Config, logger *slog.Logger) *api.Server {
	s := api.New(idx, r, sections, cfg.MaxWidgets, logger)
	s.OnIndexed = src.Purge
	return s
}

// Wires collects all the providers.
var Wires = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideDB,
	ProvideStore,
	ProvideIndex,
	ProvideSource,
	ProvideResolver,
	ProvideSections,
	ProvideServer,

	wire.Struct(new(App), "*"),
)
