package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/cache"
	"github.com/desertthunder/ytmirror/internal/repositories"
	"github.com/desertthunder/ytmirror/internal/services"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/desertthunder/ytmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store, cache and remote clients are opened on first use; injected ones are used as is and never closed.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer

	db       *sql.DB
	cache    cache.PageCache
	source   services.CollectionSource
	searcher services.Searcher

	collections *repositories.CollectionRepository
	tokens      *repositories.PageTokenRepository
	records     *repositories.CorrelationRepository
	engine      *tasks.PlaylistEngine

	closers []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	Cache      cache.PageCache
	Source     services.CollectionSource
	Searcher   services.Searcher
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		cache:      opts.Cache,
		source:     opts.Source,
		searcher:   opts.Searcher,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, pageCommand, syncCommand, classifyCommand, matchCommand, tokensCommand, collectionsCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the configuration file named by --config when it exists and applies --verbose.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger.Debug("loaded config", "path", path)
	return ctx, nil
}

// openStore opens the database, applies pending migrations and builds the repositories.
func (r *Runner) openStore() error {
	if r.collections != nil {
		return nil
	}

	if r.db == nil {
		path := r.config.Database.Path
		db, err := shared.NewDatabase(path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
		}
		shared.ConfigureDatabase(db, path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db = db
		r.closers = append(r.closers, db.Close)
	}

	r.collections = repositories.NewCollectionRepository(r.db)
	r.tokens = repositories.NewPageTokenRepository(r.db)
	r.records = repositories.NewCorrelationRepository(r.db)
	return nil
}

func (r *Runner) openCache() error {
	if r.cache != nil {
		return nil
	}

	pc, closeFn, err := cache.New(r.config.Cache, r.logger)
	if err != nil {
		return err
	}
	r.cache = pc
	r.closers = append(r.closers, closeFn)
	return nil
}

// openEngine wires the sync engine over the store, the cache and the remote clients.
func (r *Runner) openEngine(ctx context.Context) error {
	if r.engine != nil {
		return nil
	}
	if err := r.openStore(); err != nil {
		return err
	}
	if err := r.openCache(); err != nil {
		return err
	}

	sync := r.config.Sync
	if r.source == nil {
		yt, err := services.NewYouTubeService(ctx, r.config.Credentials.YouTube, sync.RequestTimeout)
		if err != nil {
			return fmt.Errorf("youtube: %w", err)
		}
		r.source = yt
	}
	if r.searcher == nil {
		sp, err := services.NewSpotifyService(ctx, r.config.Credentials.Spotify, sync.RequestTimeout)
		if err != nil {
			return fmt.Errorf("spotify: %w", err)
		}
		r.searcher = sp
	}

	fetcher := tasks.NewPageFetcher(r.source, r.cache, r.tokens, sync.PageSize, sync.CacheTTL, r.logger)
	drift := tasks.NewDriftCorrector(r.tokens, r.cache, r.collections, sync.PageSize, r.logger)
	matcher := tasks.NewAvailabilityMatcher(r.searcher, r.records, tasks.MatcherOpts{
		Workers:   sync.Workers,
		RateLimit: sync.SearchRate,
	}, r.logger)

	r.engine = tasks.NewPlaylistEngine(r.collections, r.tokens, fetcher, drift, matcher, r.logger)
	r.logger.Debug("engine ready", "source", r.source.Name(), "searcher", r.searcher.Name())
	return nil
}

// Close releases everything the runner opened, in reverse order.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// reportProgress prints engine updates until the returned channel is closed; done is closed once
// every update has been written.
func (r *Runner) reportProgress() (progress chan tasks.ProgressUpdate, done <-chan struct{}) {
	progress = make(chan tasks.ProgressUpdate, 64)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for update := range progress {
			switch update.Phase {
			case tasks.CheckDrift:
				r.writePlain("↻ %s\n", update.Message)
			case tasks.ResolvePages:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ClassifyItems:
				r.logger.Debug(update.Message)
			case tasks.SyncCollection:
				r.writePlain("📄 %s\n", update.Message)
			}
		}
	}()

	return progress, finished
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
