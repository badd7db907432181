package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/auth"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/sessions"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// RunStore records and lists sync history.
type RunStore interface {
	tasks.RunRecorder
	List(ctx context.Context, sessionID string, limit int) ([]*models.SyncRun, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil in [RunnerOpts] are built from the config the first time a
// command needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	provider   services.Provider
	issuer     services.TokenIssuer
	store      sessions.Store
	runs       RunStore
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.Engine
	db         *sql.DB
	closers    []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Provider   services.Provider
	Issuer     services.TokenIssuer
	Store      sessions.Store
	Runs       RunStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		provider:   opts.Provider,
		issuer:     opts.Issuer,
		store:      opts.Store,
		runs:       opts.Runs,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, syncCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app returns the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "plsync",
		Usage:   "Sync Spotify playlists with chunked, paced mutations",
		Version: "0.1.0",
		Writer:  r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Session id to act as (defaults to session.id from the config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// before loads the config named by --config unless one was injected.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		config := shared.DefaultConfig()
		if _, err := os.Stat(r.configPath); err == nil {
			if config, err = shared.LoadConfig(r.configPath); err != nil {
				return ctx, err
			}
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
		r.config = config
	}

	if id := cmd.String("session"); id != "" {
		r.config.Session.ID = id
	}

	return ctx, nil
}

// after releases whatever the runner opened.
func (r *Runner) after(context.Context, *cli.Command) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) sessionID() (string, error) {
	if r.config.Session.ID == "" {
		return "", fmt.Errorf("%w: no session, run `plsync auth login`", shared.ErrNotAuthenticated)
	}
	return r.config.Session.ID, nil
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.closers = append(r.closers, db.Close)
	return db, nil
}

func (r *Runner) sessionStore(ctx context.Context) (sessions.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	switch r.config.Session.Backend {
	case shared.BackendRedis:
		store, err := sessions.OpenRedisStore(ctx, r.config.Session.RedisURL, r.config.Session.KeyPrefix)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, store.Close)
		r.store = store
	case shared.BackendMemory:
		r.store = sessions.NewMemoryStore()
	default:
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		r.store = repositories.NewSessionRepository(db)
	}

	r.logger.Debug("session store ready", "backend", r.config.Session.Backend)
	return r.store, nil
}

func (r *Runner) runStore() (RunStore, error) {
	if r.runs != nil {
		return r.runs, nil
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}
	r.runs = repositories.NewSyncRunRepository(db)
	return r.runs, nil
}

func (r *Runner) tokenIssuer() (services.TokenIssuer, error) {
	if r.issuer != nil {
		return r.issuer, nil
	}

	issuer, err := services.NewSpotifyAuth(r.config.Credentials.Spotify.Map())
	if err != nil {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", err, r.configPath)
	}
	r.issuer = issuer
	return issuer, nil
}

func (r *Runner) spotify() services.Provider {
	if r.provider == nil {
		r.provider = services.NewSpotifyService("", r.httpClient, r.config.Credentials.Spotify.Market)
	}
	return r.provider
}

// syncEngine wires the gate, pacer and history recorder around the provider.
func (r *Runner) syncEngine(ctx context.Context) (*tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	store, err := r.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	issuer, err := r.tokenIssuer()
	if err != nil {
		return nil, err
	}

	runs, err := r.runStore()
	if err != nil {
		return nil, err
	}

	pacer, err := tasks.NewPacer(r.config.Sync)
	if err != nil {
		return nil, err
	}

	gate := auth.NewGate(store, issuer, services.ExpiryDetector{}, r.logger)
	r.engine = tasks.NewEngine(gate, r.spotify(), pacer, tasks.OptionsFromConfig(r.config.Sync), r.logger).WithRecorder(runs)
	return r.engine, nil
}

// watch prints progress messages until the returned stop function is called.
func (r *Runner) watch() (chan<- tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
