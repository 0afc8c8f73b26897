package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/identity"
	"github.com/verse91/clipy/internal/repositories"
	"github.com/verse91/clipy/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	open       func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	// Open launches a URL in the system browser.
	Open func(url string) error
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		open:       opts.Open,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, tuiCommand, signinCommand, signoutCommand, whoamiCommand,
		creditsCommand, checkCommand, termsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return db, nil
}

// identityClient returns nil and the configuration error when the auth service is not configured.
//
// With the default HTTP client every command shares the process wide client.
func (r *Runner) identityClient() (*identity.Client, error) {
	if r.httpClient == http.DefaultClient {
		return identity.Shared(r.config.Identity)
	}
	return identity.NewClient(r.config.Identity, r.httpClient)
}

// loadAuth restores the persisted session from db.
//
// Without a configured auth service the session is still restored, but expired sessions cannot be refreshed.
func (r *Runner) loadAuth(ctx context.Context, db *sql.DB) (*identity.Auth, error) {
	storage := identity.NewFallbackStorage(repositories.NewSessionRepository(db), r.logger)

	var sessions identity.Sessions
	if client, err := r.identityClient(); err == nil {
		sessions = client
	} else {
		r.logger.Debug("auth service not configured", "error", err)
	}

	auth := identity.NewAuth(sessions, storage, r.logger)
	if err := auth.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return auth, nil
}

func (r *Runner) creditsClient() *credits.Client {
	return credits.NewClient(r.config.API.BaseURL, r.httpClient)
}

// requireUser returns the signed-in user and a valid access token.
func (r *Runner) requireUser(ctx context.Context, auth *identity.Auth) (string, string, error) {
	user := auth.User()
	if user == nil {
		return "", "", fmt.Errorf("%w: run 'clipy signin' first", shared.ErrNotAuthenticated)
	}
	token, err := auth.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return "", "", fmt.Errorf("%w: session expired, run 'clipy signin' again", shared.ErrNotAuthenticated)
		}
		return "", "", err
	}
	return user.ID, token, nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
