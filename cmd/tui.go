package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/shared"
	"github.com/verse91/clipy/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
//
// A stored session is picked up when the database is available; otherwise the TUI runs signed out.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if err := shared.ParseLogLevel(fileLogger, r.config.Log.Level); err != nil {
		return err
	}
	r.SetLogger(fileLogger)

	opts := ui.Options{
		CheckoutURL: r.config.Checkout.URL,
		Open:        r.open,
		Logger:      r.logger,
	}

	if db, err := r.openDatabase(); err != nil {
		r.logger.Warn("running signed out", "error", err)
	} else {
		defer db.Close()
		if auth, err := r.loadAuth(ctx, db); err != nil {
			r.logger.Warn("running signed out", "error", err)
		} else if userID, token, err := r.requireUser(ctx, auth); err != nil {
			r.logger.Info("running signed out", "reason", err)
		} else {
			opts.User = auth.User()
			opts.AccessToken = token
			opts.Balance = credits.NewTracker(r.creditsClient(), r.logger, nil)
			r.logger.Debug("tui user", "id", userID)
		}
	}

	model := ui.NewModel(ctx, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
