package main

import (
	"context"
	"fmt"

	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/formatter"
	"github.com/verse91/clipy/internal/shared"
	"github.com/urfave/cli/v3"
)

// CreditsBalance prints the balance of the signed-in user.
//
// Fetch failures are reported the way the credits widgets show them: zero credits and an error line.
func (r *Runner) CreditsBalance(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	auth, err := r.loadAuth(ctx, db)
	if err != nil {
		return err
	}
	userID, token, err := r.requireUser(ctx, auth)
	if err != nil {
		return err
	}

	tracker := credits.NewTracker(r.creditsClient(), r.logger, nil)
	state := tracker.SetUser(ctx, userID, token)

	if cmd.Bool("json") {
		return r.writeJSON(state, false)
	}

	r.writePlain("Credits: %d\n", state.UserCredits)
	if state.Error != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, state.Error)
	}
	return nil
}

// CreditsPlans lists the plans shown in the credits drawer.
func (r *Runner) CreditsPlans(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	checkout := r.config.Checkout.URL

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WritePlansExport(credits.Plans, format, checkout, path)
		if err != nil {
			return err
		}
		r.logger.Info("plans exported", "file", written, "format", format)
		r.writePlain("✓ Plans exported to %s\n", written)
	} else {
		data, err := formatter.ExportPlans(credits.Plans, format, checkout)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if cmd.Bool("open") {
		target := credits.CheckoutURL(checkout, credits.DefaultPlan())
		if err := r.open(target); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlain("Open this link to buy credits:\n%s\n", target)
		}
	}
	return nil
}

// CreditsAdd adds credits to a user through the admin API.
func (r *Runner) CreditsAdd(ctx context.Context, cmd *cli.Command) error {
	return r.adjustCredits(ctx, cmd, true)
}

// CreditsSet replaces the balance of a user through the admin API.
func (r *Runner) CreditsSet(ctx context.Context, cmd *cli.Command) error {
	return r.adjustCredits(ctx, cmd, false)
}

func (r *Runner) adjustCredits(ctx context.Context, cmd *cli.Command, add bool) error {
	userID := cmd.StringArg("user")
	amount := cmd.IntArg("amount")

	if userID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}
	if add && amount <= 0 {
		return fmt.Errorf("%w: credits must be positive", shared.ErrInvalidArgument)
	}
	if !add && amount < 0 {
		return fmt.Errorf("%w: credits cannot be negative", shared.ErrInvalidArgument)
	}
	if r.config.API.AdminKey == "" {
		return fmt.Errorf("%w: ADMIN_SECRET_KEY is not set", shared.ErrMissingConfig)
	}

	client := r.creditsClient().WithAdminKey(r.config.API.AdminKey)

	var balance *credits.Balance
	var err error
	if add {
		r.logger.Infof("adding %v credits to %v", amount, userID)
		balance, err = client.AddCredits(ctx, userID, amount)
	} else {
		r.logger.Infof("setting credits of %v to %v", userID, amount)
		balance, err = client.SetCredits(ctx, userID, amount)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	total := 0
	if balance.Credits != nil {
		total = *balance.Credits
	}
	r.writePlain("✓ %s\n", balance.Message)
	r.writePlain("User: %s\n", userID)
	r.writePlain("Credits: %d\n", total)
	return nil
}
