package main

import (
	"context"
	"fmt"
	"os"

	"github.com/verse91/clipy/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
//
// A missing config file is created from the embedded template first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	config := r.config
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using loaded config", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("reset") {
		r.logger.Warn("dropping all tables", "path", config.Database.Path)
		if err := shared.MigrateTo(db, 0); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("✓ Database ready at %s (schema v%d)\n", config.Database.Path, version)
}

// SetupConfig writes the config template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set identity.url and identity.anon_key (or SUPABASE_URL and SUPABASE_ANON_KEY)\n")
	r.writePlain("2. Run 'clipy setup database'\n")
	r.writePlain("3. Run 'clipy serve' or 'clipy signin'\n")
	return nil
}

// SetupCheck reports which parts of the configuration are usable.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("clipy configuration")

	identityErr := r.config.Identity.Validate()
	if identityErr != nil {
		r.writePlain("✗ Sign-in: %v\n", identityErr)
	} else {
		r.writePlain("✓ Sign-in: %s (%s)\n", r.config.Identity.URL, providerName(r.config.Identity.Provider))
	}

	r.writePlain("✓ Credits API: %s\n", r.creditsClient().BaseURL())
	r.writePlain("%s Credits API token secret\n", mark(r.config.Identity.JWTSecret != ""))
	r.writePlain("%s Admin key\n", mark(r.config.API.AdminKey != ""))
	r.writePlain("✓ Checkout: %s\n", r.config.Checkout.URL)
	r.writePlain("✓ Database: %s\n", r.config.Database.Path)
	r.writePlain("✓ Origin: %s (listening on %s)\n", r.config.Server.Origin, r.config.Server.Addr())

	return identityErr
}

func providerName(p string) string {
	if p == "" {
		return "google"
	}
	return p
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
