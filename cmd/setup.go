package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template when missing and reports the migration state.
//
// Migrations themselves already ran when the runner opened the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err != nil {
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.writePlain("%s\n", ui.OK("Config written to "+r.configPath))
				r.writePlain("%s\n", ui.Hint("Set credentials.spotify and server.state_secret before using spotify commands."))
			}
		}
	}

	status, err := shared.Status(r.db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.logger.Info("database ready", "path", r.config.Database.Path, "version", status.Current)
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Database %s at version %d (%d migrations applied, %d pending)",
		r.config.Database.Path, status.Current, status.Applied, len(status.Pending))))
}

// Seed loads a TOML seed file into the catalog.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: seed file path", shared.ErrMissingArgument)
	}

	seed, err := mood.LoadSeedFile(path)
	if err != nil {
		return err
	}

	result, err := r.catalog.Seed(ctx, seed)
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Seeded %d moods (%d existing), %d tracks (%d duplicates skipped)",
		result.MoodsAdded, result.MoodsExisting, result.TracksAdded, result.TracksSkipped)))
}
