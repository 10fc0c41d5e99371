package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/moodlist/internal/auth"
	"github.com/desertthunder/moodlist/internal/server"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
//
// Token and remote routes, and the OAuth login flow, are only served when Spotify credentials
// are configured.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	deps, err := r.serverDeps()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(addr, deps).Run(ctx)
}

// serverDeps collects the server's collaborators. Remote and token routes need Spotify
// credentials and a configured state secret.
func (r *Runner) serverDeps() (server.Deps, error) {
	deps := server.Deps{
		Playlists:      r.playlists,
		Matching:       r.config.Matching,
		AllowedOrigins: r.config.Server.AllowedOrigins,
		Metrics:        r.metrics,
		Logger:         r.logger,
	}

	if r.spotify == nil {
		r.logger.Warn("spotify credentials missing, serving local playlist routes only")
		return deps, nil
	}

	if !r.config.Server.HasStateSecret() {
		return deps, fmt.Errorf("%w: set server.state_secret in %s before serving the Spotify routes", shared.ErrInvalidConfig, r.configPath)
	}
	signer, err := auth.NewStateSigner(r.config.Server.StateSecret, r.config.Server.StateTTL.Duration)
	if err != nil {
		return deps, err
	}
	deps.Tokens = r.tokens
	deps.Remote = r.workflow
	deps.OAuth = server.NewOAuthHandler(signer, r.tokens, r.spotify, r.logger)
	return deps, nil
}
