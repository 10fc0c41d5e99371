package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/moodlist/internal/auth"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/server"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// SpotifyLogin authorizes a user through the browser.
//
// Starts a local HTTP server that accepts a single callback, opens the consent page and stores
// the exchanged tokens for the user named in the signed state.
func (r *Runner) SpotifyLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	username := cmd.StringArg("username")
	if err := models.ValidateUsername(username); err != nil {
		return err
	}

	user, err := r.doOAuth(ctx, username, cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	r.writePlainln("%s", ui.OK("Authorization successful"))
	r.writePlain("%s\n", ui.OK(fmt.Sprintf("Tokens for %s stored, expiring %s", user.Username, user.Token.ExpiresAt.Format(time.RFC3339))))
	r.writePlain("\nYou can now use: moodlist spotify generate %s <name> <mood>\n", user.Username)
	return nil
}

// doOAuth executes the authorization-code flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, username string, timeout time.Duration, browser bool) (*models.User, error) {
	// Without a configured secret, state is signed with a key that lives only for this login.
	secret := r.config.Server.StateSecret
	if !r.config.Server.HasStateSecret() {
		secret = uuid.NewString()
	}
	signer, err := auth.NewStateSigner(secret, r.config.Server.StateTTL.Duration)
	if err != nil {
		return nil, err
	}

	oauth := server.NewOAuthHandler(signer, r.tokens, r.spotify, r.logger, server.OAuthOnce())
	authURL, err := oauth.LoginURL(username)
	if err != nil {
		return nil, err
	}

	srv := server.New(r.config.Server.Addr(), server.Deps{OAuth: oauth, Metrics: r.metrics, Logger: r.logger})

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()
	serverErrors := make(chan error, 1)
	go func() { serverErrors <- srv.Run(srvCtx) }()

	if browser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlainln("%s", ui.Warn("Could not open browser automatically."))
			browser = false
		}
	}
	if !browser {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauth.Result():
	case err := <-serverErrors:
		if err == nil {
			err = context.Canceled
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("authorization timed out after %s: %w", timeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	stop()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return result.User, nil
}

// SpotifyAuth stores tokens obtained outside moodlist.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	user, err := r.tokens.SaveTokens(ctx, cmd.StringArg("username"), services.TokenGrant{
		AccessToken:  cmd.String("access-token"),
		RefreshToken: cmd.String("refresh-token"),
		ExpiresIn:    int64(cmd.Int("expires-in")),
	})
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK(fmt.Sprintf("Tokens for %s stored, expiring %s", user.Username, user.Token.ExpiresAt.Format(time.RFC3339))))
	if !user.Token.HasRefresh() {
		r.writePlain("%s\n", ui.Hint("No refresh token: run `moodlist spotify login` once the access token expires."))
	}
	return nil
}

type tokenStatus struct {
	Username  string     `json:"username"`
	State     string     `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SpotifyStatus shows the token state of a user.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	username := cmd.StringArg("username")
	state, user, err := r.tokens.State(ctx, username)
	if err != nil && shared.KindOf(err) != shared.KindNotFound {
		return err
	}

	status := tokenStatus{Username: username, State: state.String()}
	if state != models.NoToken {
		status.ExpiresAt = &user.Token.ExpiresAt
	}
	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	switch state {
	case models.Valid:
		r.writePlain("%s\n", ui.OK(fmt.Sprintf("%s: valid until %s", username, status.ExpiresAt.Format(time.RFC3339))))
	case models.Expired:
		r.writePlain("%s\n", ui.Warn(fmt.Sprintf("%s: expired, will refresh on next use", username)))
	case models.RefreshUnavailable:
		r.writePlain("%s\n", ui.Fail(fmt.Sprintf("%s: expired without a refresh token", username)))
		r.writePlain("%s\n", ui.Hint("Run: moodlist spotify login "+username))
	default:
		r.writePlain("%s\n", ui.Fail(fmt.Sprintf("%s: not authorized", username)))
		r.writePlain("%s\n", ui.Hint("Run: moodlist spotify login "+username))
	}
	return nil
}

// SpotifyGenerate searches Spotify for a mood and creates a playlist from the results.
func (r *Runner) SpotifyGenerate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	args := cmd.Args().Slice()
	if len(args) < 3 {
		return fmt.Errorf("%w: usage: spotify generate <username> <name> <happiness,sadness,love,energy>", shared.ErrMissingArgument)
	}

	query, _, err := r.matchQuery(cmd, args[2:])
	if err != nil {
		return err
	}

	req := tasks.GenerateRequest{
		Username:     args[0],
		PlaylistName: args[1],
		Query:        query,
		Record:       cmd.Bool("record"),
	}

	useJSON := cmd.Bool("json")
	ref, err := r.withProgress(useJSON, func(progress chan<- tasks.ProgressUpdate) (*tasks.RemotePlaylistRef, error) {
		return r.workflow.Generate(ctx, req, progress)
	})
	if err != nil {
		if ref != nil {
			r.writePlain("%s\n", ui.Warn(fmt.Sprintf("Playlist %s was created but is incomplete: %s", ref.ID, ref.URL)))
		}
		return err
	}

	if useJSON {
		return r.writeJSON(ref, true)
	}

	r.writePlainln("%s", ui.OK(fmt.Sprintf("Created %q with %d tracks", ref.Name, ref.TrackCount)))
	r.writePlain("  Query: %s\n", ref.Query)
	r.writePlain("  Link:  %s\n", ref.URL)
	for i, t := range ref.Tracks {
		r.writePlain("  %d. %s - %s\n", i+1, t.Artist, t.Title)
	}
	return nil
}

// withProgress runs fn while printing its progress updates, unless quiet.
func (r *Runner) withProgress(quiet bool, fn func(chan<- tasks.ProgressUpdate) (*tasks.RemotePlaylistRef, error)) (*tasks.RemotePlaylistRef, error) {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			if !quiet {
				r.writePlain("→ %s\n", u.Message)
			}
		}
	}()

	ref, err := fn(progress)
	close(progress)
	<-done
	return ref, err
}

// SpotifyPlay plays a playlist on the user's active device.
func (r *Runner) SpotifyPlay(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	args := cmd.Args().Slice()
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: spotify play <username> <playlist>", shared.ErrMissingArgument)
	}

	var count int
	_, err := r.withProgress(false, func(progress chan<- tasks.ProgressUpdate) (*tasks.RemotePlaylistRef, error) {
		var err error
		count, err = r.workflow.Play(ctx, args[0], args[1], progress)
		return nil, err
	})
	if err != nil {
		if errors.Is(err, shared.ErrNoActiveDevice) {
			return err
		}
		return fmt.Errorf("failed to start playback: %w", err)
	}

	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Playing %d tracks", count)))
}

// SpotifyPlaylists lists a user's remote playlists, or only those moodlist recorded.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	username := cmd.StringArg("username")
	useJSON := cmd.Bool("json")

	if cmd.Bool("recorded") {
		recorded, err := r.playlists.UserPlaylists(ctx, username)
		if err != nil {
			return err
		}
		if useJSON {
			return r.writeJSON(recorded, true)
		}

		tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tREMOTE ID\tLINK")
		for _, up := range recorded {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", up.PlaylistName, up.RemoteID, up.RemoteURL)
		}
		return tw.Flush()
	}

	if err := r.requireSpotify(); err != nil {
		return err
	}

	r.logger.Info("listing spotify playlists", "user", username)
	playlists, err := r.workflow.Playlists(ctx, username)
	if err != nil {
		return err
	}
	if useJSON {
		return r.writeJSON(playlists, true)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}
	return nil
}
