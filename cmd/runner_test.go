package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/server"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	tu "github.com/desertthunder/moodlist/internal/testing"
)

type harness struct {
	runner *Runner
	output *bytes.Buffer
	fake   *tu.FakeSpotify
}

// newHarness builds a runner over an in-memory database. With spotify set it talks to a fake
// Spotify server.
func newHarness(t *testing.T, spotify bool) *harness {
	t.Helper()

	cfg := shared.DefaultConfig()
	cfg.Remote.RequestsPerSecond = 0
	cfg.Server.Port = 0
	cfg.Server.StateSecret = "test-secret"

	logger := shared.NewLogger(io.Discard)
	h := &harness{output: &bytes.Buffer{}}
	opts := RunnerOpts{
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		DB:         tu.MustDB(t),
		Logger:     logger,
		Output:     h.output,
	}

	if spotify {
		h.fake = tu.NewFakeSpotify(t)
		client, err := services.NewSpotifyService(h.fake.Config(), cfg.Remote, logger)
		if err != nil {
			t.Fatalf("NewSpotifyService() error = %v", err)
		}
		opts.Spotify = client
	}

	h.runner = NewRunner(opts)
	return h
}

func (h *harness) run(args ...string) error {
	h.output.Reset()
	return newApp(h.runner).Run(context.Background(), append([]string{"moodlist"}, args...))
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := h.run(args...); err != nil {
		t.Fatalf("%s: unexpected error: %v", strings.Join(args, " "), err)
	}
	return h.output.String()
}

// seed adds a mood with n tracks and returns the mood ID.
func (h *harness) seed(t *testing.T, v models.MoodVector, n int) string {
	t.Helper()
	ctx := context.Background()

	m, err := h.runner.catalog.AddMood(ctx, v)
	if err != nil {
		t.Fatalf("AddMood() error = %v", err)
	}
	for i := range n {
		if _, err := h.runner.catalog.AddTrack(ctx, "Song "+string(rune('A'+i)), "Band "+m.ID[:4], "pop", m.ID); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	}
	return m.ID
}

func (h *harness) authorize(t *testing.T, username string) {
	t.Helper()
	grant := services.TokenGrant{AccessToken: "seed", RefreshToken: "refresh-1", ExpiresIn: 3600}
	if _, err := h.runner.tokens.SaveTokens(context.Background(), username, grant); err != nil {
		t.Fatalf("SaveTokens() error = %v", err)
	}
}

func decodeOutput[T any](t *testing.T, h *harness) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(h.output.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode output %q: %v", h.output.String(), err)
	}
	return v
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				DB:     tu.MustDB(t),
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog == nil || runner.playlists == nil {
				t.Error("expected services to be wired when a database is injected")
			}
			if runner.tokens != nil || runner.workflow != nil {
				t.Error("expected no remote services without spotify")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("without database defers wiring", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.catalog != nil {
				t.Error("expected services to wait for Open")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln wraps in newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\ndone\n" {
				t.Errorf("expected %q, got %q", "\ndone\n", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})
}

func TestParseMood(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    models.MoodVector
		wantErr bool
	}{
		{name: "comma separated", args: []string{"8,2,5,9"}, want: models.MoodVector{Happiness: 8, Sadness: 2, Love: 5, Energy: 9}},
		{name: "separate arguments", args: []string{"1", "2", "3", "4"}, want: models.MoodVector{Happiness: 1, Sadness: 2, Love: 3, Energy: 4}},
		{name: "spaces after commas", args: []string{"10, 0, 3, 7"}, want: models.MoodVector{Happiness: 10, Love: 3, Energy: 7}},
		{name: "too few values", args: []string{"1,2,3"}, wantErr: true},
		{name: "too many values", args: []string{"1,2,3,4,5"}, wantErr: true},
		{name: "not a number", args: []string{"1,x,3,4"}, wantErr: true},
		{name: "empty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMood(tt.args...)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalogCommands(t *testing.T) {
	t.Run("setup writes config and reports migrations", func(t *testing.T) {
		h := newHarness(t, false)

		out := h.mustRun(t, "setup")
		tu.AssertFileExists(t, h.runner.configPath)
		if !strings.Contains(out, "migrations applied") {
			t.Errorf("expected migration status, got %q", out)
		}
	})

	t.Run("seed loads moods and tracks", func(t *testing.T) {
		h := newHarness(t, false)
		path := filepath.Join(t.TempDir(), "seed.toml")
		seed := `
[[moods]]
happiness = 8
sadness = 2
love = 5
energy = 9

  [[moods.tracks]]
  title = "Walking on Sunshine"
  artist = "Katrina and the Waves"
  genre = "pop"
`
		if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
			t.Fatal(err)
		}

		out := h.mustRun(t, "seed", path)
		if !strings.Contains(out, "Seeded 1 moods") || !strings.Contains(out, "1 tracks") {
			t.Errorf("unexpected seed output %q", out)
		}
	})

	t.Run("mood add then list", func(t *testing.T) {
		h := newHarness(t, false)

		h.mustRun(t, "mood", "add", "8,2,5,9")
		h.mustRun(t, "mood", "list", "--json")

		moods := decodeOutput[[]models.Mood](t, h)
		if len(moods) != 1 || moods[0].Vector != (models.MoodVector{Happiness: 8, Sadness: 2, Love: 5, Energy: 9}) {
			t.Errorf("unexpected moods %+v", moods)
		}
	})

	t.Run("mood list near a vector", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, models.MoodVector{Happiness: 8, Sadness: 2, Love: 5, Energy: 9}, 2)
		h.seed(t, models.MoodVector{Happiness: 2, Sadness: 8, Love: 5, Energy: 2}, 0)

		h.mustRun(t, "mood", "list", "--json", "--match", "7,3,5,8")
		if moods := decodeOutput[[]models.Mood](t, h); len(moods) != 1 || moods[0].Vector.Happiness != 8 {
			t.Errorf("unexpected moods %+v", moods)
		}

		h.mustRun(t, "mood", "list", "--json", "--match", "7,3,5,8", "--threshold", "0")
		if moods := decodeOutput[[]models.Mood](t, h); len(moods) != 0 {
			t.Errorf("expected no exact match, got %+v", moods)
		}

		out := h.mustRun(t, "mood", "list", "--match", "4,1,3,5", "-q")
		if !strings.Contains(out, "TRACKS") || strings.Count(out, "\n") != 2 {
			t.Errorf("expected one rescaled match in the table, got %q", out)
		}
	})

	t.Run("mood add rejects out of scale values", func(t *testing.T) {
		h := newHarness(t, false)

		err := h.run("mood", "add", "11,2,5,9")
		if shared.KindOf(err) != shared.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("mood update and delete", func(t *testing.T) {
		h := newHarness(t, false)
		id := h.seed(t, models.MoodVector{Happiness: 1, Sadness: 1, Love: 1, Energy: 1}, 0)

		out := h.mustRun(t, "mood", "update", id, "2,2,2,2")
		if !strings.Contains(out, "happiness=2") {
			t.Errorf("expected updated vector, got %q", out)
		}

		h.mustRun(t, "mood", "delete", id)
		h.mustRun(t, "mood", "list", "--json")
		if moods := decodeOutput[[]models.Mood](t, h); len(moods) != 0 {
			t.Errorf("expected no moods, got %d", len(moods))
		}
	})

	t.Run("track add, list and find", func(t *testing.T) {
		h := newHarness(t, false)
		id := h.seed(t, models.MoodVector{Happiness: 5, Sadness: 5, Love: 5, Energy: 5}, 0)

		h.mustRun(t, "track", "add", "--title", "Hey Ya", "--artist", "Outkast", "--mood", id)
		h.mustRun(t, "track", "list", "--mood", id, "--json")
		tracks := decodeOutput[[]models.Track](t, h)
		if len(tracks) != 1 || tracks[0].Title != "Hey Ya" {
			t.Fatalf("unexpected tracks %+v", tracks)
		}

		h.mustRun(t, "track", "find", "--artist", "outkast", "--title", "hey ya")
		if found := decodeOutput[models.Track](t, h); found.ID != tracks[0].ID {
			t.Errorf("expected find to match case-insensitively, got %+v", found)
		}

		h.mustRun(t, "track", "delete", tracks[0].ID)
		if err := h.run("track", "find", "--artist", "Outkast", "--title", "Hey Ya"); shared.KindOf(err) != shared.KindNotFound {
			t.Errorf("expected not found after delete, got %v", err)
		}
	})

	t.Run("track list renders a table", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, models.MoodVector{Happiness: 5, Sadness: 5, Love: 5, Energy: 5}, 2)

		out := h.mustRun(t, "track", "list")
		if !strings.Contains(out, "ARTIST") || strings.Count(out, "Song ") != 2 {
			t.Errorf("unexpected table %q", out)
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	upbeat := models.MoodVector{Happiness: 8, Sadness: 2, Love: 5, Energy: 9}

	t.Run("generate assigns matching tracks", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, upbeat, 3)
		h.seed(t, models.MoodVector{Happiness: 1, Sadness: 9, Love: 2, Energy: 1}, 2)

		out := h.mustRun(t, "playlist", "generate", "Evening", "9,3,5,8")
		if !strings.Contains(out, `Created playlist "Evening" with 3 tracks`) {
			t.Errorf("unexpected output %q", out)
		}

		h.mustRun(t, "track", "list", "--unassigned", "--json")
		if left := decodeOutput[[]models.Track](t, h); len(left) != 2 {
			t.Errorf("expected 2 unassigned tracks, got %d", len(left))
		}
	})

	t.Run("threshold flag narrows the match", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, upbeat, 3)

		out := h.mustRun(t, "playlist", "generate", "--threshold", "0", "Strict", "9,3,5,8")
		if !strings.Contains(out, "with 0 tracks") {
			t.Errorf("expected no matches at threshold 0, got %q", out)
		}
	})

	t.Run("questionnaire answers are rescaled", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, models.MoodVector{Happiness: 8, Sadness: 2, Love: 6, Energy: 10}, 2)

		out := h.mustRun(t, "playlist", "generate", "-q", "Quiz", "4,1,3,5")
		if !strings.Contains(out, "with 2 tracks") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("dry run creates nothing", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, upbeat, 2)

		out := h.mustRun(t, "playlist", "generate", "--dry-run", "Preview", "8,2,5,9")
		if !strings.Contains(out, "2 tracks match") {
			t.Errorf("unexpected preview %q", out)
		}

		h.mustRun(t, "playlist", "list", "--json")
		if playlists := decodeOutput[[]models.Playlist](t, h); len(playlists) != 0 {
			t.Errorf("expected no playlists, got %d", len(playlists))
		}
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, upbeat, 1)

		h.mustRun(t, "playlist", "generate", "Evening", "8,2,5,9")
		if err := h.run("playlist", "generate", "Evening", "8,2,5,9"); shared.KindOf(err) != shared.KindConflict {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("create, add, show, rename and delete", func(t *testing.T) {
		h := newHarness(t, false)
		id := h.seed(t, upbeat, 2)
		tracks, err := h.runner.catalog.ListTracks(context.Background(), repositories.TrackFilter{MoodID: id})
		if err != nil {
			t.Fatal(err)
		}

		h.mustRun(t, "playlist", "create", "Mixtape", tracks[0].ID)
		h.mustRun(t, "playlist", "add", "Mixtape", tracks[1].ID)

		out := h.mustRun(t, "playlist", "show", "--format", "csv", "Mixtape")
		if !strings.Contains(out, "Position,Title,Artist,Genre,Mood") || !strings.Contains(out, "8/2/5/9") {
			t.Errorf("unexpected csv %q", out)
		}

		h.mustRun(t, "playlist", "rename", "Mixtape", "Tape")
		if err := h.run("playlist", "show", "Mixtape"); shared.KindOf(err) != shared.KindNotFound {
			t.Errorf("expected old name to be gone, got %v", err)
		}

		h.mustRun(t, "playlist", "delete", "Tape")
		h.mustRun(t, "track", "list", "--unassigned", "--json")
		if left := decodeOutput[[]models.Track](t, h); len(left) != 2 {
			t.Errorf("expected tracks to be released, got %d unassigned", len(left))
		}
	})

	t.Run("show rejects unknown formats", func(t *testing.T) {
		h := newHarness(t, false)
		if err := h.run("playlist", "show", "--format", "xml", "Anything"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("export writes files and manifest", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, upbeat, 2)
		h.mustRun(t, "playlist", "generate", "Evening", "8,2,5,9")
		dir := filepath.Join(t.TempDir(), "out")

		out := h.mustRun(t, "playlist", "export", "--format", "markdown", "--output", dir)
		if !strings.Contains(out, "Exported 1/1 playlists") {
			t.Errorf("unexpected output %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "evening.md"))
	})

	t.Run("export reports missing playlists", func(t *testing.T) {
		h := newHarness(t, false)
		dir := t.TempDir()

		out := h.mustRun(t, "playlist", "export", "--output", dir, "Ghost")
		if !strings.Contains(out, "Exported 0/1") || !strings.Contains(out, "Ghost") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestSpotifyCommands(t *testing.T) {
	upbeat := models.MoodVector{Happiness: 8, Sadness: 2, Love: 5, Energy: 9}

	t.Run("requires credentials", func(t *testing.T) {
		h := newHarness(t, false)

		for _, args := range [][]string{
			{"spotify", "status", "alice"},
			{"spotify", "generate", "alice", "Evening", "8,2,5,9"},
			{"spotify", "play", "alice", "abc"},
			{"spotify", "playlists", "alice"},
			{"quiz", "--name", "Morning", "--user", "alice"},
		} {
			if err := h.run(args...); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("%v: expected ErrMissingCredentials, got %v", args, err)
			}
		}
	})

	t.Run("auth then status", func(t *testing.T) {
		h := newHarness(t, true)

		h.mustRun(t, "spotify", "status", "--json", "alice")
		if status := decodeOutput[tokenStatus](t, h); status.State != "no_token" {
			t.Errorf("expected no_token, got %+v", status)
		}

		out := h.mustRun(t, "spotify", "auth", "--access-token", "abc", "alice")
		if !strings.Contains(out, "No refresh token") {
			t.Errorf("expected hint about the missing refresh token, got %q", out)
		}

		h.mustRun(t, "spotify", "status", "--json", "alice")
		if status := decodeOutput[tokenStatus](t, h); status.State != "valid" || status.ExpiresAt == nil {
			t.Errorf("expected valid token, got %+v", status)
		}
	})

	t.Run("generate creates and records a remote playlist", func(t *testing.T) {
		h := newHarness(t, true)
		h.authorize(t, "alice")
		h.fake.SetTracks(tu.FakeTrack{ID: "t1", Title: "One", Artist: "A"}, tu.FakeTrack{ID: "t2", Title: "Two", Artist: "B"})

		h.mustRun(t, "spotify", "generate", "--json", "alice", "Evening", "8,2,5,9")
		ref := decodeOutput[tasks.RemotePlaylistRef](t, h)
		if ref.TrackCount != 2 || ref.ID == "" {
			t.Fatalf("unexpected ref %+v", ref)
		}
		if p, ok := h.fake.Playlist(ref.ID); !ok || len(p.URIs) != 2 {
			t.Errorf("expected remote playlist with 2 tracks, got %+v", p)
		}

		h.mustRun(t, "spotify", "playlists", "--recorded", "--json", "alice")
		recorded := decodeOutput[[]models.UserPlaylist](t, h)
		if len(recorded) != 1 || recorded[0].RemoteID != ref.ID {
			t.Errorf("unexpected recorded playlists %+v", recorded)
		}
	})

	t.Run("generate surfaces the failing step", func(t *testing.T) {
		h := newHarness(t, true)
		h.authorize(t, "alice")
		h.fake.Fail(tu.EndpointSearch, 500)

		err := h.run("spotify", "generate", "alice", "Evening", "8,2,5,9")
		if step, _ := tasks.StepOf(err); step != tasks.StepSearch {
			t.Errorf("expected search step failure, got %v", err)
		}
		if h.fake.PlaylistCount() != 0 {
			t.Error("expected no remote playlist")
		}
	})

	t.Run("generate for unknown user", func(t *testing.T) {
		h := newHarness(t, true)

		err := h.run("spotify", "generate", "nobody", "Evening", "8,2,5,9")
		if step, _ := tasks.StepOf(err); step != tasks.StepToken {
			t.Errorf("expected token step failure, got %v", err)
		}
	})

	t.Run("play starts playback", func(t *testing.T) {
		h := newHarness(t, true)
		h.authorize(t, "alice")
		h.fake.SetTracks(tu.FakeTrack{ID: "t1", Title: "One", Artist: "A"})
		h.mustRun(t, "spotify", "generate", "--json", "alice", "Evening", "8,2,5,9")
		ref := decodeOutput[tasks.RemotePlaylistRef](t, h)

		out := h.mustRun(t, "spotify", "play", "alice", ref.URL)
		if !strings.Contains(out, "Playing 1 tracks") {
			t.Errorf("unexpected output %q", out)
		}
		if played := h.fake.Played(); len(played) != 1 || played[0] != "spotify:track:t1" {
			t.Errorf("unexpected playback %v", played)
		}
	})

	t.Run("play without an active device", func(t *testing.T) {
		h := newHarness(t, true)
		h.authorize(t, "alice")
		h.fake.SetTracks(tu.FakeTrack{ID: "t1", Title: "One", Artist: "A"})
		h.mustRun(t, "spotify", "generate", "--json", "alice", "Evening", "8,2,5,9")
		ref := decodeOutput[tasks.RemotePlaylistRef](t, h)
		h.fake.SetNoActiveDevice(true)

		if err := h.run("spotify", "play", "alice", ref.ID); !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Errorf("expected ErrNoActiveDevice, got %v", err)
		}
	})

	t.Run("playlists lists remote playlists", func(t *testing.T) {
		h := newHarness(t, true)
		h.authorize(t, "alice")
		h.mustRun(t, "spotify", "generate", "--json", "alice", "Evening", "8,2,5,9")

		out := h.mustRun(t, "spotify", "playlists", "alice")
		if !strings.Contains(out, "Found 1 playlists") || !strings.Contains(out, "Evening") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("login times out without a callback", func(t *testing.T) {
		h := newHarness(t, true)

		err := h.run("spotify", "login", "--no-browser", "--timeout", "100ms", "alice")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected timeout, got %v", err)
		}
		if !strings.Contains(h.output.String(), h.fake.URL+"/authorize") {
			t.Errorf("expected the consent URL to be printed, got %q", h.output.String())
		}
	})

	t.Run("local playlists do not need spotify", func(t *testing.T) {
		h := newHarness(t, false)
		h.seed(t, upbeat, 1)
		h.mustRun(t, "playlist", "generate", "Evening", "8,2,5,9")
	})
}

func TestServeDeps(t *testing.T) {
	status := func(t *testing.T, handler http.Handler, method, path string) int {
		t.Helper()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader("{}")))
		return rec.Code
	}

	t.Run("defaults serve local routes only", func(t *testing.T) {
		h := newHarness(t, false)
		h.runner.config = shared.DefaultConfig()

		deps, err := h.runner.serverDeps()
		if err != nil {
			t.Fatalf("serverDeps() error = %v", err)
		}
		if deps.Tokens != nil || deps.Remote != nil || deps.OAuth != nil {
			t.Fatalf("expected no remote dependencies, got %+v", deps)
		}

		handler := server.New("127.0.0.1:0", deps).Handler()
		if code := status(t, handler, http.MethodGet, "/api/playlists"); code != http.StatusOK {
			t.Errorf("GET /api/playlists = %d, want 200", code)
		}
		for _, route := range [][2]string{
			{http.MethodGet, "/login?username=alice"},
			{http.MethodGet, "/callback"},
			{http.MethodPost, "/api/tokens"},
			{http.MethodGet, "/api/tokens/alice"},
			{http.MethodPost, "/api/spotify/playlists"},
			{http.MethodPost, "/api/spotify/play"},
		} {
			if code := status(t, handler, route[0], route[1]); code != http.StatusNotFound {
				t.Errorf("%s %s = %d, want 404", route[0], route[1], code)
			}
		}
	})

	t.Run("config without credentials leaves spotify unwired", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		content := "[database]\npath = \"" + filepath.ToSlash(filepath.Join(dir, "moodlist.db")) + "\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		err := newApp(r).Run(context.Background(), []string{"moodlist", "--config", configPath, "spotify", "status", "alice"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if r.spotify != nil || r.tokens != nil {
			t.Error("expected no spotify client from the default credentials")
		}
	})

	t.Run("spotify routes need a state secret", func(t *testing.T) {
		for _, secret := range []string{"", "change-me"} {
			h := newHarness(t, true)
			h.runner.config.Server.StateSecret = secret

			if _, err := h.runner.serverDeps(); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("secret %q: expected ErrInvalidConfig, got %v", secret, err)
			}
		}
	})

	t.Run("spotify routes with a state secret", func(t *testing.T) {
		h := newHarness(t, true)
		h.authorize(t, "alice")

		deps, err := h.runner.serverDeps()
		if err != nil {
			t.Fatalf("serverDeps() error = %v", err)
		}
		if deps.Tokens == nil || deps.Remote == nil || deps.OAuth == nil {
			t.Fatalf("expected remote dependencies, got %+v", deps)
		}

		handler := server.New("127.0.0.1:0", deps).Handler()
		if code := status(t, handler, http.MethodGet, "/api/tokens/alice"); code != http.StatusOK {
			t.Errorf("GET /api/tokens/alice = %d, want 200", code)
		}
	})
}
