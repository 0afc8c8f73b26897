package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/handshake"
	"github.com/verse91/clipy/internal/shared"
	tu "github.com/verse91/clipy/internal/testing"
)

func newTestRunner(t *testing.T, input string) (*Runner, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		HTTPClient: &http.Client{},
		Output:     output,
		Input:      strings.NewReader(input),
		Logger:     shared.NewLogger(&bytes.Buffer{}),
		Open:       func(string) error { return errors.New("no browser") },
	})
	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				Input:      input,
				HTTPClient: httpClient,
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
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
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
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.open == nil {
				t.Error("expected open to default to the system browser")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
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
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
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
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, name := range []string{"setup", "serve", "tui", "signin", "signout", "whoami", "credits", "check", "terms"} {
			if !names[name] {
				t.Errorf("expected command %q to be registered", name)
			}
		}
	})
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("Verdicts", func(t *testing.T) {
		for _, tc := range []struct {
			name string
			url  string
			want string
		}{
			{name: "video", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "✓ Processing"},
			{name: "playlist", url: "https://www.youtube.com/watch?v=abc&list=PL123", want: "✗ Playlist is not supported"},
			{name: "other site", url: "https://example.com/video", want: "✗ This is not a YouTube video link"},
			{name: "leading space", url: " https://youtu.be/abc", want: "✗ This is not a YouTube video link"},
		} {
			t.Run(tc.name, func(t *testing.T) {
				runner, output := newTestRunner(t, "")
				if err := checkCommand(runner).Run(ctx, []string{"check", tc.url}); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if !strings.HasPrefix(output.String(), tc.want) {
					t.Errorf("expected output to start with %q, got %q", tc.want, output.String())
				}
			})
		}
	})

	t.Run("JSON", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		args := []string{"check", "--json", "--quality", "audio-only", "--thumbnail", "https://youtu.be/abc"}
		if err := checkCommand(runner).Run(ctx, args); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var result checkResult
		if err := json.Unmarshal(output.Bytes(), &result); err != nil {
			t.Fatalf("expected valid JSON, got %v", err)
		}
		if result.Verdict != "accepted" {
			t.Errorf("expected accepted, got %s", result.Verdict)
		}
		if result.Options.Thumbnail {
			t.Error("expected thumbnail to be dropped for audio-only")
		}
		if !result.Options.SponsorBlock {
			t.Error("expected sponsorblock to default to on")
		}
	})

	t.Run("Invalid Quality", func(t *testing.T) {
		runner, _ := newTestRunner(t, "")
		err := checkCommand(runner).Run(ctx, []string{"check", "--quality", "4k", "https://youtu.be/abc"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Missing URL", func(t *testing.T) {
		runner, _ := newTestRunner(t, "")
		err := checkCommand(runner).Run(ctx, []string{"check"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestTerms(t *testing.T) {
	ctx := context.Background()

	t.Run("Text", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		if err := termsCommand(runner).Run(ctx, []string{"terms"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, section := range handshake.Terms {
			if !strings.Contains(output.String(), section.Title) {
				t.Errorf("expected %q in output", section.Title)
			}
		}
	})

	t.Run("Unsupported Format", func(t *testing.T) {
		runner, _ := newTestRunner(t, "")
		err := termsCommand(runner).Run(ctx, []string{"terms", "--format", "csv"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestConfirmTerms(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
	} {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			runner, output := newTestRunner(t, tc.input)
			got, err := runner.confirmTerms()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
			if !strings.Contains(output.String(), handshake.AcceptLabel) {
				t.Errorf("expected prompt %q, got %q", handshake.AcceptLabel, output.String())
			}
		})
	}
}

func TestCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("Plans", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		runner.config.Checkout.URL = "https://pay.example/checkout"

		if err := creditsCommand(runner).Run(ctx, []string{"credits", "plans", "--format", "csv"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != len(credits.Plans)+1 {
			t.Fatalf("expected %d lines, got %d", len(credits.Plans)+1, len(lines))
		}
		if !strings.Contains(output.String(), "https://pay.example/checkout?credits=250&plan=popular") {
			t.Errorf("expected checkout link in output, got %s", output.String())
		}
	})

	t.Run("Plans To File", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		path := filepath.Join(t.TempDir(), "plans.md")

		if err := creditsCommand(runner).Run(ctx, []string{"credits", "plans", "-f", "md", "-o", path}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "## Plans") {
			t.Error("expected a markdown plans section")
		}
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected output to name %s, got %s", path, output.String())
		}
	})

	t.Run("Plans Open Fallback", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		if err := creditsCommand(runner).Run(ctx, []string{"credits", "plans", "--open"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := credits.CheckoutURL(runner.config.Checkout.URL, credits.DefaultPlan())
		if !strings.Contains(output.String(), want) {
			t.Errorf("expected %s in output, got %s", want, output.String())
		}
	})

	t.Run("Adjust Validation", func(t *testing.T) {
		for _, tc := range []struct {
			name string
			args []string
			want error
		}{
			{name: "add zero", args: []string{"credits", "add", "u1", "0"}, want: shared.ErrInvalidArgument},
			{name: "set negative", args: []string{"credits", "set", "--", "u1", "-5"}, want: shared.ErrInvalidArgument},
			{name: "no user", args: []string{"credits", "add"}, want: shared.ErrMissingArgument},
			{name: "no admin key", args: []string{"credits", "add", "u1", "10"}, want: shared.ErrMissingConfig},
		} {
			t.Run(tc.name, func(t *testing.T) {
				runner, _ := newTestRunner(t, "")
				err := creditsCommand(runner).Run(ctx, tc.args)
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})

	t.Run("Add", func(t *testing.T) {
		var gotKey, gotPath string
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("X-Admin-Key")
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"code":200001,"message":"success","data":{"user_id":"u1","credits_added":10,"credits":15,"message":"Credits added successfully"}}`))
		}))
		defer api.Close()

		runner, output := newTestRunner(t, "")
		runner.config.API.BaseURL = api.URL
		runner.config.API.AdminKey = "secret"

		if err := creditsCommand(runner).Run(ctx, []string{"credits", "add", "u1", "10"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotKey != "secret" {
			t.Errorf("expected admin key header, got %q", gotKey)
		}
		if gotPath != "/api/v1/user/u1/credits/add" {
			t.Errorf("expected add path, got %s", gotPath)
		}
		if !strings.Contains(output.String(), "Credits: 15") {
			t.Errorf("expected total in output, got %s", output.String())
		}
	})

	t.Run("Balance Requires Sign In", func(t *testing.T) {
		runner, _ := newTestRunner(t, "")
		err := creditsCommand(runner).Run(ctx, []string{"credits", "balance"})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSignedOutCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("WhoAmI", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		if err := whoamiCommand(runner).Run(ctx, []string{"whoami"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "Not signed in\n" {
			t.Errorf("expected 'Not signed in', got %q", output.String())
		}
	})

	t.Run("SignOut", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		if err := signoutCommand(runner).Run(ctx, []string{"signout"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "Not signed in\n" {
			t.Errorf("expected 'Not signed in', got %q", output.String())
		}
	})

	t.Run("SignIn Without Config", func(t *testing.T) {
		runner, _ := newTestRunner(t, "")
		err := signinCommand(runner).Run(ctx, []string{"signin", "-y"})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("Config", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := setupCommand(runner).Run(ctx, []string{"setup", "config", "--output", path}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected output to name %s, got %s", path, output.String())
		}

		if err := setupCommand(runner).Run(ctx, []string{"setup", "config", "--output", path}); err == nil {
			t.Error("expected error when the config already exists")
		}
	})

	t.Run("Database", func(t *testing.T) {
		dir := t.TempDir()
		runner, output := newTestRunner(t, "")
		runner.configPath = filepath.Join(dir, "config.toml")
		runner.config.Database.Path = filepath.Join(dir, "clipy.db")

		if err := setupCommand(runner).Run(ctx, []string{"setup", "database"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, runner.configPath)
		tu.AssertFileExists(t, runner.config.Database.Path)
		if !strings.Contains(output.String(), "Database ready") || !strings.Contains(output.String(), "schema v2") {
			t.Errorf("expected confirmation, got %s", output.String())
		}
	})

	t.Run("Database Reset", func(t *testing.T) {
		dir := t.TempDir()
		runner, _ := newTestRunner(t, "")
		runner.configPath = filepath.Join(dir, "config.toml")
		runner.config.Database.Path = filepath.Join(dir, "clipy.db")

		if err := setupCommand(runner).Run(ctx, []string{"setup", "database"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		db, err := runner.openDatabase()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := db.Exec("INSERT INTO profiles (id, credits) VALUES ('u1', 60)"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		db.Close()

		if err := setupCommand(runner).Run(ctx, []string{"setup", "database", "--reset"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		db, err = runner.openDatabase()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&n); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 0 {
			t.Errorf("expected reset to clear profiles, got %d rows", n)
		}
	})

	t.Run("Check", func(t *testing.T) {
		runner, output := newTestRunner(t, "")
		err := setupCommand(runner).Run(ctx, []string{"setup", "check"})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
		if !strings.Contains(output.String(), "✗ Sign-in") {
			t.Errorf("expected sign-in failure line, got %s", output.String())
		}

		runner, output = newTestRunner(t, "")
		runner.config.Identity.URL = "https://auth.example"
		runner.config.Identity.AnonKey = "anon"
		if err := setupCommand(runner).Run(ctx, []string{"setup", "check"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "✓ Sign-in: https://auth.example (google)") {
			t.Errorf("expected sign-in line, got %s", output.String())
		}
	})
}

func TestFrontend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, _ := newTestRunner(t, "")
	db, err := runner.openDatabase()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer db.Close()

	f, err := runner.newFrontend(ctx, db, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer f.stop()

	for _, tc := range []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{name: "health", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "landing", method: http.MethodGet, path: "/", status: http.StatusOK, body: "Sign in with Google"},
		{name: "sign in without config", method: http.MethodGet, path: "/auth/signin?attempt=a1", status: http.StatusBadRequest},
		{name: "credits without token", method: http.MethodGet, path: "/api/v1/user/u1/credits", status: http.StatusUnauthorized},
		{name: "metrics", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, rec.Code)
			}
			if tc.body != "" && !strings.Contains(rec.Body.String(), tc.body) {
				t.Errorf("expected body to contain %q", tc.body)
			}
		})
	}
}
