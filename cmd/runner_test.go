package main

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/shared"
	tu "github.com/mkessler/crate/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := &tu.MockCatalog{}
			backend := tu.NewMockBackend()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    catalog,
				Backend:    backend,
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
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.backend != backend {
				t.Error("expected backend to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil input uses stdin", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})
	})

	t.Run("resolveBackend", func(t *testing.T) {
		t.Run("fails when backend is not configured", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			_, err := runner.resolveBackend()
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("reports blank connection values as invalid config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Backend.URL = ""
			config.Backend.APIKey = ""
			runner := NewRunner(RunnerOpts{Config: config})

			_, err := runner.resolveBackend()
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("returns the configured backend", func(t *testing.T) {
			backend := tu.NewMockBackend()
			runner := NewRunner(RunnerOpts{Backend: backend})

			resolved, err := runner.resolveBackend()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resolved != backend {
				t.Error("expected the configured backend")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("compact output", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"count": 3}, false); err != nil {
				t.Fatalf("failed to write JSON: %v", err)
			}
			if got := output.String(); got != "{\"count\":3}\n" {
				t.Errorf("unexpected output: %q", got)
			}
		})

		t.Run("pretty output is indented", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"count": 3}, true); err != nil {
				t.Fatalf("failed to write JSON: %v", err)
			}
			if !strings.Contains(output.String(), "\n  ") {
				t.Error("expected indented output")
			}
		})

		t.Run("propagates write failures", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON(map[string]int{"count": 3}, false); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("confirmAction", func(t *testing.T) {
		tests := []struct {
			name     string
			answer   string
			expected bool
		}{
			{"y confirms", "y\n", true},
			{"yes confirms", "yes\n", true},
			{"uppercase Y confirms", "Y\n", true},
			{"n declines", "n\n", false},
			{"empty declines", "\n", false},
			{"anything else declines", "maybe\n", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				output := &bytes.Buffer{}
				runner := NewRunner(RunnerOpts{
					Output: output,
					Input:  strings.NewReader(tt.answer),
				})

				if got := runner.confirmAction("Delete everything?"); got != tt.expected {
					t.Errorf("confirmAction(%q) = %v, expected %v", tt.answer, got, tt.expected)
				}
				if !strings.Contains(output.String(), "Delete everything?") {
					t.Error("expected the prompt to be written")
				}
			})
		}
	})
}

func TestSessionFile(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		session := &models.Session{
			AccessToken:  "tok",
			RefreshToken: "ref",
			ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
			User:         models.User{ID: "user-1", Email: "me@example.com"},
		}

		if err := saveSessionFile(session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		loaded, err := loadSessionFile()
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if loaded == nil || loaded.AccessToken != "tok" || loaded.User.ID != "user-1" {
			t.Errorf("unexpected session: %+v", loaded)
		}
	})

	t.Run("missing file loads as nil", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		session, err := loadSessionFile()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session != nil {
			t.Errorf("expected nil session, got %+v", session)
		}
	})

	t.Run("session file has owner-only permissions", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		if err := saveSessionFile(&models.Session{AccessToken: "tok"}); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		path, err := sessionFilePath()
		if err != nil {
			t.Fatalf("failed to resolve session path: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat session file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		if err := removeSessionFile(); err != nil {
			t.Errorf("removing a missing session file should succeed: %v", err)
		}

		if err := saveSessionFile(&models.Session{AccessToken: "tok"}); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		if err := removeSessionFile(); err != nil {
			t.Errorf("failed to remove session file: %v", err)
		}
		if session, _ := loadSessionFile(); session != nil {
			t.Error("expected session file to be gone")
		}
	})
}
