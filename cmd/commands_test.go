package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/ytmirror/internal/cache"
	"github.com/desertthunder/ytmirror/internal/formatter"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/repositories"
	"github.com/desertthunder/ytmirror/internal/shared"
	tu "github.com/desertthunder/ytmirror/internal/testing"
)

type testEnv struct {
	output   *bytes.Buffer
	source   *tu.MockSource
	searcher *tu.MockSearcher
	cache    *cache.MemoryPageCache
}

func newTestRunner(t *testing.T) (*Runner, *testEnv) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Sync.SearchRate = 1000

	env := &testEnv{
		output:   &bytes.Buffer{},
		source:   tu.NewMockSource(),
		searcher: tu.NewMockSearcher(),
		cache:    cache.NewMemoryPageCache(),
	}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Output:   env.output,
		DB:       tu.NewTestDB(t),
		Cache:    env.cache,
		Source:   env.source,
		Searcher: env.searcher,
	})
	return runner, env
}

// run executes args against a fresh root command with a config path that does not exist.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	argv := append([]string{"ytmirror", "--config", filepath.Join(t.TempDir(), "absent.toml")}, args...)
	return newApp(r).Run(context.Background(), argv)
}

func TestPageCommand(t *testing.T) {
	t.Run("prints a classified page", func(t *testing.T) {
		runner, env := newTestRunner(t)
		env.source.SetItems("PL1", tu.Items("PL1", 120))
		env.searcher.On("PL1 50", models.Candidate{ID: "sp1", Name: "PL1 50"})

		if err := run(t, runner, "page", "--page", "2", "--owner", "alice", "PL1"); err != nil {
			t.Fatalf("page failed: %v", err)
		}

		output := env.output.String()
		for _, want := range []string{"PL1 · page 2", "Items: 120", "PENDING", "UNAVAILABLE", "Fetching page 2"} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q:\n%s", want, output)
			}
		}
		if strings.Contains(output, "end of collection") {
			t.Error("page 2 of 3 is not the end")
		}
	})

	t.Run("json output", func(t *testing.T) {
		runner, env := newTestRunner(t)
		env.source.SetItems("PL1", tu.Items("PL1", 60))

		if err := run(t, runner, "page", "--page", "2", "--json", "PL1"); err != nil {
			t.Fatalf("page failed: %v", err)
		}

		var view formatter.PageView
		if err := json.Unmarshal(env.output.Bytes(), &view); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, env.output.String())
		}
		if view.Page != 2 || len(view.Items) != 10 || view.HasNext {
			t.Errorf("unexpected view: page=%d items=%d next=%v", view.Page, len(view.Items), view.HasNext)
		}
		if view.Items[0].ID != "PL1-50" || view.Items[0].State != models.Unavailable {
			t.Errorf("unexpected first item %+v", view.Items[0])
		}
	})

	t.Run("csv export", func(t *testing.T) {
		runner, env := newTestRunner(t)
		env.source.SetItems("PL1", tu.Items("PL1", 3))
		path := filepath.Join(t.TempDir(), "page.csv")

		if err := run(t, runner, "page", "--csv", "--output", path, "PL1"); err != nil {
			t.Fatalf("page failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "PL1-2") {
			t.Errorf("CSV missing last item:\n%s", content)
		}
	})

	t.Run("argument errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"missing playlist", []string{"page"}, shared.ErrMissingArgument},
			{"page below 1", []string{"page", "--page", "0", "PL1"}, shared.ErrInvalidArgument},
			{"past the end", []string{"page", "--page", "5", "PL1"}, shared.ErrInvalidRange},
			{"unknown playlist", []string{"page", "PL404"}, shared.ErrCollectionNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runner, env := newTestRunner(t)
				env.source.SetItems("PL1", tu.Items("PL1", 60))

				if err := run(t, runner, tt.args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("walks every page and lists the playlist as processed", func(t *testing.T) {
		runner, env := newTestRunner(t)
		env.source.SetItems("PL1", tu.Items("PL1", 60))

		if err := run(t, runner, "sync", "PL1"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		output := env.output.String()
		for _, want := range []string{"Synced PL1", "Pages: 2", "Items: 60", "[2/2] Page 2: 10 items"} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q:\n%s", want, output)
			}
		}

		env.output.Reset()
		if err := run(t, runner, "collections", "--status", "processed", "--json"); err != nil {
			t.Fatalf("collections failed: %v", err)
		}

		var views []formatter.CollectionView
		if err := json.Unmarshal(env.output.Bytes(), &views); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(views) != 1 || views[0].RemoteID != "PL1" || views[0].ItemCount != 60 {
			t.Errorf("unexpected collections %+v", views)
		}
	})

	t.Run("json output", func(t *testing.T) {
		runner, env := newTestRunner(t)
		env.source.SetItems("PL1", tu.Items("PL1", 3))
		env.searcher.Fail("PL1 1", shared.ErrAPIRequest)

		if err := run(t, runner, "sync", "--json", "PL1"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		var view formatter.SyncView
		if err := json.Unmarshal(env.output.Bytes(), &view); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if view.Pages != 1 || view.Items != 3 {
			t.Errorf("unexpected totals %+v", view)
		}
		if view.States[models.Unchecked] != 1 || view.Failures["parsingError"] != 1 {
			t.Errorf("expected one failed classification, got %+v", view)
		}
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		if err := run(t, runner, "collections", "--status", "archived"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestTokensCommand(t *testing.T) {
	runner, env := newTestRunner(t)
	env.source.SetItems("PL1", tu.Items("PL1", 160))

	if err := run(t, runner, "page", "--page", "3", "--json", "PL1"); err != nil {
		t.Fatalf("page failed: %v", err)
	}
	env.output.Reset()

	if err := run(t, runner, "tokens", "--json", "PL1"); err != nil {
		t.Fatalf("tokens failed: %v", err)
	}

	var entries []models.PageTokenEntry
	if err := json.Unmarshal(env.output.Bytes(), &entries); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected pages 1-4 recorded, got %+v", entries)
	}
	if entries[2].Page != 3 || entries[2].Token != tu.Token(100) {
		t.Errorf("unexpected page 3 entry %+v", entries[2])
	}

	env.output.Reset()
	if err := run(t, runner, "tokens", "PL1"); err != nil {
		t.Fatalf("tokens failed: %v", err)
	}
	if !strings.Contains(env.output.String(), "4 recorded page(s)") {
		t.Errorf("unexpected output:\n%s", env.output.String())
	}
}

func TestClassifyAndMatchCommands(t *testing.T) {
	runner, env := newTestRunner(t)
	env.searcher.On("Unknown Song (Official)", models.Candidate{ID: "sp1", Name: "Unknown Song", Artists: []string{"Artist X"}})
	env.searcher.Fail("Broken", shared.ErrAuthExpired)

	t.Run("classify finds a pending candidate", func(t *testing.T) {
		if err := run(t, runner, "classify", "--id", "v1", "--title", "Unknown Song (Official)", "--owner", "alice"); err != nil {
			t.Fatalf("classify failed: %v", err)
		}
		output := env.output.String()
		if !strings.Contains(output, "PENDING") || !strings.Contains(output, "Artist X - Unknown Song (4)") {
			t.Errorf("unexpected output:\n%s", output)
		}
	})

	t.Run("classify reports failures", func(t *testing.T) {
		if err := run(t, runner, "classify", "--id", "v2", "--title", "Broken"); !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
	})

	t.Run("confirm", func(t *testing.T) {
		env.output.Reset()
		if err := run(t, runner, "match", "confirm", "--id", "v1", "--owner", "alice"); err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "AVAILABLE") {
			t.Errorf("unexpected output:\n%s", env.output.String())
		}
	})

	t.Run("reject after confirm is an invalid transition", func(t *testing.T) {
		if err := run(t, runner, "match", "reject", "--id", "v1", "--owner", "alice"); !errors.Is(err, shared.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		env.output.Reset()
		if err := run(t, runner, "match", "list", "--owner", "alice", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}

		var views []formatter.RecordView
		if err := json.Unmarshal(env.output.Bytes(), &views); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(views) != 1 || views[0].State != models.Available || views[0].CandidateID != "sp1" {
			t.Errorf("unexpected records %+v", views)
		}

		env.output.Reset()
		if err := run(t, runner, "match", "list", "--owner", "alice"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Records for alice") {
			t.Errorf("unexpected output:\n%s", env.output.String())
		}
	})

	t.Run("reset forgets the record", func(t *testing.T) {
		if err := run(t, runner, "match", "reset", "--id", "v1", "--owner", "alice"); err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		if err := run(t, runner, "match", "reset", "--id", "v1", "--owner", "alice"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second reset, got %v", err)
		}
	})

	t.Run("list rejects an unknown state", func(t *testing.T) {
		if err := run(t, runner, "match", "list", "--state", "MAYBE"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestMatchCommandsWithoutRemotes(t *testing.T) {
	db := tu.NewTestDB(t)
	records := repositories.NewCorrelationRepository(db)
	candidate := models.Candidate{ID: "sp1", Name: "Song", Artists: []string{"Artist"}}
	if err := records.Create(models.NewPendingRecord("v1", "alice", candidate, 80)); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Output: output, DB: db})

	if err := run(t, runner, "match", "reject", "--id", "v1", "--owner", "alice"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if !strings.Contains(output.String(), "UNAVAILABLE") {
		t.Errorf("unexpected output:\n%s", output.String())
	}
	if runner.engine != nil || runner.searcher != nil {
		t.Error("reviewing records should not open the search client")
	}

	got, err := records.GetByItem("v1", "alice")
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if got.State() != models.Unavailable {
		t.Errorf("expected UNAVAILABLE, got %s", got.State())
	}
}

func TestCachePurgeCommand(t *testing.T) {
	runner, env := newTestRunner(t)
	env.source.SetItems("PL1", tu.Items("PL1", 60))
	env.source.SetItems("PL2", tu.Items("PL2", 10))

	if err := run(t, runner, "page", "--json", "PL1"); err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if err := run(t, runner, "page", "--json", "PL2"); err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if n := env.cache.Len(); n != 2 {
		t.Fatalf("expected 2 cached pages, got %d", n)
	}

	if err := run(t, runner, "cache", "purge", "PL1"); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if n := env.cache.Len(); n != 1 {
		t.Errorf("expected only PL2 cached, got %d pages", n)
	}

	calls := env.source.Calls()
	if err := run(t, runner, "page", "--json", "PL1"); err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if env.source.Calls() == calls {
		t.Error("expected a remote fetch after purge")
	}
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		if err := newApp(runner).Run(context.Background(), []string{"ytmirror", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := newApp(runner).Run(context.Background(), []string{"ytmirror", "--config", path, "setup", "config"}); err == nil {
			t.Error("expected an error when the file already exists")
		}
	})

	t.Run("database and rollback", func(t *testing.T) {
		runner, env := newTestRunner(t)

		if err := run(t, runner, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Database ready") {
			t.Errorf("unexpected output:\n%s", env.output.String())
		}

		if err := run(t, runner, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Rolled back schema version") {
			t.Errorf("unexpected output:\n%s", env.output.String())
		}
	})

	t.Run("database file", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "ytmirror.db")
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		if err := run(t, runner, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)
	})
}

func TestConfigure(t *testing.T) {
	t.Run("loads the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[sync]\npage_size = 10\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner, env := newTestRunner(t)
		env.source.SetItems("PL1", tu.Items("PL1", 25))

		if err := newApp(runner).Run(context.Background(), []string{"ytmirror", "--config", path, "page", "--page", "3", "--json", "PL1"}); err != nil {
			t.Fatalf("page failed: %v", err)
		}
		if runner.config.Sync.PageSize != 10 {
			t.Errorf("expected page size 10, got %d", runner.config.Sync.PageSize)
		}

		var view formatter.PageView
		if err := json.Unmarshal(env.output.Bytes(), &view); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(view.Items) != 5 {
			t.Errorf("expected 5 items on page 3 of 25, got %d", len(view.Items))
		}
	})

	t.Run("invalid config aborts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[sync]\npage_size = 99\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner, _ := newTestRunner(t)
		err := newApp(runner).Run(context.Background(), []string{"ytmirror", "--config", path, "tokens", "PL1"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
