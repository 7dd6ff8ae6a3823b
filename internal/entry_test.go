package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/starford/indexsync/internal/algolia/algoliatest"
	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/publisher"
	"github.com/starford/indexsync/internal/testutil"
)

func testConfig(t *testing.T, srv *algoliatest.Server) (*Config, string) {
	t.Helper()
	dir, _ := testutil.TestContent(t)
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = slog.LevelError
	cfg.Content.Path = dir
	cfg.Journal.Path = filepath.Join(t.TempDir(), "state", "journal.db")
	cfg.Algolia.AppID = "APP"
	cfg.Algolia.APIKey = "KEY"
	cfg.Algolia.BaseURL = srv.URL
	return cfg, dir
}

func TestPublishCommand(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	cfg, dir := testConfig(t, srv)
	testutil.WriteIndexed(t, dir, "a", "b")
	srv.Put("docs", "b", "z")

	var out bytes.Buffer
	if err := Publish(context.Background(), "algolia://docs", nil, false, WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("Publish: %v\n%s", err, out.String())
	}
	if got := srv.IDs("docs"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("remote ids = %v", got)
	}
	for _, want := range []string{"Connected to index docs", "Changeset: 1 to delete, 2 to upsert.", "Published docs: 1 deleted, 2 upserted"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := History(context.Background(), 5, WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("History: %v", err)
	}
	if !strings.Contains(out.String(), "docs") || !strings.Contains(out.String(), "ok") {
		t.Errorf("history output:\n%s", out.String())
	}
}

func TestPublishCommand_MissingCredentials(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	cfg, _ := testConfig(t, srv)
	cfg.Algolia.APIKey = ""

	var out bytes.Buffer
	if err := Publish(context.Background(), "algolia://docs", nil, false, WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := publisher.MsgNoConnection + "\n" + publisher.MsgNoCredHint + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if n := len(srv.Log()); n != 0 {
		t.Errorf("%d remote calls without credentials", n)
	}
}

func TestPublishCommand_Override(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	cfg, _ := testConfig(t, srv)
	cfg.Algolia.APIKey = ""
	srv.CreateIndex("docs")

	var out bytes.Buffer
	err := Publish(context.Background(), "algolia://docs", &models.Override{Key: "KEY"}, true, WithConfig(cfg), WithOutput(&out))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.Contains(out.String(), "Dry run: no changes applied") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestPublishCommand_Errors(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	cfg, _ := testConfig(t, srv)

	tests := []struct {
		name   string
		target string
		kind   error
	}{
		{"no scheme", "docs", apperr.ErrInvalidTarget},
		{"unknown scheme", "elastic://docs", apperr.ErrInvalidTarget},
		{"missing index", "algolia://missing", apperr.ErrIndexUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := Publish(context.Background(), tt.target, nil, false, WithConfig(cfg), WithOutput(&out))
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %v", err, tt.kind)
			}
			if !strings.Contains(out.String(), "error: ") {
				t.Errorf("output:\n%s", out.String())
			}
		})
	}
}

func TestRecordsCommand(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	cfg, dir := testConfig(t, srv)
	testutil.WriteIndexed(t, dir, "a")

	var out bytes.Buffer
	if err := Records(context.Background(), WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("Records: %v", err)
	}
	if !strings.Contains(out.String(), `"objectID":"a"`) {
		t.Errorf("output:\n%s", out.String())
	}
	if n := len(srv.Log()); n != 0 {
		t.Errorf("records made %d remote calls", n)
	}
}

func TestHistoryCommand_Disabled(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	cfg, _ := testConfig(t, srv)
	cfg.Journal.Path = ""

	if err := History(context.Background(), 5, WithConfig(cfg), WithOutput(io.Discard)); !errors.Is(err, errNoJournal) {
		t.Fatalf("err = %v", err)
	}
}

func TestCommandsRequireConfig(t *testing.T) {
	if err := Publish(context.Background(), "algolia://docs", nil, false); err == nil {
		t.Error("Publish without config should fail")
	}
	if err := Records(context.Background()); err == nil {
		t.Error("Records without config should fail")
	}
}

func TestReadyHandler(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	cfg, dir := testConfig(t, srv)
	cfg.Journal.Path = ""
	c, err := build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	readyHandler(c)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}

	testutil.WriteNode(t, dir, "", "---\ntitle: [unclosed\n---\n")
	rec = httptest.NewRecorder()
	readyHandler(c)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with broken root = %d", rec.Code)
	}
}
