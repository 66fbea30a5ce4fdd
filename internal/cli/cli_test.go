package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/config"
	"github.com/imkarma/taskboard/internal/store"
)

func TestResolveActor(t *testing.T) {
	cfg := &config.Config{Actor: "from-config"}

	if got, _ := resolveActor("from-flag", cfg); got != "from-flag" {
		t.Errorf("flag should win, got %q", got)
	}
	if got, _ := resolveActor("", cfg); got != "from-config" {
		t.Errorf("expected config actor, got %q", got)
	}
	if _, err := resolveActor("", &config.Config{}); err == nil {
		t.Error("expected error without any actor")
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-01")
	if err != nil || d == nil || d.Day() != 1 || d.Month() != 3 {
		t.Fatalf("unexpected result %v, %v", d, err)
	}
	if d, err := parseDate(""); d != nil || err != nil {
		t.Errorf("empty should be unset, got %v, %v", d, err)
	}
	if _, err := parseDate("01/03/2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestShortIDAndTruncate(t *testing.T) {
	if got := shortID("1b4e28ba-2fa1-11d2-883f-0016d3cca427"); got != "1b4e28ba" {
		t.Errorf("unexpected short id %q", got)
	}
	if got := truncate("a long title here", 10); got != "a long ..." {
		t.Errorf("unexpected truncate %q", got)
	}
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("unexpected pad %q", got)
	}
}

func TestRenderBoard(t *testing.T) {
	b := board.NewBoard("p1", []store.Task{
		{ID: "a", Title: "Write docs", Status: store.StatusTodo, Rank: 1, Priority: store.PriorityHigh},
		{ID: "b", Title: "Ship", Status: store.StatusDone, Rank: 1},
	})

	out := renderBoard(b, boardColWidth)
	for _, want := range []string{"TO DO", "IN PROGRESS", "DONE", "Write docs", "Ship", "2 tasks", "50%"} {
		if !strings.Contains(out, want) {
			t.Errorf("board output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	e := store.Event{Actor: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", Type: "reranked", Content: "Rank set to 5"}
	if got := formatEvent(e); !strings.HasPrefix(got, "[1b4e28ba] reranked") || !strings.HasSuffix(got, "Rank set to 5") {
		t.Errorf("unexpected event line %q", got)
	}
	e.Actor = ""
	if got := formatEvent(e); strings.HasPrefix(got, "[") {
		t.Errorf("event without actor should have no prefix, got %q", got)
	}
}

// run executes the command tree the way main does.
func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return Execute(context.Background())
}

func TestCommands_EndToEnd(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if err := run(t, "task", "list", "p"); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}

	if err := run(t, "init", "--name", "Ann", "--email", "ann@example.com"); err != nil {
		t.Fatalf("init: %v", err)
	}
	initUserName, initEmail = "", ""

	cfg, err := config.Load(filepath.Join(workspaceDirName, "config.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Actor == "" {
		t.Fatal("init should set the actor")
	}

	if err := run(t, "project", "create", "Launch"); err != nil {
		t.Fatalf("project create: %v", err)
	}

	s, err := store.New(workspacePath(cfg.Database))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	projects, err := s.ListProjects(ctx)
	if err != nil || len(projects) != 1 {
		t.Fatalf("expected one project, got %v (%v)", projects, err)
	}
	p := projects[0]
	if p.CreatedBy != cfg.Actor {
		t.Errorf("project manager should be the actor, got %s", p.CreatedBy)
	}

	if err := run(t, "task", "create", p.ID, "First"); err != nil {
		t.Fatalf("task create: %v", err)
	}
	if err := run(t, "task", "create", p.ID, "Second"); err != nil {
		t.Fatalf("task create: %v", err)
	}
	tasks, _ := s.ListTasksByProject(ctx, p.ID)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	first, second := tasks[0], tasks[1]

	if err := run(t, "task", "move", first.ID, "done"); err != nil {
		t.Fatalf("task move: %v", err)
	}
	got, _ := s.GetTask(ctx, first.ID)
	if got.Status != store.StatusDone {
		t.Errorf("expected first done, got %s", got.Status)
	}

	if err := run(t, "project", "finish", p.ID); err == nil {
		t.Fatal("finish should fail while a task is open")
	}

	if err := run(t, "task", "move", second.ID, "done"); err != nil {
		t.Fatalf("task move: %v", err)
	}
	if err := run(t, "project", "finish", p.ID); err != nil {
		t.Fatalf("project finish: %v", err)
	}
	finished, _ := s.GetProject(ctx, p.ID)
	if finished.Status != store.ProjectCompleted {
		t.Errorf("expected completed project, got %s", finished.Status)
	}

	// A finished board ignores moves.
	if err := run(t, "task", "move", first.ID, "todo"); err != nil {
		t.Fatalf("task move on finished board: %v", err)
	}
	got, _ = s.GetTask(ctx, first.ID)
	if got.Status != store.StatusDone {
		t.Errorf("finished board changed: %s", got.Status)
	}

	if err := run(t, "board", p.ID); err != nil {
		t.Errorf("board: %v", err)
	}
	if err := run(t, "stats", p.ID); err != nil {
		t.Errorf("stats: %v", err)
	}
	if err := run(t, "log", first.ID); err != nil {
		t.Errorf("log: %v", err)
	}
	events, _ := s.GetEvents(ctx, first.ID)
	var moved bool
	for _, e := range events {
		if e.Type == "status_changed" {
			moved = true
			if e.Actor != cfg.Actor {
				t.Errorf("status change should name the actor, got %q", e.Actor)
			}
		}
	}
	if !moved {
		t.Error("expected a status change event")
	}
}
