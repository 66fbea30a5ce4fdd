package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/notify"
	"github.com/imkarma/taskboard/internal/store"
)

type testEnv struct {
	echo    *echo.Echo
	store   *store.Store
	notes   *notify.Queue
	project *store.Project
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	p, err := s.CreateProject(context.Background(), "Board", "", "mgr", nil, nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	logger := log.New()
	logger.SetOutput(io.Discard)
	notes := notify.NewQueue(time.Minute, logger)
	t.Cleanup(notes.Close)

	hub := board.NewHub(s, board.Options{Logger: logger, Notifier: notes})
	e := NewServer(s, hub, notes, logger, 5*time.Second)
	return &testEnv{echo: e, store: s, notes: notes, project: p}
}

func (env *testEnv) do(t *testing.T, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if actor != "" {
		req.Header.Set(HeaderUserID, actor)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) addTask(t *testing.T, title string, status store.TaskStatus, rank int64) *store.Task {
	t.Helper()
	task, err := env.store.CreateTask(context.Background(), store.TaskDraft{
		ProjectID: env.project.ID, Title: title, Status: status, Rank: rank,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func decodeBoard(t *testing.T, rec *httptest.ResponseRecorder) board.Board {
	t.Helper()
	var b board.Board
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode board: %v (body %s)", err, rec.Body.String())
	}
	return b
}

func titles(tasks []store.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetBoard(t *testing.T) {
	env := newTestEnv(t)
	env.addTask(t, "B", store.StatusTodo, 2)
	env.addTask(t, "A", store.StatusTodo, 1)
	env.addTask(t, "C", store.StatusDone, 1)

	rec := env.do(t, http.MethodGet, "/projects/"+env.project.ID+"/board", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	b := decodeBoard(t, rec)
	if got := titles(b.Todo); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("unexpected todo lane %v", got)
	}
	if b.Progress != 33 {
		t.Errorf("expected progress 33, got %d", b.Progress)
	}
}

func TestGetBoard_UnknownProject(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/projects/missing/board", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPostDrop_ReordersLane(t *testing.T) {
	env := newTestEnv(t)
	a := env.addTask(t, "A", store.StatusTodo, 100)
	b := env.addTask(t, "B", store.StatusTodo, 200)

	body := `{"sourceLane":"todo","destLane":"todo","sourceIndex":1,"destIndex":0,"source":["` + a.ID + `","` + b.ID + `"]}`
	rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/drop", "mgr", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := titles(decodeBoard(t, rec).Todo); got[0] != "B" || got[1] != "A" {
		t.Errorf("expected B before A, got %v", got)
	}

	stored, _ := env.store.ListTasksByProject(context.Background(), env.project.ID)
	if stored[0].Title != "B" || stored[0].Rank >= stored[1].Rank {
		t.Errorf("store not reordered: %+v", stored)
	}
}

func TestPostDrop_CrossLane(t *testing.T) {
	env := newTestEnv(t)
	a := env.addTask(t, "A", store.StatusTodo, 100)

	body := `{"sourceLane":"todo","destLane":"done","sourceIndex":0,"destIndex":0,"source":["` + a.ID + `"],"dest":[]}`
	rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/drop", "mgr", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	b := decodeBoard(t, rec)
	if len(b.Done) != 1 || b.Done[0].Status != store.StatusDone || b.Progress != 100 {
		t.Errorf("expected A in done lane, got %+v", b)
	}
}

func TestPostDrop_NonManagerIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	a := env.addTask(t, "A", store.StatusTodo, 100)
	b := env.addTask(t, "B", store.StatusTodo, 200)

	body := `{"sourceLane":"todo","destLane":"todo","sourceIndex":1,"destIndex":0,"source":["` + a.ID + `","` + b.ID + `"]}`
	rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/drop", "someone", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := titles(decodeBoard(t, rec).Todo); got[0] != "A" {
		t.Errorf("board changed for non-manager: %v", got)
	}
	got, _ := env.store.GetTask(context.Background(), a.ID)
	if got.Rank != 100 {
		t.Errorf("rank written for non-manager: %d", got.Rank)
	}
}

func TestPostDrop_MissingActor(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/drop", "", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPostDrop_UnknownTask(t *testing.T) {
	env := newTestEnv(t)

	body := `{"sourceLane":"todo","destLane":"todo","sourceIndex":0,"destIndex":0,"source":["nope"]}`
	rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/drop", "mgr", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostDrop_RejectsLaneMismatch(t *testing.T) {
	env := newTestEnv(t)
	d := env.addTask(t, "D", store.StatusDone, 100)
	todo := env.addTask(t, "T", store.StatusTodo, 200)
	ctx := context.Background()

	bodies := []string{
		`{"sourceLane":"todo","destLane":"todo","sourceIndex":1,"destIndex":0,"source":["` + d.ID + `","` + todo.ID + `"]}`,
		`{"sourceLane":"todo","destLane":"todo","sourceIndex":1,"destIndex":0,"source":["` + todo.ID + `","` + todo.ID + `"]}`,
	}
	for _, body := range bodies {
		rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/drop", "mgr", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	if got, _ := env.store.GetTask(ctx, d.ID); got.Rank != 100 || got.Status != store.StatusDone {
		t.Errorf("done task changed: %+v", got)
	}
	if got, _ := env.store.GetTask(ctx, todo.ID); got.Rank != 200 {
		t.Errorf("todo task re-ranked: %d", got.Rank)
	}
	events, _ := env.store.GetEvents(ctx, todo.ID)
	if len(events) != 1 {
		t.Errorf("expected only the creation event, got %d", len(events))
	}
}

func TestPostDrop_RecordsActor(t *testing.T) {
	env := newTestEnv(t)
	a := env.addTask(t, "A", store.StatusTodo, 100)

	body := `{"sourceLane":"todo","destLane":"done","sourceIndex":0,"destIndex":0,"source":["` + a.ID + `"],"dest":[]}`
	if rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/drop", "mgr", body); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	events, err := env.store.GetEvents(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) < 2 {
		t.Fatalf("expected status and rank events, got %d", len(events))
	}
	for _, e := range events[1:] {
		if e.Actor != "mgr" {
			t.Errorf("%s event: expected actor mgr, got %q", e.Type, e.Actor)
		}
	}
}

func TestPostTask(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/tasks", "mgr", `{"title":"Write docs","priority":"high"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created store.Task
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Status != store.StatusTodo || created.Priority != store.PriorityHigh {
		t.Errorf("unexpected task %+v", created)
	}

	if len(env.notes.Pending()) == 0 {
		t.Error("expected a notification after create")
	}
	rec = env.do(t, http.MethodGet, "/notifications", "", "")
	if !strings.Contains(rec.Body.String(), "Write docs") {
		t.Errorf("notification not listed: %s", rec.Body.String())
	}
}

func TestPostTask_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/tasks", "member", `{"title":"x"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestPatchAndDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	a := env.addTask(t, "A", store.StatusTodo, 1)

	rec := env.do(t, http.MethodPatch, "/tasks/"+a.ID, "mgr", `{"status":"inprogress","title":"A2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated store.Task
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Status != store.StatusInProgress || updated.Title != "A2" {
		t.Errorf("patch not applied: %+v", updated)
	}

	rec = env.do(t, http.MethodDelete, "/tasks/"+a.ID, "mgr", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/tasks/"+a.ID, "mgr", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestPostFinish(t *testing.T) {
	env := newTestEnv(t)
	a := env.addTask(t, "A", store.StatusTodo, 1)
	path := "/projects/" + env.project.ID + "/finish"

	rec := env.do(t, http.MethodPost, path, "mgr", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while tasks are open, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/tasks/"+a.ID, "mgr", `{"status":"done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, path, "mgr", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !decodeBoard(t, rec).Locked {
		t.Error("expected board to be locked after finish")
	}

	p, _ := env.store.GetProject(context.Background(), env.project.ID)
	if p.Status != store.ProjectCompleted || p.FinishedAt == nil {
		t.Errorf("project not completed: %+v", p)
	}

	rec = env.do(t, http.MethodPost, "/projects/"+env.project.ID+"/tasks", "mgr", `{"title":"late"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on finished project, got %d", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	env.addTask(t, "A", store.StatusTodo, 1)
	env.addTask(t, "B", store.StatusDone, 1)

	rec := env.do(t, http.MethodGet, "/projects/"+env.project.ID+"/stats", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var s board.Stats
	json.Unmarshal(rec.Body.Bytes(), &s)
	if s.Total != 2 || s.Progress != 50 {
		t.Errorf("unexpected stats %+v", s)
	}
}
