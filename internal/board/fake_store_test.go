package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/notify"
	"github.com/imkarma/taskboard/internal/store"
)

var errStoreDown = errors.New("store unavailable")

// call is one write observed by fakeStore.
type call struct {
	Op     string // "status", "rank", "update", "create", "delete", "project"
	TaskID string
	Status store.TaskStatus
	Rank   int64
}

// fakeStore is an in-memory Store that records every write.
type fakeStore struct {
	mu       sync.Mutex
	project  store.Project
	tasks    map[string]*store.Task
	order    []string
	calls    []call
	reads    int
	nextID   int
	failRank map[int]bool // 1-based SetTaskRank attempt numbers that fail
	rankTry  int
	failAll  bool
}

func newFakeStore(project store.Project, tasks ...store.Task) *fakeStore {
	fs := &fakeStore{project: project, tasks: make(map[string]*store.Task), failRank: make(map[int]bool)}
	for _, t := range tasks {
		if t.ProjectID == "" {
			t.ProjectID = project.ID
		}
		fs.tasks[t.ID] = &t
		fs.order = append(fs.order, t.ID)
	}
	return fs
}

func (f *fakeStore) ListTasksByProject(_ context.Context, projectID string) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failAll {
		return nil, errStoreDown
	}
	var out []store.Task
	for _, id := range f.order {
		if t, ok := f.tasks[id]; ok && t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTask(_ context.Context, id string) (*store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) CreateTask(_ context.Context, d store.TaskDraft) (*store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errStoreDown
	}
	f.nextID++
	t := store.Task{
		ID:        fmt.Sprintf("new-%d", f.nextID),
		ProjectID: d.ProjectID,
		Title:     d.Title,
		Status:    d.Status,
		Priority:  d.Priority,
		Rank:      d.Rank,
	}
	if t.Status == "" {
		t.Status = store.StatusTodo
	}
	f.tasks[t.ID] = &t
	f.order = append(f.order, t.ID)
	f.calls = append(f.calls, call{Op: "create", TaskID: t.ID, Rank: t.Rank})
	return &t, nil
}

func (f *fakeStore) UpdateTask(_ context.Context, id string, p store.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := "update"
	var status store.TaskStatus
	if p.Status != nil {
		status = *p.Status
		if p.Title == nil && p.Rank == nil {
			op = "status"
		}
	}
	f.calls = append(f.calls, call{Op: op, TaskID: id, Status: status})
	if f.failAll {
		return errStoreDown
	}
	t, ok := f.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Rank != nil {
		t.Rank = *p.Rank
	}
	return nil
}

func (f *fakeStore) SetTaskRank(_ context.Context, id string, rank int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rankTry++
	f.calls = append(f.calls, call{Op: "rank", TaskID: id, Rank: rank})
	if f.failAll || f.failRank[f.rankTry] {
		return errStoreDown
	}
	t, ok := f.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Rank = rank
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "delete", TaskID: id})
	if _, ok := f.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) GetProject(_ context.Context, id string) (*store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failAll {
		return nil, errStoreDown
	}
	if id != f.project.ID {
		return nil, store.ErrNotFound
	}
	p := f.project
	return &p, nil
}

func (f *fakeStore) UpdateProject(_ context.Context, id string, p store.ProjectPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "project", TaskID: id})
	if f.failAll {
		return errStoreDown
	}
	if p.Status != nil {
		f.project.Status = *p.Status
	}
	if p.FinishedAt != nil {
		at := *p.FinishedAt
		f.project.FinishedAt = &at
	}
	return nil
}

func (f *fakeStore) writes() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeStore) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.reads = 0
}

func (f *fakeStore) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeStore) rank(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id].Rank
}

func (f *fakeStore) setFailAll(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = v
}

func (f *fakeStore) failRankAttempt(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRank[n] = true
}

// note is one message seen by fakeNotifier.
type note struct {
	Message string
	Kind    notify.Kind
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotifier) Notify(message string, kind notify.Kind, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{Message: message, Kind: kind})
}

func (n *fakeNotifier) all() []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]note(nil), n.notes...)
}

// fakeCache is an in-memory Cache.
type fakeCache struct {
	mu     sync.Mutex
	boards map[string]Board
}

func newFakeCache() *fakeCache {
	return &fakeCache{boards: make(map[string]Board)}
}

func (c *fakeCache) Get(_ context.Context, projectID string) (*Board, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.boards[projectID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (c *fakeCache) Put(_ context.Context, b Board) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards[b.ProjectID] = b
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.boards, projectID)
	return nil
}

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// fixedClock returns a clock that always reports ms milliseconds after the epoch.
func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}
