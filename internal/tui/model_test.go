package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
)

type fakeEngine struct {
	mu        sync.Mutex
	board     board.Board
	canMutate bool
	updates   chan board.Board

	drops    []board.Drop
	created  []store.TaskDraft
	deleted  []string
	finished int
}

func newFakeEngine(tasks ...store.Task) *fakeEngine {
	return &fakeEngine{
		board:     board.NewBoard("p1", tasks),
		canMutate: true,
		updates:   make(chan board.Board, 1),
	}
}

func (f *fakeEngine) Board() board.Board { return f.board.Clone() }

func (f *fakeEngine) Project() *store.Project {
	return &store.Project{ID: "p1", Name: "Launch", CreatedBy: "mgr"}
}

func (f *fakeEngine) CanMutate(string) bool { return f.canMutate }

func (f *fakeEngine) Subscribe() (<-chan board.Board, func()) { return f.updates, func() {} }

func (f *fakeEngine) Refresh(context.Context) error { return nil }

func (f *fakeEngine) HandleDrop(_ context.Context, _ string, d board.Drop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops = append(f.drops, d)
	return nil
}

func (f *fakeEngine) CreateTask(_ context.Context, _ string, d store.TaskDraft) (*store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, d)
	return &store.Task{ID: "new", Title: d.Title}, nil
}

func (f *fakeEngine) DeleteTask(_ context.Context, _ string, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, taskID)
	return nil
}

func (f *fakeEngine) Finish(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished++
	return nil
}

func task(id, title string, status store.TaskStatus, rank int64) store.Task {
	return store.Task{ID: id, Title: title, Status: status, Rank: rank, Priority: store.PriorityMedium}
}

// sampleEngine has t1, t2 in todo and t3 in done.
func sampleEngine() *fakeEngine {
	return newFakeEngine(
		task("t1", "Write docs", store.StatusTodo, 1),
		task("t2", "Fix login", store.StatusTodo, 2),
		task("t3", "Ship it", store.StatusDone, 1),
	)
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestNavigation_Clamps(t *testing.T) {
	m := New(context.Background(), sampleEngine(), nil, "mgr")

	m, _ = press(m, "j", "j", "j")
	if m.cursorRow != 1 {
		t.Errorf("expected row 1, got %d", m.cursorRow)
	}
	m, _ = press(m, "l")
	if m.cursorCol != 1 || m.cursorRow != 0 {
		t.Errorf("expected empty in-progress lane at row 0, got col %d row %d", m.cursorCol, m.cursorRow)
	}
	m, _ = press(m, "l", "l", "l")
	if m.cursorCol != 2 {
		t.Errorf("expected last column, got %d", m.cursorCol)
	}
	if sel := m.selectedTask(); sel == nil || sel.ID != "t3" {
		t.Errorf("expected t3 selected, got %+v", sel)
	}
}

func TestCarry_CrossLaneDrop(t *testing.T) {
	eng := sampleEngine()
	m := New(context.Background(), eng, nil, "mgr")

	m, _ = press(m, "enter")
	if m.held == nil || m.held.taskID != "t1" {
		t.Fatalf("expected t1 picked up, got %+v", m.held)
	}
	m, _ = press(m, "l", "l", "j")
	if m.held.lane != board.LaneDone || m.held.index != 1 {
		t.Fatalf("expected target done/1, got %s/%d", m.held.lane, m.held.index)
	}

	m, cmd := press(m, "enter")
	if m.held != nil {
		t.Error("expected card to be dropped")
	}
	if cmd == nil {
		t.Fatal("expected a drop command")
	}
	if done, ok := cmd().(opDoneMsg); !ok || done.err != nil {
		t.Fatalf("unexpected result %+v", done)
	}

	if len(eng.drops) != 1 {
		t.Fatalf("expected 1 drop, got %d", len(eng.drops))
	}
	d := eng.drops[0]
	if d.SourceLane != board.LaneTodo || d.DestLane != board.LaneDone || d.SourceIndex != 0 || d.DestIndex != 1 {
		t.Errorf("unexpected drop %+v", d)
	}
	if len(d.Source) != 2 || len(d.Dest) != 1 || d.Dest[0].ID != "t3" {
		t.Errorf("drop should carry the lanes as shown: %+v", d)
	}
}

func TestCarry_SameLaneClampsToLastSlot(t *testing.T) {
	eng := sampleEngine()
	m := New(context.Background(), eng, nil, "mgr")

	m, _ = press(m, "enter", "j", "j", "j")
	if m.held.index != 1 {
		t.Fatalf("expected index clamped to 1, got %d", m.held.index)
	}
	_, cmd := press(m, "enter")
	cmd()

	if len(eng.drops) != 1 || !eng.drops[0].SameLane() || eng.drops[0].DestIndex != 1 {
		t.Errorf("unexpected drops %+v", eng.drops)
	}
}

func TestCarry_DropInPlaceDoesNothing(t *testing.T) {
	eng := sampleEngine()
	m := New(context.Background(), eng, nil, "mgr")

	m, cmd := press(m, "enter", "enter")
	if cmd != nil || m.held != nil {
		t.Error("dropping a card where it was picked up should be a no-op")
	}
	if len(eng.drops) != 0 {
		t.Errorf("expected no drops, got %d", len(eng.drops))
	}
}

func TestCarry_EscCancels(t *testing.T) {
	eng := sampleEngine()
	m := New(context.Background(), eng, nil, "mgr")

	m, cmd := press(m, "enter", "l", "esc")
	if m.held != nil || cmd != nil {
		t.Error("esc should cancel the move")
	}
	if len(eng.drops) != 0 {
		t.Errorf("expected no drops, got %d", len(eng.drops))
	}
}

func TestReadOnly_BlocksPickUp(t *testing.T) {
	eng := sampleEngine()
	eng.canMutate = false
	m := New(context.Background(), eng, nil, "someone")

	m, _ = press(m, "enter")
	if m.held != nil {
		t.Error("read-only board must not pick up cards")
	}
	if m.statusMsg != "Board is read-only" {
		t.Errorf("unexpected status %q", m.statusMsg)
	}
	m, _ = press(m, "c")
	if m.popup != popupNone {
		t.Error("read-only board must not open the create dialog")
	}
}

func TestBoardMsg_CursorFollowsTask(t *testing.T) {
	eng := sampleEngine()
	m := New(context.Background(), eng, nil, "mgr")
	m, _ = press(m, "j") // on t2

	moved := board.NewBoard("p1", []store.Task{
		task("t1", "Write docs", store.StatusTodo, 1),
		task("t2", "Fix login", store.StatusDone, 0),
		task("t3", "Ship it", store.StatusDone, 1),
	})
	next, cmd := m.Update(boardMsg(moved))
	m = next.(Model)

	if m.cursorCol != 2 || m.cursorRow != 0 {
		t.Errorf("expected cursor on t2 in done, got col %d row %d", m.cursorCol, m.cursorRow)
	}
	if cmd == nil {
		t.Error("expected to keep listening for boards")
	}
}

func TestCreatePopup(t *testing.T) {
	eng := sampleEngine()
	m := New(context.Background(), eng, nil, "mgr")

	m, _ = press(m, "l", "c")
	if m.popup != popupCreate {
		t.Fatal("expected create popup")
	}
	m, _ = press(m, "Plan sprint", "ctrl+p")
	m, cmd := press(m, "enter")
	if m.popup != popupNone || cmd == nil {
		t.Fatal("expected popup closed with a create command")
	}
	cmd()

	if len(eng.created) != 1 {
		t.Fatalf("expected 1 task created, got %d", len(eng.created))
	}
	d := eng.created[0]
	if d.Title != "Plan sprint" || d.Status != store.StatusInProgress || d.Priority != store.PriorityLow {
		t.Errorf("unexpected draft %+v", d)
	}
}

func TestCreatePopup_EmptyTitle(t *testing.T) {
	m := New(context.Background(), sampleEngine(), nil, "mgr")

	m, cmd := press(m, "c", "enter")
	if m.popup != popupCreate || cmd != nil {
		t.Error("empty title must keep the dialog open")
	}
}

func TestDeleteAndFinishConfirm(t *testing.T) {
	eng := sampleEngine()
	m := New(context.Background(), eng, nil, "mgr")

	m, cmd := press(m, "d", "y")
	if cmd == nil {
		t.Fatal("expected a delete command")
	}
	cmd()
	if len(eng.deleted) != 1 || eng.deleted[0] != "t1" {
		t.Errorf("unexpected deletes %v", eng.deleted)
	}

	m, cmd = press(m, "F", "n")
	if cmd != nil || m.popup != popupNone {
		t.Error("n should dismiss the finish dialog")
	}
	_, cmd = press(m, "F", "y")
	cmd()
	if eng.finished != 1 {
		t.Errorf("expected finish once, got %d", eng.finished)
	}
}

func TestOpDone_Forbidden(t *testing.T) {
	m := New(context.Background(), sampleEngine(), nil, "mgr")

	next, _ := m.Update(opDoneMsg{what: "create", err: board.ErrForbidden})
	if got := next.(Model).statusMsg; got != "Board is read-only" {
		t.Errorf("unexpected status %q", got)
	}
}

func TestView_ShowsLanesAndDropSlot(t *testing.T) {
	m := New(context.Background(), sampleEngine(), nil, "mgr")

	out := m.View()
	for _, want := range []string{"Launch", "To Do (2)", "In Progress (0)", "Done (1)", "Write docs", "33%"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = press(m, "enter", "l")
	if out := m.View(); !strings.Contains(out, "↓ Write docs") {
		t.Error("expected a drop slot for the carried card")
	}
}
