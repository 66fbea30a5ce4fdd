package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/notify"
	"github.com/imkarma/taskboard/internal/store"
)

// Engine is the part of the board engine the TUI drives.
// *board.Engine satisfies it.
type Engine interface {
	Board() board.Board
	Project() *store.Project
	CanMutate(actorID string) bool
	Subscribe() (<-chan board.Board, func())
	Refresh(ctx context.Context) error
	HandleDrop(ctx context.Context, actorID string, d board.Drop) error
	CreateTask(ctx context.Context, actorID string, d store.TaskDraft) (*store.Task, error)
	DeleteTask(ctx context.Context, actorID, taskID string) error
	Finish(ctx context.Context, actorID string) error
}

// Notes lists the messages waiting to be shown. *notify.Queue satisfies it.
type Notes interface {
	Pending() []notify.Notification
}

// popup represents which dialog is shown over the board.
type popup int

const (
	popupNone popup = iota
	popupCreate
	popupConfirmDelete
	popupConfirmFinish
)

// carry is a card that has been picked up and not dropped yet.
type carry struct {
	taskID string
	lane   board.Lane // target lane
	index  int        // target position in the target lane
}

// Model is the top-level bubbletea model.
type Model struct {
	ctx    context.Context
	engine Engine
	notes  Notes
	actor  string
	title  string

	width  int
	height int

	// Board state, replaced on every update from the engine.
	board     board.Board
	updates   <-chan board.Board
	stop      func()
	cursorCol int
	cursorRow int
	held      *carry

	popup          popup
	popupTaskID    string
	textInput      textinput.Model
	textInput2     textinput.Model
	inputFocused   int // 0=title, 1=desc
	createLane     board.Lane
	createPriority store.Priority

	pending    []notify.Notification
	statusMsg  string
	statusTime time.Time

	quitting bool
}

// New creates a TUI for one project board acting as actor. The model
// subscribes to the engine right away; Close releases the subscription.
func New(ctx context.Context, eng Engine, notes Notes, actor string) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = 120
	ti.Width = 50

	di := textinput.New()
	di.Placeholder = "Description (optional)..."
	di.CharLimit = 500
	di.Width = 50

	updates, stop := eng.Subscribe()

	title := "taskboard"
	if p := eng.Project(); p != nil {
		title = p.Name
	}

	return Model{
		ctx:            ctx,
		engine:         eng,
		notes:          notes,
		actor:          actor,
		title:          title,
		board:          eng.Board(),
		updates:        updates,
		stop:           stop,
		textInput:      ti,
		textInput2:     di,
		createPriority: store.PriorityMedium,
	}
}

// Close stops receiving board updates.
func (m Model) Close() {
	if m.stop != nil {
		m.stop()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForBoard(m.updates), tickCmd())
}

type boardMsg board.Board

type opDoneMsg struct {
	what string
	err  error
}

type tickMsg time.Time

// waitForBoard delivers the next board published by the engine.
func waitForBoard(updates <-chan board.Board) tea.Cmd {
	return func() tea.Msg {
		b, ok := <-updates
		if !ok {
			return nil
		}
		return boardMsg(b)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) run(what string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{what: what, err: fn(ctx)}
	}
}

func (m Model) dropCmd(d board.Drop) tea.Cmd {
	return m.run("move", func(ctx context.Context) error {
		return m.engine.HandleDrop(ctx, m.actor, d)
	})
}

func (m Model) createCmd(d store.TaskDraft) tea.Cmd {
	return m.run("create", func(ctx context.Context) error {
		_, err := m.engine.CreateTask(ctx, m.actor, d)
		return err
	})
}

func (m Model) deleteCmd(taskID string) tea.Cmd {
	return m.run("delete", func(ctx context.Context) error {
		return m.engine.DeleteTask(ctx, m.actor, taskID)
	})
}

func (m Model) finishCmd() tea.Cmd {
	return m.run("finish", func(ctx context.Context) error {
		return m.engine.Finish(ctx, m.actor)
	})
}

func (m Model) refreshCmd() tea.Cmd {
	return m.run("refresh", m.engine.Refresh)
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusTime = time.Now()
}

func (m Model) currentLane() board.Lane {
	return board.Lanes[m.cursorCol]
}

func (m *Model) clampCursor() {
	m.cursorCol = max(0, min(m.cursorCol, len(board.Lanes)-1))
	n := len(m.board.Lane(m.currentLane()))
	m.cursorRow = max(0, min(m.cursorRow, n-1))
}

func (m Model) selectedTask() *store.Task {
	tasks := m.board.Lane(m.currentLane())
	if m.cursorRow < len(tasks) {
		t := tasks[m.cursorRow]
		return &t
	}
	return nil
}

// followTask moves the cursor onto taskID if it is on the board.
func (m *Model) followTask(taskID string) {
	l, i, ok := m.board.Find(taskID)
	if !ok {
		m.clampCursor()
		return
	}
	for c, lane := range board.Lanes {
		if lane == l {
			m.cursorCol = c
		}
	}
	m.cursorRow = i
}

// clampHeld keeps the target of a carried card inside its lane. A card
// moved inside its own lane can reach the last slot; in another lane it
// can also go after the last card.
func (m *Model) clampHeld() {
	if m.held == nil {
		return
	}
	n := len(m.board.Lane(m.held.lane))
	if src, _, ok := m.board.Find(m.held.taskID); ok && src == m.held.lane {
		n--
	}
	m.held.index = max(0, min(m.held.index, n))
}

func (m Model) readOnly() bool {
	return !m.engine.CanMutate(m.actor)
}
