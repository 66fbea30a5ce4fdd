package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If popup is active, handle popup keys first.
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		if m.held != nil {
			return m.handleCarryKey(msg)
		}
		return m.handleBoardKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardMsg:
		follow := ""
		if t := m.selectedTask(); t != nil {
			follow = t.ID
		}
		m.board = board.Board(msg)
		m.followTask(follow)
		if m.held != nil {
			if _, _, ok := m.board.Find(m.held.taskID); ok {
				m.clampHeld()
			} else {
				m.held = nil
				m.setStatus("The card you were moving is gone")
			}
		}
		return m, waitForBoard(m.updates)

	case opDoneMsg:
		if msg.err != nil {
			switch {
			case errors.Is(msg.err, board.ErrForbidden):
				m.setStatus("Board is read-only")
			case errors.Is(msg.err, board.ErrIncomplete):
				// The engine already left a notification.
			default:
				m.setStatus("Failed to " + msg.what + ": " + msg.err.Error())
			}
		}
		return m, nil

	case tickMsg:
		if m.notes != nil {
			m.pending = m.notes.Pending()
		}
		// Clear old status messages.
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		return m, tickCmd()
	}

	return m, nil
}

// --- Board keys ---

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	// Navigation.
	case "h", "left":
		m.cursorCol--
		m.clampCursor()
	case "l", "right":
		m.cursorCol++
		m.clampCursor()
	case "j", "down":
		m.cursorRow++
		m.clampCursor()
	case "k", "up":
		m.cursorRow--
		m.clampCursor()

	// Pick up the selected card.
	case "enter", " ":
		if m.readOnly() {
			m.setStatus("Board is read-only")
			return m, nil
		}
		if t := m.selectedTask(); t != nil {
			m.held = &carry{taskID: t.ID, lane: m.currentLane(), index: m.cursorRow}
		}

	// Create a task in the current lane.
	case "c", "ctrl+n":
		if m.readOnly() {
			m.setStatus("Board is read-only")
			return m, nil
		}
		m.popup = popupCreate
		m.createLane = m.currentLane()
		m.createPriority = store.PriorityMedium
		m.textInput.Reset()
		m.textInput.Focus()
		m.textInput2.Reset()
		m.textInput2.Blur()
		m.inputFocused = 0
		return m, textinput.Blink

	case "d", "x":
		if m.readOnly() {
			m.setStatus("Board is read-only")
			return m, nil
		}
		if t := m.selectedTask(); t != nil {
			m.popup = popupConfirmDelete
			m.popupTaskID = t.ID
		}

	case "F":
		if m.readOnly() {
			m.setStatus("Board is read-only")
			return m, nil
		}
		m.popup = popupConfirmFinish

	case "R":
		return m, m.refreshCmd()
	}

	return m, nil
}

// --- Carry keys: a card is picked up ---

func (m Model) handleCarryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.held = nil
		m.setStatus("Move cancelled")

	case "h", "left":
		if c := laneIndex(m.held.lane); c > 0 {
			m.held.lane = board.Lanes[c-1]
			m.clampHeld()
		}
	case "l", "right":
		if c := laneIndex(m.held.lane); c < len(board.Lanes)-1 {
			m.held.lane = board.Lanes[c+1]
			m.clampHeld()
		}
	case "j", "down":
		m.held.index++
		m.clampHeld()
	case "k", "up":
		m.held.index--
		m.clampHeld()

	case "enter", " ":
		h := *m.held
		m.held = nil
		if src, idx, ok := m.board.Find(h.taskID); ok && src == h.lane && idx == h.index {
			return m, nil
		}
		d, err := board.MoveTo(m.board, h.taskID, h.lane, h.index)
		if err != nil {
			m.setStatus("Cannot move: " + err.Error())
			return m, nil
		}
		// The cursor still points at the card, so it follows it once
		// the engine publishes the new board.
		return m, m.dropCmd(d)
	}

	return m, nil
}

func laneIndex(l board.Lane) int {
	for i, lane := range board.Lanes {
		if lane == l {
			return i
		}
	}
	return 0
}

// --- Popups ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupCreate:
		return m.handleCreatePopup(msg)
	case popupConfirmDelete:
		return m.handleConfirmDeletePopup(msg)
	case popupConfirmFinish:
		return m.handleConfirmFinishPopup(msg)
	}
	return m, nil
}

func (m Model) handleCreatePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		return m, nil
	case "tab":
		if m.inputFocused == 0 {
			m.textInput.Blur()
			m.textInput2.Focus()
			m.inputFocused = 1
		} else {
			m.textInput2.Blur()
			m.textInput.Focus()
			m.inputFocused = 0
		}
		return m, textinput.Blink
	case "ctrl+p":
		switch m.createPriority {
		case store.PriorityHigh:
			m.createPriority = store.PriorityMedium
		case store.PriorityMedium:
			m.createPriority = store.PriorityLow
		default:
			m.createPriority = store.PriorityHigh
		}
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.textInput.Value())
		if title == "" {
			m.setStatus("Title cannot be empty")
			return m, nil
		}
		m.popup = popupNone
		return m, m.createCmd(store.TaskDraft{
			Title:       title,
			Description: m.textInput2.Value(),
			Status:      m.createLane.Status(),
			Priority:    m.createPriority,
		})
	}

	// Forward to the active text input.
	var cmd tea.Cmd
	if m.inputFocused == 0 {
		m.textInput, cmd = m.textInput.Update(msg)
	} else {
		m.textInput2, cmd = m.textInput2.Update(msg)
	}
	return m, cmd
}

func (m Model) handleConfirmDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.popup = popupNone
		return m, m.deleteCmd(m.popupTaskID)
	case "n", "esc":
		m.popup = popupNone
	}
	return m, nil
}

func (m Model) handleConfirmFinishPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.popup = popupNone
		return m, m.finishCmd()
	case "n", "esc":
		m.popup = popupNone
	}
	return m, nil
}
