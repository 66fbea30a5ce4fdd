// Package api exposes project boards over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/notify"
	"github.com/imkarma/taskboard/internal/store"
)

// HeaderUserID carries the ID of the acting user.
const HeaderUserID = "X-User-ID"

// Store is the part of the record store the handlers read directly.
type Store interface {
	Ping(ctx context.Context) error
	GetTask(ctx context.Context, id string) (*store.Task, error)
}

// Engines hands out the board engine of a project. *board.Hub satisfies it.
type Engines interface {
	Engine(ctx context.Context, projectID string) (*board.Engine, error)
}

// Notifications lists pending user messages. *notify.Queue satisfies it.
type Notifications interface {
	Pending() []notify.Notification
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, st Store, engines Engines, notes Notifications, logger log.FieldLogger) {
	e.GET("/healthz", healthz(st))
	e.GET("/notifications", getNotifications(notes))

	e.GET("/projects/:id/board", getBoard(engines, logger))
	e.GET("/projects/:id/stats", getStats(engines, logger))
	e.POST("/projects/:id/drop", postDrop(engines, logger))
	e.POST("/projects/:id/finish", postFinish(engines, logger))
	e.POST("/projects/:id/tasks", postTask(engines, logger))

	e.PATCH("/tasks/:id", patchTask(st, engines, logger))
	e.DELETE("/tasks/:id", deleteTask(st, engines, logger))
}

type errorResponse struct {
	Error string `json:"error"`
}

// dropRequest names tasks by ID; the server resolves them against the
// board it currently holds.
type dropRequest struct {
	SourceLane  board.Lane `json:"sourceLane"`
	DestLane    board.Lane `json:"destLane"`
	SourceIndex int        `json:"sourceIndex"`
	DestIndex   int        `json:"destIndex"`
	Source      []string   `json:"source"`
	Dest        []string   `json:"dest"`
}

func healthz(st Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := st.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		}
		return c.NoContent(http.StatusOK)
	}
}

func getNotifications(notes Notifications) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, notes.Pending())
	}
}

func getBoard(engines Engines, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		eng, err := engines.Engine(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}
		return c.JSON(http.StatusOK, eng.Board())
	}
}

func getStats(engines Engines, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		eng, err := engines.Engine(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}
		return c.JSON(http.StatusOK, eng.Stats())
	}
}

func postDrop(engines Engines, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		var req dropRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		ctx := c.Request().Context()
		eng, err := engines.Engine(ctx, c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}

		current := eng.Board()
		drop := board.Drop{
			SourceLane:  req.SourceLane,
			DestLane:    req.DestLane,
			SourceIndex: req.SourceIndex,
			DestIndex:   req.DestIndex,
		}
		if drop.Source, err = resolve(current, req.Source); err != nil {
			return fail(c, logger, err)
		}
		if drop.Dest, err = resolve(current, req.Dest); err != nil {
			return fail(c, logger, err)
		}

		if err := eng.HandleDrop(ctx, actor, drop); err != nil {
			return fail(c, logger, err)
		}
		return c.JSON(http.StatusOK, eng.Board())
	}
}

// resolve maps task IDs to the tasks of the current board.
func resolve(b board.Board, taskIDs []string) ([]store.Task, error) {
	tasks := make([]store.Task, 0, len(taskIDs))
	for _, id := range taskIDs {
		l, i, ok := b.Find(id)
		if !ok {
			return nil, fmt.Errorf("%w: unknown task %s", board.ErrInvalidDrop, id)
		}
		tasks = append(tasks, b.Lane(l)[i])
	}
	return tasks, nil
}

func postFinish(engines Engines, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		eng, err := engines.Engine(ctx, c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}
		if err := eng.Finish(ctx, actor); err != nil {
			return fail(c, logger, err)
		}
		return c.JSON(http.StatusOK, eng.Board())
	}
}

func postTask(engines Engines, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		var draft store.TaskDraft
		if err := c.Bind(&draft); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		ctx := c.Request().Context()
		eng, err := engines.Engine(ctx, c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}
		t, err := eng.CreateTask(ctx, actor, draft)
		if err != nil {
			return fail(c, logger, err)
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func patchTask(st Store, engines Engines, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		var patch store.TaskPatch
		if err := c.Bind(&patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		ctx := c.Request().Context()
		eng, err := engineForTask(ctx, st, engines, c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}
		if err := eng.UpdateTask(ctx, actor, c.Param("id"), patch); err != nil {
			return fail(c, logger, err)
		}
		t, err := st.GetTask(ctx, c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(st Store, engines Engines, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		eng, err := engineForTask(ctx, st, engines, c.Param("id"))
		if err != nil {
			return fail(c, logger, err)
		}
		if err := eng.DeleteTask(ctx, actor, c.Param("id")); err != nil {
			return fail(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func engineForTask(ctx context.Context, st Store, engines Engines, taskID string) (*board.Engine, error) {
	t, err := st.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return engines.Engine(ctx, t.ProjectID)
}

// actorFrom returns the acting user, or a 401 error when the header is missing.
func actorFrom(c echo.Context) (string, error) {
	actor := c.Request().Header.Get(HeaderUserID)
	if actor == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
	}
	return actor, nil
}

// fail maps engine and store errors to HTTP responses.
func fail(c echo.Context, logger log.FieldLogger, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, board.ErrInvalidDrop), errors.Is(err, board.ErrUnknownLane):
		status = http.StatusBadRequest
	case errors.Is(err, board.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, board.ErrIncomplete):
		status = http.StatusConflict
	default:
		logger.WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).WithError(err).Error("request failed")
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
