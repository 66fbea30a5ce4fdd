package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/notify"
	"github.com/imkarma/taskboard/internal/store"
	"github.com/imkarma/taskboard/internal/worker"
)

var (
	// ErrIncomplete is returned when finishing a project whose tasks are not all done.
	ErrIncomplete = errors.New("project has unfinished tasks")
	// ErrForbidden is returned when an explicit edit is refused by the gate.
	// Drops and Finish are ignored silently instead.
	ErrForbidden = errors.New("board is read-only for this user")
)

// Store is the record store the engine reads and writes.
// *store.Store satisfies it.
type Store interface {
	ListTasksByProject(ctx context.Context, projectID string) ([]store.Task, error)
	GetTask(ctx context.Context, id string) (*store.Task, error)
	CreateTask(ctx context.Context, d store.TaskDraft) (*store.Task, error)
	UpdateTask(ctx context.Context, id string, p store.TaskPatch) error
	SetTaskRank(ctx context.Context, id string, rank int64) error
	DeleteTask(ctx context.Context, id string) error
	GetProject(ctx context.Context, id string) (*store.Project, error)
	UpdateProject(ctx context.Context, id string, p store.ProjectPatch) error
}

// Cache keeps the last projected board outside the process.
type Cache interface {
	Get(ctx context.Context, projectID string) (*Board, error) // nil, nil on miss
	Put(ctx context.Context, b Board) error
	Invalidate(ctx context.Context, projectID string) error
}

// Options configures an Engine. Zero values get working defaults.
type Options struct {
	Logger    log.FieldLogger
	Notifier  notify.Notifier
	Pool      *worker.Pool
	Cache     Cache
	Clock     func() time.Time
	NotifyTTL time.Duration
}

// Engine owns the board of one project. It applies drops and task
// edits to the store and keeps a projection that is rebuilt from the
// store after every successful write sequence.
type Engine struct {
	projectID string
	store     Store
	notifier  notify.Notifier
	pool      *worker.Pool
	cache     Cache
	log       log.FieldLogger
	now       func() time.Time
	ttl       time.Duration

	mu      sync.RWMutex
	project *store.Project
	tasks   []store.Task
	board   Board
	subs    map[int]chan Board
	nextSub int
}

// NewEngine creates an engine for projectID. Call Refresh before use;
// until then the board is empty and every mutation is refused.
func NewEngine(projectID string, s Store, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = discard{}
	}
	if opts.Pool == nil {
		opts.Pool = worker.NewPool(worker.PoolConfig{MaxWorkers: 2, Logger: opts.Logger})
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		projectID: projectID,
		store:     s,
		notifier:  opts.Notifier,
		pool:      opts.Pool,
		cache:     opts.Cache,
		log:       opts.Logger.WithField("project", projectID),
		now:       opts.Clock,
		ttl:       opts.NotifyTTL,
		board:     Board{ProjectID: projectID},
		subs:      make(map[int]chan Board),
	}
}

type discard struct{}

func (discard) Notify(string, notify.Kind, time.Duration) {}

// ProjectID returns the project this engine serves.
func (e *Engine) ProjectID() string {
	return e.projectID
}

// Board returns a copy of the current projection.
func (e *Engine) Board() Board {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.Clone()
}

// Project returns the project as of the last refresh, or nil.
func (e *Engine) Project() *store.Project {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.project == nil {
		return nil
	}
	p := *e.project
	return &p
}

// Stats summarizes the tasks as of the last refresh.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return NewStats(e.tasks, e.now())
}

// CanMutate reports whether actorID may change the board right now.
func (e *Engine) CanMutate(actorID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return CanMutate(actorID, e.project)
}

// Subscribe returns a channel that receives the board after every
// change, starting with the current one. Slow readers only see the
// latest board. Call cancel to stop receiving; it closes the channel.
func (e *Engine) Subscribe() (<-chan Board, func()) {
	ch := make(chan Board, 1)

	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.board.Clone()
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			close(ch)
			e.mu.Unlock()
		})
	}
	return ch, cancel
}

// publishLocked hands b to every subscriber. Caller holds e.mu.
func (e *Engine) publishLocked(b Board) {
	for _, ch := range e.subs {
		select {
		case ch <- b.Clone():
		default:
			// Replace the unread board with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- b.Clone()
		}
	}
}

// Refresh re-reads the project and its tasks and replaces the board.
func (e *Engine) Refresh(ctx context.Context) error {
	p, err := e.store.GetProject(ctx, e.projectID)
	if err != nil {
		return fmt.Errorf("refresh project: %w", err)
	}
	tasks, err := e.store.ListTasksByProject(ctx, e.projectID)
	if err != nil {
		return fmt.Errorf("refresh tasks: %w", err)
	}

	b := NewBoard(e.projectID, tasks)
	b.Locked = p.Status == store.ProjectCompleted

	e.mu.Lock()
	e.project = p
	e.tasks = tasks
	e.board = b
	e.publishLocked(b)
	e.mu.Unlock()

	e.log.WithFields(log.Fields{"tasks": len(tasks), "progress": b.Progress}).Debug("board refreshed")

	if e.cache != nil {
		if err := e.cache.Put(ctx, b); err != nil {
			e.log.WithError(err).Warn("cache board")
		}
	}
	return nil
}

// seed installs a board without touching the store. Used to serve a
// cached snapshot while the store is unreachable.
func (e *Engine) seed(b Board) {
	e.mu.Lock()
	e.board = b
	e.publishLocked(b)
	e.mu.Unlock()
}

// HandleDrop applies a drag gesture. A drop by someone who may not
// change the board is ignored and returns nil. Otherwise the new order
// is shown at once, written to the store, and the board is rebuilt
// from the store. A failed write is not rolled back; the error is
// reported and returned. Cancelling ctx after the gate does not stop
// the writes.
func (e *Engine) HandleDrop(ctx context.Context, actorID string, d Drop) error {
	if !e.CanMutate(actorID) {
		e.log.WithFields(log.Fields{"actor": actorID, "from": d.SourceLane, "to": d.DestLane}).
			Debug("drop ignored: board is read-only for actor")
		return nil
	}

	plan, err := PlanDrop(d)
	if err != nil {
		return err
	}
	ctx = writeContext(ctx, actorID)
	e.applyOptimistic(plan)

	if err := e.persist(ctx, plan); err != nil {
		e.log.WithError(err).WithField("actor", actorID).Error("reorder failed")
		e.notifier.Notify("Failed to reorder tasks", notify.KindError, e.ttl)
		e.invalidate(ctx)
		// Show what actually got stored; the lane is repaired by its next reorder.
		if rerr := e.Refresh(ctx); rerr != nil {
			e.log.WithError(rerr).Warn("refresh after failed reorder")
		}
		return err
	}
	return e.Refresh(ctx)
}

func (e *Engine) applyOptimistic(plan Plan) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.board.Clone()
	for _, lo := range plan.Lanes {
		b.withLane(lo.Lane, lo.Tasks)
	}
	e.board = b
	e.publishLocked(b)
}

// persist writes the status change first, then the ranks of each lane.
// Writes inside a lane are sequential; lanes run on the pool.
func (e *Engine) persist(ctx context.Context, plan Plan) error {
	if sw := plan.Status; sw != nil {
		status := sw.Status
		if err := e.store.UpdateTask(ctx, sw.TaskID, store.TaskPatch{Status: &status}); err != nil {
			return fmt.Errorf("set status of %s: %w", sw.TaskID, err)
		}
	}

	jobs := make([]worker.Job, 0, len(plan.Lanes))
	for _, lo := range plan.Lanes {
		jobs = append(jobs, worker.Job{
			Name: string(lo.Lane),
			Run: func(ctx context.Context) error {
				writes := AssignRanks(lo.Tasks, e.now().UnixMilli())
				n, err := ApplyRanks(ctx, e.store, writes)
				e.log.WithFields(log.Fields{"lane": lo.Lane, "written": n, "planned": len(writes)}).Debug("lane ranked")
				return err
			},
		})
	}
	return worker.Err(e.pool.Run(ctx, jobs))
}

// Finish marks the project completed, which freezes the board. Like a
// drop it is ignored for actors who may not change the board. It fails
// with ErrIncomplete unless every task is done.
func (e *Engine) Finish(ctx context.Context, actorID string) error {
	if !e.CanMutate(actorID) {
		e.log.WithField("actor", actorID).Debug("finish ignored: board is read-only for actor")
		return nil
	}
	if e.Board().Progress < 100 {
		e.notifier.Notify("All tasks must be done before finishing the project", notify.KindError, e.ttl)
		return ErrIncomplete
	}

	ctx = writeContext(ctx, actorID)
	status := store.ProjectCompleted
	now := e.now().UTC()
	if err := e.store.UpdateProject(ctx, e.projectID, store.ProjectPatch{Status: &status, FinishedAt: &now}); err != nil {
		e.log.WithError(err).Error("finish project")
		e.notifier.Notify("Failed to finish the project", notify.KindError, e.ttl)
		return fmt.Errorf("finish project: %w", err)
	}
	e.notifier.Notify("Project marked as finished", notify.KindSuccess, e.ttl)
	return e.Refresh(ctx)
}

// CreateTask adds a task to the project. Without an explicit rank it is
// ranked by creation time, so it lands at the end of its lane.
func (e *Engine) CreateTask(ctx context.Context, actorID string, d store.TaskDraft) (*store.Task, error) {
	if !e.CanMutate(actorID) {
		return nil, ErrForbidden
	}
	ctx = writeContext(ctx, actorID)
	d.ProjectID = e.projectID
	if d.Rank == 0 {
		d.Rank = e.now().UnixMilli()
	}
	t, err := e.store.CreateTask(ctx, d)
	if err != nil {
		e.log.WithError(err).Error("create task")
		e.notifier.Notify("Failed to create task", notify.KindError, e.ttl)
		return nil, fmt.Errorf("create task: %w", err)
	}
	e.notifier.Notify(fmt.Sprintf("Task %q created", t.Title), notify.KindSuccess, e.ttl)
	return t, e.Refresh(ctx)
}

// UpdateTask applies a field patch to a task of this project.
func (e *Engine) UpdateTask(ctx context.Context, actorID, taskID string, p store.TaskPatch) error {
	if !e.CanMutate(actorID) {
		return ErrForbidden
	}
	if p.Status != nil {
		if _, ok := LaneOf(*p.Status); !ok && *p.Status != store.StatusLate {
			return fmt.Errorf("status %q: %w", *p.Status, ErrUnknownLane)
		}
	}
	ctx = writeContext(ctx, actorID)
	if err := e.ownTask(ctx, taskID); err != nil {
		return err
	}
	if err := e.store.UpdateTask(ctx, taskID, p); err != nil {
		e.log.WithError(err).WithField("task", taskID).Error("update task")
		e.notifier.Notify("Failed to update task", notify.KindError, e.ttl)
		return fmt.Errorf("update task: %w", err)
	}
	e.notifier.Notify("Task updated", notify.KindSuccess, e.ttl)
	return e.Refresh(ctx)
}

// DeleteTask removes a task. Other ranks are left as they are.
func (e *Engine) DeleteTask(ctx context.Context, actorID, taskID string) error {
	if !e.CanMutate(actorID) {
		return ErrForbidden
	}
	ctx = writeContext(ctx, actorID)
	if err := e.ownTask(ctx, taskID); err != nil {
		return err
	}
	if err := e.store.DeleteTask(ctx, taskID); err != nil {
		e.log.WithError(err).WithField("task", taskID).Error("delete task")
		e.notifier.Notify("Failed to delete task", notify.KindError, e.ttl)
		return fmt.Errorf("delete task: %w", err)
	}
	e.notifier.Notify("Task deleted", notify.KindSuccess, e.ttl)
	return e.Refresh(ctx)
}

// ownTask checks that taskID exists and belongs to this project.
func (e *Engine) ownTask(ctx context.Context, taskID string) error {
	t, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.ProjectID != e.projectID {
		return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
	}
	return nil
}

// writeContext keeps the values of ctx but drops its deadline and
// cancellation: a started write sequence runs to completion or to its
// first store failure. Events written under it name actorID.
func writeContext(ctx context.Context, actorID string) context.Context {
	return store.WithActor(context.WithoutCancel(ctx), actorID)
}

func (e *Engine) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, e.projectID); err != nil {
		e.log.WithError(err).Warn("invalidate cached board")
	}
}
