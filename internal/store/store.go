package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the taskboard database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		user_name   TEXT NOT NULL,
		email       TEXT NOT NULL UNIQUE,
		role        TEXT NOT NULL DEFAULT 'member',
		created_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		description   TEXT DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'in-progress',
		members_json  TEXT NOT NULL DEFAULT '[]',
		created_by    TEXT NOT NULL,
		time_spent    REAL NOT NULL DEFAULT 0,
		start_date    DATETIME,
		end_date      DATETIME,
		finished_at   DATETIME,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id                 TEXT PRIMARY KEY,
		project_id         TEXT NOT NULL REFERENCES projects(id),
		title              TEXT NOT NULL,
		description        TEXT DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'todo',
		priority           TEXT NOT NULL DEFAULT 'medium',
		rank               INTEGER NOT NULL DEFAULT 0,
		assigned_to        TEXT DEFAULT '',
		parent_task_id     TEXT DEFAULT '',
		dependencies_json  TEXT NOT NULL DEFAULT '[]',
		time_spent         REAL NOT NULL DEFAULT 0,
		start_date         DATETIME,
		end_date           DATETIME,
		finished_at        DATETIME,
		created_at         DATETIME NOT NULL,
		updated_at         DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, rank);

	CREATE TABLE IF NOT EXISTS milestones (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id),
		name          TEXT NOT NULL,
		description   TEXT DEFAULT '',
		date          DATETIME NOT NULL,
		is_completed  INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_milestones_project ON milestones(project_id, date);

	CREATE TABLE IF NOT EXISTS events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     TEXT NOT NULL,
		actor       TEXT DEFAULT '',
		event_type  TEXT NOT NULL,
		content     TEXT DEFAULT '',
		timestamp   DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before subtasks existed lack the parent column.
	s.addColumnIfMissing("tasks", "parent_task_id", "TEXT DEFAULT ''")

	return nil
}

// addColumnIfMissing adds a column to a table if it doesn't exist yet.
// Used for schema migrations on existing databases.
func (s *Store) addColumnIfMissing(table, column, colDef string) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return
		}
		if name == column {
			return
		}
	}

	s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + colDef)
}

// CreateTask inserts a new task and returns it with the generated ID.
// Status defaults to todo, priority to medium and rank to the creation
// time in milliseconds, so later tasks sort after earlier ones.
func (s *Store) CreateTask(ctx context.Context, d TaskDraft) (*Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if strings.TrimSpace(d.ProjectID) == "" {
		return nil, fmt.Errorf("project id is required")
	}
	now := s.now().UTC()

	t := &Task{
		ID:           uuid.NewString(),
		ProjectID:    d.ProjectID,
		Title:        title,
		Description:  d.Description,
		Status:       d.Status,
		Priority:     d.Priority,
		Rank:         d.Rank,
		AssignedTo:   d.AssignedTo,
		ParentTaskID: d.ParentTaskID,
		Dependencies: d.Dependencies,
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if !t.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", t.Status)
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Rank == 0 {
		t.Rank = now.UnixMilli()
	}
	if t.Dependencies == nil {
		t.Dependencies = []string{}
	}
	deps, err := json.Marshal(t.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("encode dependencies: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, priority, rank, assigned_to,
		 parent_task_id, dependencies_json, time_spent, start_date, end_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority), t.Rank,
		t.AssignedTo, t.ParentTaskID, string(deps), nullTime(t.StartDate), nullTime(t.EndDate), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	s.AddEvent(ctx, t.ID, ActorFrom(ctx), "created", fmt.Sprintf("Task created: %s", title))
	return t, nil
}

// taskColumns is the standard column list for task queries.
const taskColumns = `id, project_id, title, description, status, priority, rank, assigned_to, parent_task_id,
	dependencies_json, time_spent, start_date, end_date, finished_at, created_at, updated_at`

// GetTask returns a single task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasksByProject returns every task of a project in store order
// (rank, then insertion). Callers that need lanes re-sort anyway.
func (s *Store) ListTasksByProject(ctx context.Context, projectID string) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY rank, rowid`, projectID)
}

// ListSubtasks returns the children of a task.
func (s *Store) ListSubtasks(ctx context.Context, parentTaskID string) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE parent_task_id = ? ORDER BY rank, rowid`, parentTaskID)
}

// queryTasks is a shared helper for running task-list queries.
func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update. Fields are written individually,
// so two writers touching different fields do not clobber each other;
// the last writer of a given field wins.
func (s *Store) UpdateTask(ctx context.Context, id string, p TaskPatch) error {
	if p.Empty() {
		return nil
	}
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("invalid status %q", *p.Status)
		}
		set("status", string(*p.Status))
	}
	if p.Priority != nil {
		set("priority", string(*p.Priority))
	}
	if p.Rank != nil {
		set("rank", *p.Rank)
	}
	if p.AssignedTo != nil {
		set("assigned_to", *p.AssignedTo)
	}
	if p.Dependencies != nil {
		deps, err := json.Marshal(*p.Dependencies)
		if err != nil {
			return fmt.Errorf("encode dependencies: %w", err)
		}
		set("dependencies_json", string(deps))
	}
	if p.TimeSpent != nil {
		set("time_spent", *p.TimeSpent)
	}
	if p.StartDate != nil {
		set("start_date", p.StartDate.UTC())
	}
	if p.EndDate != nil {
		set("end_date", p.EndDate.UTC())
	}
	if p.FinishedAt != nil {
		set("finished_at", p.FinishedAt.UTC())
	}
	set("updated_at", s.now().UTC())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	if p.Status != nil {
		s.AddEvent(ctx, id, ActorFrom(ctx), "status_changed", fmt.Sprintf("Status changed to %s", *p.Status))
	}
	return nil
}

// SetTaskRank updates only the rank of a task.
func (s *Store) SetTaskRank(ctx context.Context, id string, rank int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET rank = ?, updated_at = ? WHERE id = ?`,
		rank, s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set task rank: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	s.AddEvent(ctx, id, ActorFrom(ctx), "reranked", fmt.Sprintf("Rank set to %d", rank))
	return nil
}

// DeleteTask removes a task. Ranks of the remaining tasks are untouched.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	s.AddEvent(ctx, id, ActorFrom(ctx), "deleted", "Task deleted")
	return nil
}

type actorKey struct{}

// WithActor tags ctx with the user making the writes; task events
// recorded under it carry that user.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the user set by WithActor, or "".
func ActorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

// AddEvent records an event for a task. Failures are ignored: the
// event log is informational and never blocks a task write.
func (s *Store) AddEvent(ctx context.Context, taskID, actor, eventType, content string) {
	s.db.ExecContext(ctx,
		`INSERT INTO events (task_id, actor, event_type, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		taskID, actor, eventType, content, s.now().UTC(),
	)
}

// GetEvents returns all events for a task, oldest first.
func (s *Store) GetEvents(ctx context.Context, taskID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, actor, event_type, content, timestamp FROM events WHERE task_id = ? ORDER BY timestamp, id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Actor, &e.Type, &e.Content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var t Task
	var deps string
	var start, end, finished sql.NullTime
	err := sc.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Rank,
		&t.AssignedTo, &t.ParentTaskID, &deps, &t.TimeSpent, &start, &end, &finished,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if err := json.Unmarshal([]byte(deps), &t.Dependencies); err != nil {
		return nil, fmt.Errorf("decode dependencies: %w", err)
	}
	t.StartDate = timePtr(start)
	t.EndDate = timePtr(end)
	t.FinishedAt = timePtr(finished)
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
