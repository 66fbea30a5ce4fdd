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
)

const projectColumns = `id, name, description, status, members_json, created_by, time_spent,
	start_date, end_date, finished_at, created_at, updated_at`

// CreateProject inserts a project owned by createdBy. The creator is
// always the first member.
func (s *Store) CreateProject(ctx context.Context, name, description, createdBy string, start, end *time.Time) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if createdBy == "" {
		return nil, fmt.Errorf("project owner is required")
	}
	now := s.now().UTC()
	p := &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      ProjectInProgress,
		Members:     []string{createdBy},
		CreatedBy:   createdBy,
		StartDate:   start,
		EndDate:     end,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	members, _ := json.Marshal(p.Members)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, status, members_json, created_by, time_spent,
		 start_date, end_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, string(p.Status), string(members), p.CreatedBy,
		nullTime(start), nullTime(end), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// GetProject returns a single project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	return s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, rowid DESC`)
}

// ListProjectsByMember returns the projects userID belongs to.
func (s *Store) ListProjectsByMember(ctx context.Context, userID string) ([]Project, error) {
	all, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var out []Project
	for _, p := range all {
		if p.HasMember(userID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProject applies a partial update to a project.
func (s *Store) UpdateProject(ctx context.Context, id string, p ProjectPatch) error {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		set("name", strings.TrimSpace(*p.Name))
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.Members != nil {
		members, err := json.Marshal(*p.Members)
		if err != nil {
			return fmt.Errorf("encode members: %w", err)
		}
		set("members_json", string(members))
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
	if len(sets) == 0 {
		return nil
	}
	set("updated_at", s.now().UTC())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddMember adds userID to the project. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, projectID, userID string) error {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.HasMember(userID) {
		return nil
	}
	members := append(p.Members, userID)
	return s.UpdateProject(ctx, projectID, ProjectPatch{Members: &members})
}

// RemoveMember drops userID from the project. The manager cannot be removed.
func (s *Store) RemoveMember(ctx context.Context, projectID, userID string) error {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if userID == p.CreatedBy {
		return fmt.Errorf("cannot remove project manager %s", userID)
	}
	members := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		if m != userID {
			members = append(members, m)
		}
	}
	return s.UpdateProject(ctx, projectID, ProjectPatch{Members: &members})
}

// DeleteProject removes a project together with its tasks and milestones.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete project tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete project milestones: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

func scanProject(sc scanner) (*Project, error) {
	var p Project
	var members string
	var start, end, finished sql.NullTime
	err := sc.Scan(
		&p.ID, &p.Name, &p.Description, &p.Status, &members, &p.CreatedBy, &p.TimeSpent,
		&start, &end, &finished, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	if err := json.Unmarshal([]byte(members), &p.Members); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	p.StartDate = timePtr(start)
	p.EndDate = timePtr(end)
	p.FinishedAt = timePtr(finished)
	return &p, nil
}
