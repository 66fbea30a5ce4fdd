package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateMilestone adds a dated milestone to a project.
func (s *Store) CreateMilestone(ctx context.Context, projectID, name, description string, date time.Time) (*Milestone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("milestone name is required")
	}
	now := s.now().UTC()
	m := &Milestone{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		Date:        date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO milestones (id, project_id, name, description, date, is_completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		m.ID, m.ProjectID, m.Name, m.Description, m.Date, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert milestone: %w", err)
	}
	return m, nil
}

// ListMilestones returns a project's milestones ordered by date.
func (s *Store) ListMilestones(ctx context.Context, projectID string) ([]Milestone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, description, date, is_completed, created_at, updated_at
		 FROM milestones WHERE project_id = ? ORDER BY date, rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		var m Milestone
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.Description, &m.Date,
			&m.IsCompleted, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ToggleMilestone flips the completed flag and returns the new value.
func (s *Store) ToggleMilestone(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE milestones SET is_completed = 1 - is_completed, updated_at = ? WHERE id = ?`,
		s.now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("toggle milestone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, fmt.Errorf("milestone %s: %w", id, ErrNotFound)
	}
	var done bool
	if err := s.db.QueryRowContext(ctx, `SELECT is_completed FROM milestones WHERE id = ?`, id).Scan(&done); err != nil {
		return false, fmt.Errorf("read milestone: %w", err)
	}
	return done, nil
}

// DeleteMilestone removes a milestone.
func (s *Store) DeleteMilestone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("milestone %s: %w", id, ErrNotFound)
	}
	return nil
}
