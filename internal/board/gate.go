package board

import "github.com/imkarma/taskboard/internal/store"

// CanMutate reports whether actorID may change the project's board.
// Only the manager may, and a completed project is frozen for everyone.
func CanMutate(actorID string, p *store.Project) bool {
	if p == nil || actorID == "" {
		return false
	}
	return actorID == p.CreatedBy && p.Status != store.ProjectCompleted
}
