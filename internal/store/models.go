package store

import "time"

// TaskStatus represents where a task sits in the project workflow.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inprogress"
	StatusDone       TaskStatus = "done"
	StatusLate       TaskStatus = "in-late" // Not a board lane
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusLate:
		return true
	}
	return false
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectLate       ProjectStatus = "in-late"
)

// Role is the role of a user account.
type Role string

const (
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// Task is a unit of work inside a project.
// Rank orders tasks inside a status lane: larger means later.
type Task struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"projectId"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	Rank         int64      `json:"rank"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	ParentTaskID string     `json:"parentTaskId,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	TimeSpent    float64    `json:"timeSpent"` // hours
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TaskDraft carries the caller-supplied fields for a new task.
type TaskDraft struct {
	ProjectID    string     `json:"projectId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status,omitempty"`   // defaults to todo
	Priority     Priority   `json:"priority,omitempty"` // defaults to medium
	Rank         int64      `json:"rank,omitempty"`     // defaults to creation time in ms
	AssignedTo   string     `json:"assignedTo,omitempty"`
	ParentTaskID string     `json:"parentTaskId,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string     `json:"title,omitempty"`
	Description  *string     `json:"description,omitempty"`
	Status       *TaskStatus `json:"status,omitempty"`
	Priority     *Priority   `json:"priority,omitempty"`
	Rank         *int64      `json:"rank,omitempty"`
	AssignedTo   *string     `json:"assignedTo,omitempty"`
	Dependencies *[]string   `json:"dependencies,omitempty"`
	TimeSpent    *float64    `json:"timeSpent,omitempty"`
	StartDate    *time.Time  `json:"startDate,omitempty"`
	EndDate      *time.Time  `json:"endDate,omitempty"`
	FinishedAt   *time.Time  `json:"finishedAt,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.Rank == nil && p.AssignedTo == nil && p.Dependencies == nil && p.TimeSpent == nil &&
		p.StartDate == nil && p.EndDate == nil && p.FinishedAt == nil
}

// Project groups tasks, members and milestones. CreatedBy is the manager.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	Members     []string      `json:"members"`
	CreatedBy   string        `json:"createdBy"`
	TimeSpent   float64       `json:"timeSpent"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
	FinishedAt  *time.Time    `json:"finishedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// HasMember reports whether userID belongs to the project.
func (p *Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// ProjectPatch is a partial project update. Nil fields are left untouched.
type ProjectPatch struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
	Members     *[]string      `json:"members,omitempty"`
	TimeSpent   *float64       `json:"timeSpent,omitempty"`
	StartDate   *time.Time     `json:"startDate,omitempty"`
	EndDate     *time.Time     `json:"endDate,omitempty"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
}

// Milestone is a dated checkpoint inside a project.
type Milestone struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// User is an account that can manage or join projects.
type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event represents something that happened to a task.
type Event struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Actor     string    `json:"actor,omitempty"`
	Type      string    `json:"event_type"` // created, status_changed, reranked, updated, deleted
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
