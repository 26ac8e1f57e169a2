package types

import "time"

// Status enumerates work item lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every legal status value.
func Statuses() []Status {
	return []Status{StatusPending, StatusActive, StatusDone, StatusCancelled}
}

// ValidStatus reports whether s is a member of the status enum.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusActive, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Priority enumerates work item urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every legal priority value.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// ValidPriority reports whether p is a member of the priority enum.
func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Account is a user record from the users collection. The stored password
// hash is projected away inside the store and never appears here.
type Account struct {
	ID        string    `json:"id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	Email     string    `json:"email" bson:"email"`
	FullName  string    `json:"full_name,omitempty" bson:"full_name,omitempty"`
	Active    bool      `json:"is_active" bson:"is_active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// WorkItem is a task record from the tasks collection.
type WorkItem struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Status      Status     `json:"status" bson:"status"`
	Priority    Priority   `json:"priority" bson:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty" bson:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by" bson:"created_by"`
	AssignedTo  []string   `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	Tags        []string   `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// RecentItem is the compact row included in database statistics.
type RecentItem struct {
	Title     string    `json:"title" bson:"title"`
	Status    Status    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// DatabaseStats summarizes the whole database.
type DatabaseStats struct {
	UserCount   int64              `json:"userCount"`
	TaskCount   int64              `json:"taskCount"`
	ByStatus    map[Status]int64   `json:"byStatus"`
	ByPriority  map[Priority]int64 `json:"byPriority"`
	RecentItems []RecentItem       `json:"recentItems"`
}

// AccountStats summarizes one account's task involvement.
type AccountStats struct {
	AccountID     string           `json:"accountId"`
	CreatedCount  int64            `json:"createdCount"`
	AssignedCount int64            `json:"assignedCount"`
	ByStatus      map[Status]int64 `json:"byStatus"`
}
