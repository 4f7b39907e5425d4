package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return status, true
	default:
		return "", false
	}
}

type Job struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	ClientID    snowflake.ID  `gorm:"not null;index" json:"client_id"`
	Title       string        `gorm:"type:text;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Status      Status        `gorm:"type:text;not null" json:"status"`
	AssignedTo  *snowflake.ID `gorm:"index" json:"assigned_to,omitempty"`
	ScheduledAt *time.Time    `json:"scheduled_at,omitempty"`
	CreatedBy   snowflake.ID  `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Job) TableName() string { return "jobs" }

// IsAssignedTo reports whether userID is the job's assignee. Assignees may
// edit their own job without the edit-all capability.
func (j Job) IsAssignedTo(userID snowflake.ID) bool {
	return j.AssignedTo != nil && userID != 0 && *j.AssignedTo == userID
}
