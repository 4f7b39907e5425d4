package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
)

type CreateJobRequest struct {
	ClientID    string
	Title       string
	Description string
	AssignedTo  string
	ScheduledAt *time.Time
	CreatedBy   snowflake.ID
}

// UpdateJobRequest is a sparse patch. An empty AssignedTo string clears the assignee.
type UpdateJobRequest struct {
	Title       *string
	Description *string
	Status      *string
	AssignedTo  *string
	ScheduledAt *time.Time
}

type ListJobRequest struct {
	PageToken  string
	PageSize   int
	Status     string
	AssignedTo string
	ClientID   string
}

type ListJobFilter struct {
	Status     Status
	AssignedTo snowflake.ID
	ClientID   snowflake.ID
}

type ListJobResponse struct {
	pagination.PageInfo
	Jobs []Job `json:"jobs"`
}

type Service interface {
	Create(context.Context, CreateJobRequest) (Job, error)
	List(context.Context, ListJobRequest) (ListJobResponse, error)
	GetByID(context.Context, string) (Job, error)
	Update(context.Context, string, UpdateJobRequest) (Job, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidClient       = errors.New("invalid_client")
	ErrInvalidAssignee     = errors.New("invalid_assignee")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("not_found")
)
