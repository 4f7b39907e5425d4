package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *Job) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Job, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListJobFilter, page pagination.Pagination) ([]*Job, error)
	Update(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
}
