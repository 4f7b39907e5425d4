package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a customer of the organization that jobs, quotes and invoices are raised for.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"organization_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text" json:"email"`
	Phone     string       `gorm:"type:text" json:"phone"`
	Address   string       `gorm:"type:text" json:"address"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
