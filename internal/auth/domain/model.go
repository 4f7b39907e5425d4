// Package domain holds dashboard users and their cookie sessions. Mobile
// bearer tokens are stateless and live in auth/token.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a person who can sign in. Organization membership and role are
// held by the organization package, not here.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID   string       `gorm:"column:external_id;type:text;not null;uniqueIndex" json:"external_id"`
	Email        string       `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	DisplayName  string       `gorm:"column:display_name;type:text;not null" json:"display_name"`
	// PasswordHash is an argon2id PHC string; nil for users who cannot sign in.
	PasswordHash *string      `gorm:"column:password_hash;type:text" json:"-"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Session is a dashboard login. Only the SHA-256 of the cookie value is stored.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

func (Session) TableName() string { return "sessions" }

// Check reports why the session can no longer authenticate at now, or nil.
// Revocation wins over expiry.
func (s Session) Check(now time.Time) error {
	if s.RevokedAt != nil {
		return ErrSessionRevoked
	}
	if now.After(s.ExpiresAt) {
		return ErrSessionExpired
	}
	return nil
}

// Identity is the resolved principal of an authenticated request.
type Identity struct {
	UserID     snowflake.ID `json:"user_id"`
	ExternalID string       `json:"external_id"`
	Email      string       `json:"email"`
	// Method names the channel that resolved the identity: "session" or "bearer".
	Method string `json:"method"`
}
