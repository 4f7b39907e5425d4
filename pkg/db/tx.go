package db

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tenantSetting is read by the row level security policies in the migrations.
const tenantSetting = "app.current_org_id"

// WithTx runs fn inside a transaction scoped to orgID. On PostgreSQL the
// transaction runs at REPEATABLE READ and carries the tenant for row level
// security; orgID 0 leaves the tenant unset.
func WithTx(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, fn func(tx *gorm.DB) error) error {
	pg := IsPostgres(conn)
	opts := &sql.TxOptions{}
	if pg {
		opts.Isolation = sql.LevelRepeatableRead
	}

	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pg && orgID != 0 {
			// is_local=true: the setting dies with the transaction.
			err := tx.Exec("SELECT set_config(?, ?, true)", tenantSetting, strconv.FormatInt(orgID.Int64(), 10)).Error
			if err != nil {
				return err
			}
		}
		return fn(tx)
	}, opts)
}

// ForUpdate adds a row lock to the next query. SQLite locks the whole
// database per write transaction and has no FOR UPDATE.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
