package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConfigDSN(t *testing.T) {
	pg, err := Config{Type: "postgres", Host: "db", Port: "5432", User: "app", Password: "pw", Name: "tradie", SSLMode: "disable"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=tradie sslmode=disable TimeZone=UTC", pg)

	my, err := Config{Type: "mysql", Host: "db", Port: "3306", User: "app", Password: "pw", Name: "tradie"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "app:pw@tcp(db:3306)/tradie?charset=utf8mb4&loc=UTC&parseTime=True", my)

	lite, err := Config{Type: "sqlite"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, defaultSQLiteFile, lite)

	_, err = Config{Type: "oracle"}.DSN()
	assert.Error(t, err)
	_, err = Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: quotes.quote_number")))
	assert.False(t, IsDuplicateKeyErr(nil))

	assert.True(t, IsSerializationFailure(fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"})))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
}

type txRow struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn, err := NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&txRow{}))
	assert.False(t, IsPostgres(conn))

	boom := errors.New("boom")
	err = WithTx(context.Background(), conn, 7, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&txRow{ID: 1, Name: "rolled back"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, WithTx(context.Background(), conn, 7, func(tx *gorm.DB) error {
		var row txRow
		return ForUpdate(tx).Where("id = ?", 1).Find(&row).Error
	}))

	var count int64
	require.NoError(t, conn.Model(&txRow{}).Count(&count).Error)
	assert.Zero(t, count)
}
