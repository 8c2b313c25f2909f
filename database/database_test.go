package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := Open(DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestTransactCommits(t *testing.T) {
	db := openTestDB(t)

	err := Transact(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Create(&models.Table{Number: "A1"}).Error
	})
	require.NoError(t, err)

	var count int64
	db.Model(&models.Table{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTransactRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := Transact(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Table{Number: "A1"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrStore))

	var count int64
	db.Model(&models.Table{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.Error(t, err)
}

func TestEnsureDatabaseIgnoresNonPostgres(t *testing.T) {
	assert.NoError(t, ensureDatabase("root:root@tcp(127.0.0.1:3306)/pos"))
}
