// Package storetest opens a throwaway sqlite-backed store for tests.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"devpair-be/internal/database"
	"devpair-be/internal/models"
	"devpair-be/internal/store"
)

// Open returns a migrated store on a fresh database file under t.TempDir.
func Open(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "app.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := database.Connect("sqlite", dsn)
	require.NoError(t, err, "open sqlite db")
	require.NoError(t, database.Migrate(db), "migrate")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return store.New(db, store.WithRetry(0)), db
}

// SeedUsers creates one user per username and returns them in order.
func SeedUsers(t *testing.T, db *gorm.DB, usernames ...string) []models.User {
	t.Helper()

	users := make([]models.User, 0, len(usernames))
	for _, name := range usernames {
		u := models.User{
			Username:     name,
			Name:         name,
			Email:        name + "@example.com",
			PasswordHash: "x",
		}
		require.NoError(t, db.Create(&u).Error, "seed user %s", name)
		users = append(users, u)
	}
	return users
}
