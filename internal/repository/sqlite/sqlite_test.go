package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/hd-notes/internal/model"
)

// newTestDB returns a throwaway in-memory database, migrated and ready.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	user := &model.User{
		Email:    email,
		Name:     "Test User",
		DOB:      &dob,
		Provider: model.ProviderEmail,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
