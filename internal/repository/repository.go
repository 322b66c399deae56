// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/hd-notes/internal/model"
)

// UserRepository persists user accounts. Emails are expected to arrive
// canonicalized (trimmed, lowercased) — the service layer does that.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

// OTPRepository persists pending one-time codes, at most one per email.
//
// ReplaceOTP swaps the pending record for an email: any prior record is
// removed before the new one is written, so a previously issued code can
// never be retrieved again once a new one exists.
type OTPRepository interface {
	ReplaceOTP(ctx context.Context, otp *model.OTP) error
	GetOTP(ctx context.Context, email string) (*model.OTP, error)
	DeleteOTP(ctx context.Context, email string) error
}

// NoteRepository persists notes. Reads and deletes are always scoped to an
// owner — there is no way to address another user's note through this
// interface.
type NoteRepository interface {
	CreateNote(ctx context.Context, note *model.Note) error
	ListNotesByUser(ctx context.Context, userID string) ([]model.Note, error)
	// DeleteOwnedNote removes the note only if it belongs to userID. A
	// missing note and someone else's note both come back as not-found.
	DeleteOwnedNote(ctx context.Context, id, userID string) error
}
