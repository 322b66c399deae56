package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/hd-notes/internal/apperror"
	"github.com/sakif/hd-notes/internal/model"
	"github.com/sakif/hd-notes/internal/repository"
)

var _ repository.OTPRepository = (*DB)(nil)

// ReplaceOTP swaps the pending code for an email: delete first, then insert.
//
// The delete-before-insert order is the security property, not an
// optimization — the moment a new code is issued, every previously emailed
// code must stop being retrievable. The two statements run without a
// transaction; if two issuances race, the worst outcome is zero or one
// pending code, never two (email is the table's primary key).
func (db *DB) ReplaceOTP(ctx context.Context, otp *model.OTP) error {
	otp.CreatedAt = time.Now()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM otps WHERE email = ?`, otp.Email,
	); err != nil {
		return fmt.Errorf("sqlite: clearing prior OTPs for %s: %w", otp.Email, err)
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO otps (email, code_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		otp.Email,
		otp.CodeHash,
		otp.ExpiresAt,
		otp.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting OTP for %s: %w", otp.Email, err)
	}

	return nil
}

// GetOTP retrieves the pending code for an email, if any.
// Returns apperror.ErrNotFound when nothing is pending.
func (db *DB) GetOTP(ctx context.Context, email string) (*model.OTP, error) {
	var o model.OTP

	err := db.conn.QueryRowContext(ctx,
		`SELECT email, code_hash, expires_at, created_at
		 FROM otps WHERE email = ?`,
		email,
	).Scan(
		&o.Email,
		&o.CodeHash,
		&o.ExpiresAt,
		&o.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("otp", email)
		}
		return nil, fmt.Errorf("sqlite: getting OTP for %s: %w", email, err)
	}

	return &o, nil
}

// DeleteOTP removes the pending code for an email. Deleting an already-absent
// record is not an error — consumption and expiry cleanup both call this and
// must be idempotent.
func (db *DB) DeleteOTP(ctx context.Context, email string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM otps WHERE email = ?`, email,
	); err != nil {
		return fmt.Errorf("sqlite: deleting OTP for %s: %w", email, err)
	}
	return nil
}
