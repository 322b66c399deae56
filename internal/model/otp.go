package model

import "time"

// OTP is the single pending one-time passcode for an email address.
//
// There is at most one live record per email: issuing a new code replaces
// whatever was pending, so every previously emailed code is dead the moment
// a new one is generated. Presence of a record means "a code is pending";
// absence means nothing is.
//
// CodeHash is a bcrypt hash of the 6-digit code — the plaintext only ever
// exists in the email we send. Verification fetches by email and compares.
type OTP struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is past its validity window.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
