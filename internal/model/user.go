// Package model defines the data structures used throughout the application.
package model

import "time"

// Auth providers. A user created through the OTP flow has ProviderEmail;
// a user created (or linked) through Google sign-in has ProviderGoogle.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User represents a registered account.
//
// Email is the primary external identifier and is stored lowercased — the
// UNIQUE constraint in the DB guarantees one account per address. We still
// generate our own internal string ID (xid) so tokens and foreign keys don't
// depend on the address itself.
//
// DOB is a pointer because federated signups never supply a date of birth;
// nil marshals away via omitempty instead of rendering a zero time.
//
// Verified starts false for email signups and flips to true on the first
// successful OTP verification. Google users are verified at creation —
// Google has already proven control of the address.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	DOB       *time.Time `json:"dob,omitempty"`
	Provider  string     `json:"authProvider"`
	Verified  bool       `json:"isVerified"`
	GoogleID  string     `json:"googleId,omitempty"` // Google's stable subject ("sub") claim
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
