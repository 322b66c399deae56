// Package service contains the business logic layer: handlers parse HTTP and
// delegate here; this layer enforces the rules and talks to the repositories.
//
// AuthService owns the OTP signup/login flows and Google sign-in:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository / OTPRepository
//	                   ↘ TokenService (JWT), CodeHasher (bcrypt), Sender (email)
//
// Every dependency is constructor-injected, so tests swap in fakes — notably
// the email Sender, which in production is a shared SMTP client.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/hd-notes/internal/apperror"
	"github.com/sakif/hd-notes/internal/auth"
	mailer "github.com/sakif/hd-notes/internal/email"
	"github.com/sakif/hd-notes/internal/model"
	"github.com/sakif/hd-notes/internal/repository"
)

// OTPTTL is how long an issued code stays valid.
const OTPTTL = 5 * time.Minute

// IdentityVerifier verifies a third-party identity assertion. Implemented by
// auth.GoogleProvider; faked in tests.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.GoogleClaims, error)
}

// AuthService handles signup, login, OTP verification, and Google sign-in.
type AuthService struct {
	users  repository.UserRepository
	otps   repository.OTPRepository
	tokens *auth.TokenService
	hasher *auth.CodeHasher
	sender mailer.Sender
	google IdentityVerifier // nil when no Google client ID is configured
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// google may be nil; Google sign-in then fails as a configuration error.
func NewAuthService(
	users repository.UserRepository,
	otps repository.OTPRepository,
	tokens *auth.TokenService,
	hasher *auth.CodeHasher,
	sender mailer.Sender,
	google IdentityVerifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		otps:   otps,
		tokens: tokens,
		hasher: hasher,
		sender: sender,
		google: google,
		logger: logger,
	}
}

// AuthResult bundles the user and the issued session token.
type AuthResult struct {
	User  *model.User
	Token string
}

// GoogleAuthResult is returned by Google sign-in: a short-lived access token
// paired with a refresh token.
type GoogleAuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Signup starts email registration: validates the profile, creates (or, for
// an unverified repeat signup, updates) the user, and issues an OTP.
//
// Returns (user, isResend, error). isResend is true when an unverified user
// already existed — the client shows "code re-sent" instead of "welcome".
// A verified user signing up again is refused outright.
func (s *AuthService) Signup(ctx context.Context, name, email, dob string) (*model.User, bool, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperror.ValidationFailed("name", "Name is required")
	}

	born, err := time.Parse(time.DateOnly, dob)
	if err != nil {
		return nil, false, apperror.ValidationFailed("dob", "Invalid date of birth")
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("service/auth: looking up user %s: %w", email, err)
	}

	var user *model.User
	isResend := false

	if existing != nil {
		if existing.Verified {
			return nil, false, apperror.ValidationFailed("email", "User already exists and is verified")
		}
		// Abandoned signup — refresh the profile and reissue a code.
		isResend = true
		existing.Name = name
		existing.DOB = &born
		if err := s.users.UpdateUser(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("service/auth: updating unverified user %s: %w", email, err)
		}
		user = existing
	} else {
		user = &model.User{
			Email:    email,
			Name:     name,
			DOB:      &born,
			Provider: model.ProviderEmail,
			Verified: false,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("service/auth: creating user %s: %w", email, err)
		}
	}

	if err := s.issueOTP(ctx, email); err != nil {
		return nil, false, err
	}

	s.logger.Info("signup OTP issued",
		slog.String("email", email),
		slog.Bool("isResend", isResend),
	)

	return user, isResend, nil
}

// Login issues an OTP for an existing, verified user.
func (s *AuthService) Login(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("email", "User doesn't exist")
		}
		return fmt.Errorf("service/auth: looking up user %s: %w", email, err)
	}
	if !user.Verified {
		return apperror.ValidationFailed("email", "User not verified")
	}

	if err := s.issueOTP(ctx, email); err != nil {
		return err
	}

	s.logger.Info("login OTP issued", slog.String("email", email))
	return nil
}

// Resend reissues an OTP for an existing user regardless of verification
// state — it serves both the stuck-at-signup and stuck-at-login cases.
func (s *AuthService) Resend(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if _, err := s.users.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("email", "User not found")
		}
		return fmt.Errorf("service/auth: looking up user %s: %w", email, err)
	}

	if err := s.issueOTP(ctx, email); err != nil {
		return err
	}

	s.logger.Info("OTP resent", slog.String("email", email))
	return nil
}

// VerifySignup completes registration: checks the code, consumes it, marks
// the user verified, and mints a session token.
func (s *AuthService) VerifySignup(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)

	if err := s.checkOTP(ctx, email, code); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// The pending code is deliberately left in place: the failure is
			// about the account, not the code.
			return nil, apperror.ValidationFailed("email", "User doesn't exist")
		}
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", email, err)
	}

	// Consume before minting — a code grants at most one session.
	if err := s.otps.DeleteOTP(ctx, email); err != nil {
		return nil, fmt.Errorf("service/auth: consuming OTP for %s: %w", email, err)
	}

	user.Verified = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: marking user %s verified: %w", email, err)
	}

	token, err := s.tokens.GenerateSession(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating session token for %s: %w", user.ID, err)
	}

	s.logger.Info("user verified", slog.String("userID", user.ID), slog.String("email", email))

	return &AuthResult{User: user, Token: token}, nil
}

// VerifyLogin completes a login: checks the code, consumes it, and mints a
// session token. The user record is not mutated.
func (s *AuthService) VerifyLogin(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)

	if err := s.checkOTP(ctx, email, code); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("email", "User doesn't exist")
		}
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", email, err)
	}

	if err := s.otps.DeleteOTP(ctx, email); err != nil {
		return nil, fmt.Errorf("service/auth: consuming OTP for %s: %w", email, err)
	}

	token, err := s.tokens.GenerateSession(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating session token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID), slog.String("email", email))

	return &AuthResult{User: user, Token: token}, nil
}

// LoginWithGoogle verifies a Google ID token and resolves it to a local user.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*GoogleAuthResult, error) {
	if s.google == nil {
		// Server misconfiguration, not a caller mistake → surfaces as 500.
		return nil, fmt.Errorf("service/auth: Google client ID not configured")
	}

	claims, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Google ID token rejected", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized("Invalid Google token")
	}

	return s.GoogleLogin(ctx, claims)
}

// GoogleLogin resolves verified Google claims to a local user and issues the
// access/refresh token pair. Also the tail end of the server-side code flow,
// where the handler has already exchanged the authorization code.
//
// An existing user with the same email is adopted as-is, whatever provider
// created it — deliberate account linking. The Google subject ID is recorded
// the first time it's seen so the link is observable.
func (s *AuthService) GoogleLogin(ctx context.Context, claims *auth.GoogleClaims) (*GoogleAuthResult, error) {
	if claims == nil {
		return nil, fmt.Errorf("service/auth: Google claims must not be nil")
	}

	email := normalizeEmail(claims.Email)

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{
			Email:    email,
			Name:     claims.Name,
			Provider: model.ProviderGoogle,
			Verified: true, // Google already proved control of the address
			GoogleID: claims.Subject,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating Google user %s: %w", email, err)
		}
		s.logger.Info("user created via Google", slog.String("userID", user.ID), slog.String("email", email))

	case err != nil:
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", email, err)

	default:
		if user.GoogleID == "" {
			user.GoogleID = claims.Subject
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: linking Google id to user %s: %w", user.ID, err)
			}
		}
	}

	accessToken, err := s.tokens.GenerateAccess(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token for %s: %w", user.ID, err)
	}
	refreshToken, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating refresh token for %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via Google", slog.String("userID", user.ID))

	return &GoogleAuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// issueOTP generates a fresh code, replaces any pending one, and emails it.
//
// Email delivery failure is logged but does not fail the request or roll the
// record back: the caller is always told the OTP was sent. That keeps
// delivery-provider errors from leaking to (and being probed by) clients;
// operators see them in the log.
func (s *AuthService) issueOTP(ctx context.Context, email string) error {
	code, err := auth.GenerateOTP()
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	hash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	otp := &model.OTP{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: time.Now().Add(OTPTTL),
	}
	if err := s.otps.ReplaceOTP(ctx, otp); err != nil {
		return fmt.Errorf("service/auth: storing OTP for %s: %w", email, err)
	}

	subject, htmlBody, textBody := mailer.OTPMessage(code)
	if err := s.sender.Send(email, subject, htmlBody, textBody); err != nil {
		s.logger.Error("OTP email delivery failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// checkOTP validates a submitted code against the pending record without
// consuming it.
//
// A wrong code and an absent record produce the same rejection — callers
// can't distinguish "guessed wrong" from "nothing pending". An expired record
// is deleted on sight and reported as expired; a later retry of the same code
// then falls into the absent case.
func (s *AuthService) checkOTP(ctx context.Context, email, code string) error {
	rec, err := s.otps.GetOTP(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("otp", "Couldn't find OTP")
		}
		return fmt.Errorf("service/auth: fetching OTP for %s: %w", email, err)
	}

	if err := s.hasher.Verify(rec.CodeHash, code); err != nil {
		return apperror.ValidationFailed("otp", "Couldn't find OTP")
	}

	if rec.Expired(time.Now()) {
		if err := s.otps.DeleteOTP(ctx, email); err != nil {
			return fmt.Errorf("service/auth: deleting expired OTP for %s: %w", email, err)
		}
		return apperror.ValidationFailed("otp", "OTP expired")
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
