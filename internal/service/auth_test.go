package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/hd-notes/internal/apperror"
	"github.com/sakif/hd-notes/internal/auth"
	"github.com/sakif/hd-notes/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeUserRepo is an in-memory UserRepository keyed by email.
type fakeUserRepo struct {
	byEmail map[string]*model.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*model.User{}}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return apperror.Conflict("user", user.Email)
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.byEmail[user.Email] = &cp
	return nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (r *fakeUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	for email, u := range r.byEmail {
		if u.ID == user.ID {
			cp := *user
			r.byEmail[email] = &cp
			return nil
		}
	}
	return apperror.NotFound("user", user.ID)
}

// fakeOTPRepo is an in-memory OTPRepository. Tests reach into records to
// backdate expiry.
type fakeOTPRepo struct {
	records map[string]*model.OTP
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{records: map[string]*model.OTP{}}
}

func (r *fakeOTPRepo) ReplaceOTP(_ context.Context, otp *model.OTP) error {
	cp := *otp
	r.records[otp.Email] = &cp
	return nil
}

func (r *fakeOTPRepo) GetOTP(_ context.Context, email string) (*model.OTP, error) {
	rec, ok := r.records[email]
	if !ok {
		return nil, apperror.NotFound("otp", email)
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeOTPRepo) DeleteOTP(_ context.Context, email string) error {
	delete(r.records, email)
	return nil
}

// fakeSender captures outgoing mail so tests can read the code out of the
// body, and can be told to fail.
type fakeSender struct {
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	to       string
	subject  string
	textBody string
}

func (s *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, textBody: textBody})
	return nil
}

var codeRe = regexp.MustCompile(`\d{6}`)

// lastCode extracts the 6-digit code from the most recent captured email.
func (s *fakeSender) lastCode(t *testing.T) string {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("no email was sent")
	}
	code := codeRe.FindString(s.sent[len(s.sent)-1].textBody)
	if code == "" {
		t.Fatalf("no 6-digit code in email body: %q", s.sent[len(s.sent)-1].textBody)
	}
	return code
}

// fakeVerifier returns canned Google claims or an error.
type fakeVerifier struct {
	claims *auth.GoogleClaims
	err    error
}

func (v *fakeVerifier) VerifyIDToken(_ context.Context, _ string) (*auth.GoogleClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

// =========================================================================
// FIXTURE
// =========================================================================

type authFixture struct {
	svc    *AuthService
	users  *fakeUserRepo
	otps   *fakeOTPRepo
	sender *fakeSender
}

func newAuthFixture(t *testing.T, google IdentityVerifier) *authFixture {
	t.Helper()

	tokens, err := auth.NewTokenService(
		"test-secret-at-least-16-chars!!",
		"test-refresh-secret-16-chars!!!",
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	users := newFakeUserRepo()
	otps := newFakeOTPRepo()
	sender := &fakeSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewAuthService(
		users, otps, tokens,
		auth.NewCodeHasherForTest(bcrypt.MinCost),
		sender, google, logger,
	)
	return &authFixture{svc: svc, users: users, otps: otps, sender: sender}
}

// signupVerified walks a user through signup + verification.
func (f *authFixture) signupVerified(t *testing.T, email string) *model.User {
	t.Helper()
	ctx := context.Background()

	if _, _, err := f.svc.Signup(ctx, "Test User", email, "1990-06-15"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	result, err := f.svc.VerifySignup(ctx, email, f.sender.lastCode(t))
	if err != nil {
		t.Fatalf("VerifySignup() error = %v", err)
	}
	return result.User
}

// =========================================================================
// SIGNUP
// =========================================================================

func TestSignup_NewUser(t *testing.T) {
	f := newAuthFixture(t, nil)

	user, isResend, err := f.svc.Signup(context.Background(), "Alice", "Alice@Example.com", "1990-06-15")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if isResend {
		t.Error("isResend = true for a brand-new user")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want lowercased %q", user.Email, "alice@example.com")
	}
	if user.Verified {
		t.Error("new user should start unverified")
	}
	if user.Provider != model.ProviderEmail {
		t.Errorf("Provider = %q, want %q", user.Provider, model.ProviderEmail)
	}

	if len(f.sender.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(f.sender.sent))
	}
	if f.sender.sent[0].to != "alice@example.com" {
		t.Errorf("email to = %q, want %q", f.sender.sent[0].to, "alice@example.com")
	}
}

func TestSignup_InvalidDOB(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, _, err := f.svc.Signup(context.Background(), "Alice", "alice@example.com", "15/06/1990")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestSignup_VerifiedUserRejected(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.signupVerified(t, "alice@example.com")

	_, _, err := f.svc.Signup(context.Background(), "Alice Again", "alice@example.com", "1990-06-15")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestSignup_UnverifiedUserIsResend(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	first, _, err := f.svc.Signup(ctx, "Alice", "alice@example.com", "1990-06-15")
	if err != nil {
		t.Fatal(err)
	}

	// Signing up again before verifying updates the profile and resends.
	second, isResend, err := f.svc.Signup(ctx, "Alice Corrected", "alice@example.com", "1991-01-01")
	if err != nil {
		t.Fatalf("Signup() #2 error = %v", err)
	}
	if !isResend {
		t.Error("isResend = false for an unverified repeat signup")
	}
	if second.ID != first.ID {
		t.Errorf("second signup created a new user: %q vs %q", second.ID, first.ID)
	}
	if second.Name != "Alice Corrected" {
		t.Errorf("Name = %q, want the updated name", second.Name)
	}
	if len(f.sender.sent) != 2 {
		t.Errorf("emails sent = %d, want 2", len(f.sender.sent))
	}
}

// =========================================================================
// OTP VERIFICATION
// =========================================================================

func TestVerifySignup_MarksVerifiedAndMintsToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	if _, _, err := f.svc.Signup(ctx, "Alice", "alice@example.com", "1990-06-15"); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.VerifySignup(ctx, "alice@example.com", f.sender.lastCode(t))
	if err != nil {
		t.Fatalf("VerifySignup() error = %v", err)
	}
	if !result.User.Verified {
		t.Error("user not marked verified")
	}
	if result.Token == "" {
		t.Error("no session token issued")
	}
}

func TestVerifySignup_WrongCode(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	if _, _, err := f.svc.Signup(ctx, "Alice", "alice@example.com", "1990-06-15"); err != nil {
		t.Fatal(err)
	}

	wrong := "000000"
	if wrong == f.sender.lastCode(t) {
		wrong = "000001"
	}
	_, err := f.svc.VerifySignup(ctx, "alice@example.com", wrong)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	// The real code must still work after a failed guess.
	if _, err := f.svc.VerifySignup(ctx, "alice@example.com", f.sender.lastCode(t)); err != nil {
		t.Errorf("correct code after wrong guess: error = %v", err)
	}
}

func TestVerifyLogin_CodeIsSingleUse(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	f.signupVerified(t, "alice@example.com")

	if err := f.svc.Login(ctx, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	code := f.sender.lastCode(t)

	if _, err := f.svc.VerifyLogin(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("VerifyLogin() #1 error = %v", err)
	}
	// Replaying the consumed code must fail.
	if _, err := f.svc.VerifyLogin(ctx, "alice@example.com", code); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("VerifyLogin() replay: error = %v, want ErrValidation", err)
	}
}

func TestVerifyLogin_ReissueInvalidatesFirstCode(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	f.signupVerified(t, "alice@example.com")

	if err := f.svc.Login(ctx, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	firstCode := f.sender.lastCode(t)

	if err := f.svc.Resend(ctx, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	secondCode := f.sender.lastCode(t)

	// The first code is dead the moment the second one is issued. Skip the
	// check on the (1-in-900000) chance both draws produced the same code.
	if firstCode != secondCode {
		if _, err := f.svc.VerifyLogin(ctx, "alice@example.com", firstCode); err == nil {
			t.Fatal("first code still worked after a reissue")
		}
	}

	if _, err := f.svc.VerifyLogin(ctx, "alice@example.com", secondCode); err != nil {
		t.Fatalf("second code should work: error = %v", err)
	}
}

func TestVerifyLogin_ExpiredCode(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	f.signupVerified(t, "alice@example.com")

	if err := f.svc.Login(ctx, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	code := f.sender.lastCode(t)

	// Backdate the stored record past its lifetime.
	f.otps.records["alice@example.com"].ExpiresAt = time.Now().Add(-time.Minute)

	_, err := f.svc.VerifyLogin(ctx, "alice@example.com", code)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "OTP expired" {
		t.Errorf("message = %q, want %q", appErr.Message, "OTP expired")
	}

	// The expired record is purged; resubmitting now reads as absent.
	if _, ok := f.otps.records["alice@example.com"]; ok {
		t.Error("expired OTP record should have been deleted")
	}
	if _, err := f.svc.VerifyLogin(ctx, "alice@example.com", code); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("resubmit after expiry: error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// LOGIN / RESEND PRECONDITIONS
// =========================================================================

func TestLogin_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, nil)

	err := f.svc.Login(context.Background(), "ghost@example.com")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestLogin_UnverifiedUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	if _, _, err := f.svc.Signup(ctx, "Alice", "alice@example.com", "1990-06-15"); err != nil {
		t.Fatal(err)
	}

	err := f.svc.Login(ctx, "alice@example.com")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestResend_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, nil)

	err := f.svc.Resend(context.Background(), "ghost@example.com")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestIssueOTP_SendFailureStillSucceeds(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.sender.sendErr = errors.New("smtp: connection refused")

	// Delivery problems are an operator concern; the API call succeeds and
	// the code is stored (the user can hit resend).
	_, _, err := f.svc.Signup(context.Background(), "Alice", "alice@example.com", "1990-06-15")
	if err != nil {
		t.Fatalf("Signup() with failing sender error = %v", err)
	}
	if _, ok := f.otps.records["alice@example.com"]; !ok {
		t.Error("OTP record missing despite send failure")
	}
}

// =========================================================================
// GOOGLE
// =========================================================================

func TestLoginWithGoogle_NewUser(t *testing.T) {
	verifier := &fakeVerifier{claims: &auth.GoogleClaims{
		Subject: "g-123", Email: "Alice@Gmail.com", Name: "Alice",
	}}
	f := newAuthFixture(t, verifier)

	result, err := f.svc.LoginWithGoogle(context.Background(), "some-id-token")
	if err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}
	if result.User.Email != "alice@gmail.com" {
		t.Errorf("Email = %q, want lowercased", result.User.Email)
	}
	if !result.User.Verified {
		t.Error("Google user should be created verified")
	}
	if result.User.Provider != model.ProviderGoogle {
		t.Errorf("Provider = %q, want %q", result.User.Provider, model.ProviderGoogle)
	}
	if result.User.GoogleID != "g-123" {
		t.Errorf("GoogleID = %q, want %q", result.User.GoogleID, "g-123")
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("expected both access and refresh tokens")
	}
}

func TestLoginWithGoogle_LinksExistingEmailUser(t *testing.T) {
	verifier := &fakeVerifier{claims: &auth.GoogleClaims{
		Subject: "g-456", Email: "alice@example.com", Name: "Alice G",
	}}
	f := newAuthFixture(t, verifier)
	existing := f.signupVerified(t, "alice@example.com")

	result, err := f.svc.LoginWithGoogle(context.Background(), "some-id-token")
	if err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}
	if result.User.ID != existing.ID {
		t.Errorf("got user %q, want existing user %q", result.User.ID, existing.ID)
	}
	if result.User.GoogleID != "g-456" {
		t.Errorf("GoogleID = %q, want linked id %q", result.User.GoogleID, "g-456")
	}
	// The original profile is kept; only the Google link is added.
	if result.User.Name != existing.Name {
		t.Errorf("Name = %q, want unchanged %q", result.User.Name, existing.Name)
	}
}

func TestLoginWithGoogle_InvalidToken(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("audience mismatch")}
	f := newAuthFixture(t, verifier)

	_, err := f.svc.LoginWithGoogle(context.Background(), "bad-token")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginWithGoogle_Unconfigured(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.LoginWithGoogle(context.Background(), "any-token")
	if err == nil {
		t.Fatal("LoginWithGoogle() should fail when no verifier is configured")
	}
	// A config problem is not the caller's fault — it must not map to 4xx.
	if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, should be an internal error", err)
	}
}
