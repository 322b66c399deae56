package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testClientID = "test-client-id.apps.googleusercontent.com"

// newTestGoogleProvider points the provider's tokeninfo URL at a local fake
// of Google's endpoint.
func newTestGoogleProvider(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider(testClientID, "secret", "http://localhost/auth/google/callback")
	p.client = srv.Client()
	p.tokenInfoURL = srv.URL
	return p
}

func TestVerifyIDToken_Valid(t *testing.T) {
	p := newTestGoogleProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id_token"); got != "good-token" {
			t.Errorf("id_token = %q, want %q", got, "good-token")
		}
		fmt.Fprintf(w, `{"aud":%q,"sub":"g-123","email":"alice@gmail.com","name":"Alice"}`, testClientID)
	})

	claims, err := p.VerifyIDToken(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("VerifyIDToken() error = %v", err)
	}
	if claims.Subject != "g-123" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "g-123")
	}
	if claims.Email != "alice@gmail.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "alice@gmail.com")
	}
	if claims.Name != "Alice" {
		t.Errorf("Name = %q, want %q", claims.Name, "Alice")
	}
}

func TestVerifyIDToken_AudienceMismatch(t *testing.T) {
	// A valid Google token minted for some other application must be refused.
	p := newTestGoogleProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"aud":"someone-elses-app","sub":"g-123","email":"alice@gmail.com"}`)
	})

	if _, err := p.VerifyIDToken(context.Background(), "other-apps-token"); err == nil {
		t.Fatal("VerifyIDToken() should reject a token with the wrong audience")
	}
}

func TestVerifyIDToken_GoogleRejects(t *testing.T) {
	p := newTestGoogleProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
	})

	if _, err := p.VerifyIDToken(context.Background(), "expired-or-forged"); err == nil {
		t.Fatal("VerifyIDToken() should fail when tokeninfo returns non-200")
	}
}

func TestVerifyIDToken_MissingIdentity(t *testing.T) {
	p := newTestGoogleProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"aud":%q,"sub":"","email":""}`, testClientID)
	})

	if _, err := p.VerifyIDToken(context.Background(), "hollow-token"); err == nil {
		t.Fatal("VerifyIDToken() should reject a payload without sub/email")
	}
}

func TestVerifyIDToken_EmptyToken(t *testing.T) {
	p := NewGoogleProvider(testClientID, "secret", "")
	if _, err := p.VerifyIDToken(context.Background(), ""); err == nil {
		t.Fatal("VerifyIDToken() should reject an empty token without calling Google")
	}
}

func TestAuthURL_ContainsState(t *testing.T) {
	p := NewGoogleProvider(testClientID, "secret", "http://localhost/auth/google/callback")

	url := p.AuthURL("random-state-xyz")
	if url == "" {
		t.Fatal("AuthURL() returned empty string")
	}
	if want := "state=random-state-xyz"; !strings.Contains(url, want) {
		t.Errorf("AuthURL() = %q, missing %q", url, want)
	}
}
