package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleClaims is the identity a verified Google assertion proves.
type GoogleClaims struct {
	Subject string // Google's stable "sub" id — never changes for an account
	Email   string
	Name    string
}

// GoogleProvider verifies Google sign-in for two entry points:
//
//   - VerifyIDToken: the SPA obtains an ID token from Google's JS widget and
//     posts it to us; we confirm it with Google's tokeninfo endpoint and check
//     the audience is our own client ID.
//   - AuthURL/Exchange: a classic server-side Authorization Code flow for
//     plain-browser logins, built on golang.org/x/oauth2. The code-for-token
//     exchange happens server-to-server with our client secret, and the token
//     never touches the browser.
type GoogleProvider struct {
	clientID string
	config   *oauth2.Config

	// overridable in tests
	client       *http.Client
	tokenInfoURL string
	userInfoURL  string
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
// clientID is required; clientSecret and callbackURL only matter for the
// code-flow entry point.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		clientID: clientID,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		client:       http.DefaultClient,
		tokenInfoURL: "https://oauth2.googleapis.com/tokeninfo",
		userInfoURL:  "https://www.googleapis.com/oauth2/v3/userinfo",
	}
}

// tokenInfo is the portion of Google's tokeninfo response we care about.
type tokenInfo struct {
	Aud   string `json:"aud"`
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// VerifyIDToken checks an ID token with Google and returns its identity.
//
// Google's tokeninfo endpoint validates the signature and expiry for us and
// returns the decoded payload; our job is to confirm the "aud" claim matches
// our client ID so tokens minted for some other app are rejected.
func (p *GoogleProvider) VerifyIDToken(ctx context.Context, idToken string) (*GoogleClaims, error) {
	if idToken == "" {
		return nil, fmt.Errorf("auth: empty Google ID token")
	}

	endpoint := p.tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building tokeninfo request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	// tokeninfo answers non-200 for malformed, expired, or forged tokens
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google rejected the ID token (status %d)", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding tokeninfo response: %w", err)
	}

	if info.Aud != p.clientID {
		return nil, fmt.Errorf("auth: ID token audience mismatch")
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("auth: ID token is missing identity claims")
	}

	return &GoogleClaims{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
	}, nil
}

// AuthURL returns the Google authorization URL for the code flow.
// state is a random value stored in a cookie before the redirect and checked
// again on callback (CSRF protection).
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// userInfo is the portion of Google's userinfo response we care about.
type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange completes the code flow: trades the authorization code for an
// OAuth token, then calls the userinfo endpoint for the profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleClaims, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}

	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("auth: Google returned an incomplete profile")
	}

	return &GoogleClaims{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
	}, nil
}
