package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// X OAuth 2.0 endpoints. X requires PKCE for every authorization code flow.
var TwitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// TwitterUser is the subset of GET /2/users/me we keep.
// X never returns an email address through this API.
type TwitterUser struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// TwitterProvider runs the X OAuth2 authorization-code + PKCE flow.
type TwitterProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewTwitterProvider configures the provider. apiBase is normally
// "https://api.twitter.com/2"; tests point both it and endpoint at httptest.
func NewTwitterProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, apiBase string) *TwitterProvider {
	return &TwitterProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"tweet.read", "users.read"},
			Endpoint:     endpoint,
		},
		apiBase: apiBase,
	}
}

// NewVerifier returns a fresh PKCE code verifier. The caller keeps it (in a
// short-lived cookie) until the callback.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthURL returns the X consent page URL for state and the PKCE verifier.
func (p *TwitterProvider) AuthURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the callback code for a token and fetches the X profile.
func (p *TwitterProvider) Exchange(ctx context.Context, code, verifier string) (*TwitterUser, error) {
	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)

	resp, err := client.Get(p.apiBase + "/users/me?user.fields=profile_image_url")
	if err != nil {
		return nil, fmt.Errorf("auth: calling X /users/me: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: X /users/me returned status %d", resp.StatusCode)
	}

	var body struct {
		Data TwitterUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("auth: decoding X /users/me response: %w", err)
	}
	if body.Data.ID == "" {
		return nil, fmt.Errorf("auth: X returned a user without an id")
	}

	return &body.Data, nil
}
