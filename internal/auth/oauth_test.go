package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeX serves the token endpoint and /2/users/me.
func fakeX(t *testing.T, wantVerifier string, meStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.Equal(t, wantVerifier, r.Form.Get("code_verifier"))
		user, _, ok := r.BasicAuth()
		assert.True(t, ok, "client credentials should be sent in the header")
		assert.Equal(t, "client-id", user)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"x-access","token_type":"bearer","expires_in":7200}`))
	})
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer x-access", r.Header.Get("Authorization"))
		if meStatus != http.StatusOK {
			w.WriteHeader(meStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"2244994945","username":"shipper","name":"Ship Per","profile_image_url":"https://pbs.twimg.com/x.jpg"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *TwitterProvider {
	return NewTwitterProvider("client-id", "client-secret", "http://localhost/auth/twitter/callback",
		oauth2.Endpoint{
			AuthURL:   srv.URL + "/i/oauth2/authorize",
			TokenURL:  srv.URL + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		srv.URL+"/2",
	)
}

func TestTwitterProvider_AuthURLCarriesPKCE(t *testing.T) {
	srv := fakeX(t, "", http.StatusOK)
	p := newTestProvider(srv)

	raw := p.AuthURL("state-123", NewVerifier())
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "tweet.read users.read", q.Get("scope"))
	assert.Equal(t, "client-id", q.Get("client_id"))
}

func TestTwitterProvider_Exchange(t *testing.T) {
	verifier := NewVerifier()
	srv := fakeX(t, verifier, http.StatusOK)
	p := newTestProvider(srv)

	user, err := p.Exchange(context.Background(), "the-code", verifier)
	require.NoError(t, err)

	assert.Equal(t, "2244994945", user.ID)
	assert.Equal(t, "shipper", user.Username)
	assert.Equal(t, "Ship Per", user.Name)
	assert.Equal(t, "https://pbs.twimg.com/x.jpg", user.ProfileImageURL)
}

func TestTwitterProvider_ExchangeProfileFailure(t *testing.T) {
	verifier := NewVerifier()
	srv := fakeX(t, verifier, http.StatusForbidden)
	p := newTestProvider(srv)

	_, err := p.Exchange(context.Background(), "the-code", verifier)
	assert.Error(t, err)
}
