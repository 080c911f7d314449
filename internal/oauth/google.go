// Package oauth wires Google sign-in through goth.
package oauth

import (
	"errors"
	"net/http"

	"taskify/backend/internal/config"
	"taskify/backend/internal/services"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

const providerName = "google"

var ErrNotConfigured = errors.New("google sign-in is not configured")

// Google begins and completes the Google OAuth flow.
type Google struct{}

// NewGoogle registers the Google provider and the session store gothic keeps
// OAuth state in. It returns ErrNotConfigured without client credentials.
func NewGoogle(cfg config.OAuthConfig, secureCookies bool) (*Google, error) {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, ErrNotConfigured
	}

	callbackURL := cfg.CallbackBaseURL + "/auth/google/callback"
	goth.UseProviders(google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, callbackURL, "email", "profile"))

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secureCookies
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store

	return &Google{}, nil
}

// withProvider sets the query parameter gothic reads the provider name from.
func withProvider(r *http.Request) *http.Request {
	r2 := r.Clone(r.Context())
	q := r2.URL.Query()
	q.Set("provider", providerName)
	r2.URL.RawQuery = q.Encode()
	return r2
}

// Begin redirects the browser to Google's consent page.
func (g *Google) Begin(w http.ResponseWriter, r *http.Request) error {
	authURL, err := gothic.GetAuthURL(w, withProvider(r))
	if err != nil {
		return err
	}
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	return nil
}

// Complete exchanges the callback code for the user's Google profile.
func (g *Google) Complete(w http.ResponseWriter, r *http.Request) (services.GoogleProfile, error) {
	user, err := gothic.CompleteUserAuth(w, withProvider(r))
	if err != nil {
		return services.GoogleProfile{}, err
	}
	_ = gothic.Logout(w, r)

	return services.GoogleProfile{
		ProviderUserID: user.UserID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
	}, nil
}
