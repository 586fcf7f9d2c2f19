package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the subset of the GitHub /user response we use to create or
// link a local account.
type GitHubUser struct {
	ID    int64  `json:"id"`    // stable numeric id
	Login string `json:"login"` // GitHub username
	Name  string `json:"name"`
	Email string `json:"email"` // empty when the user hides it
}

// GitHubProvider wraps the OAuth2 authorization-code flow against GitHub.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//
//  1. /auth/github/login redirects the browser to AuthURL(state), with the
//     same random state stored in a short-lived cookie.
//  2. The user approves the app on github.com.
//  3. GitHub redirects to the callback URL with ?code=...&state=...
//  4. The callback checks state against the cookie (CSRF protection), then
//     Exchange trades the code for an access token server-to-server and
//     reads the profile from the GitHub API.
//  5. The service links the profile to a local account and issues our own
//     JWT. The GitHub access token is discarded; foodgram never calls
//     GitHub on the user's behalf after sign-in.
//
// The client secret is only ever sent in step 4, from this server, so it
// never reaches the browser.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider builds a provider from the OAuth app credentials.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userURL: "https://api.github.com/user",
	}
}

// AuthURL returns the GitHub consent page URL. state must be random and
// is echoed back to the callback, where it is compared with the state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and fetches the
// GitHub profile with it.
//
// A code is single-use and expires after about ten minutes; replaying a
// callback URL fails here with an error from GitHub's token endpoint.
// The profile email is empty when the user keeps it private, in which
// case the service falls back to a noreply address.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, oauthToken).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}
	return &ghUser, nil
}
