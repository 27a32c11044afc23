// Package oauthclient talks to the OAuth2 providers: it builds the consent
// redirect, exchanges authorization codes and fetches the raw user document
// that provider.Normalize consumes.
package oauthclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/provider"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/instagram"
	"google.golang.org/grpc/codes"
)

var (
	// ErrExchange is returned when an authorization code is rejected.
	ErrExchange = errors.NewC("oauth: token exchange failed", codes.Unauthenticated).WithPublicMessage("could not verify your account")

	// ErrUserInfo is returned when the provider's user document can't be
	// fetched or decoded.
	ErrUserInfo = errors.NewC("oauth: failed to fetch user info", codes.Unavailable)
)

type endpoints struct {
	auth      oauth2.Endpoint
	userInfo  string
	emails    string
	authParam []oauth2.AuthCodeOption
}

var providerEndpoints = map[provider.Name]endpoints{
	provider.GitHub: {
		auth:     github.Endpoint,
		userInfo: "https://api.github.com/user",
		emails:   "https://api.github.com/user/emails",
	},
	provider.Google: {
		auth:     google.Endpoint,
		userInfo: "https://www.googleapis.com/oauth2/v3/userinfo",
		authParam: []oauth2.AuthCodeOption{
			oauth2.AccessTypeOnline,
			oauth2.SetAuthURLParam("prompt", "select_account"),
		},
	},
	provider.Facebook: {
		auth:     facebook.Endpoint,
		userInfo: "https://graph.facebook.com/me?fields=id,name,email",
	},
	provider.Instagram: {
		auth:     instagram.Endpoint,
		userInfo: "https://graph.instagram.com/me?fields=id,username",
	},
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the provider's authorization and token URLs.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(c *Client) {
		c.conf.Endpoint = e
	}
}

// WithUserInfoURL overrides where the user document is fetched from.
func WithUserInfoURL(u string) Option {
	return func(c *Client) {
		c.userInfoURL = u
	}
}

// WithEmailsURL overrides the GitHub email listing endpoint.
func WithEmailsURL(u string) Option {
	return func(c *Client) {
		c.emailsURL = u
	}
}

// WithHTTPClient sets the client used for token exchange and API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithScopes replaces the default scopes requested for the provider.
func WithScopes(scopes ...string) Option {
	return func(c *Client) {
		c.conf.Scopes = scopes
	}
}

// Client is an OAuth2 client for a single provider.
type Client struct {
	provider    provider.Name
	conf        *oauth2.Config
	userInfoURL string
	emailsURL   string
	authParams  []oauth2.AuthCodeOption
	httpClient  *http.Client
}

// New returns a client for p. redirectURL must be the absolute URL of the
// callback handler registered with the provider.
func New(p provider.Name, clientID, clientSecret, redirectURL string, opts ...Option) (*Client, error) {
	ep, ok := providerEndpoints[p]
	if !ok {
		return nil, errors.Mark(provider.ErrUnsupportedProvider, 0).Append(p.String())
	}
	if clientID == "" || clientSecret == "" {
		return nil, errors.Codef(codes.FailedPrecondition, "oauth: %s client credentials are not configured", p)
	}
	c := &Client{
		provider: p,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     ep.auth,
			RedirectURL:  redirectURL,
			Scopes:       provider.Scopes(p),
		},
		userInfoURL: ep.userInfo,
		emailsURL:   ep.emails,
		authParams:  ep.authParam,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() provider.Name {
	return c.provider
}

// AuthCodeURL returns the consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state, c.authParams...)
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.Mark(ErrExchange, 0).Append("missing authorization code")
	}
	logging.Infow(ctx, "oauth: starting token exchange", "redirect_url", c.conf.RedirectURL)
	tok, err := c.conf.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, errors.Errorf("%w: %w", errors.Mark(ErrExchange, 0), err)
	}
	return tok, nil
}

// FetchUser returns the provider's user document for tok. For GitHub a null
// email is replaced by the primary verified address.
func (c *Client) FetchUser(ctx context.Context, tok *oauth2.Token) (provider.RawUser, error) {
	hc := c.conf.Client(c.withHTTPClient(ctx), tok)

	body, err := c.get(ctx, hc, c.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := provider.DecodeRawUser(body)
	if err != nil {
		return nil, err
	}

	if c.provider == provider.GitHub && isBlank(raw["email"]) && c.emailsURL != "" {
		email, err := c.primaryEmail(ctx, hc)
		if err != nil {
			return nil, err
		}
		if email != "" {
			raw["email"] = email
		}
	}
	return raw, nil
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (c *Client) primaryEmail(ctx context.Context, hc *http.Client) (string, error) {
	body, err := c.get(ctx, hc, c.emailsURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var emails []githubEmail
	if err := json.NewDecoder(body).Decode(&emails); err != nil {
		return "", errors.Errorf("%w: %w", errors.Mark(ErrUserInfo, 0), err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Errorf("%w: %w", errors.Mark(ErrUserInfo, 0), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, errors.Errorf("%w: %w", errors.Mark(ErrUserInfo, 0), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		logging.Warnw(ctx, "oauth: unexpected user info status", "provider", c.provider, "status", resp.StatusCode)
		return nil, errors.Mark(ErrUserInfo, 0).Append(http.StatusText(resp.StatusCode))
	}
	return resp.Body, nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return v == nil || ok && strings.TrimSpace(s) == ""
}
