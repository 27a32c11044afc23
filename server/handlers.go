package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/oauthclient"
	"github.com/dahromy/socialauth/provider"
	"google.golang.org/grpc/codes"
)

// ErrProviderNotConfigured is returned for providers without client
// credentials.
var ErrProviderNotConfigured = errors.NewC("provider is not configured", codes.NotFound)

// LoginResponse is returned by POST /login/google.
type LoginResponse struct {
	AccountID string `json:"accountId"`
	Outcome   string `json:"outcome"`
}

// LoginPageResponse is returned by GET /login.
type LoginPageResponse struct {
	Error     string   `json:"error,omitempty"`
	Providers []string `json:"providers"`
}

// IdentityResponse is returned by GET /identity.
type IdentityResponse struct {
	AccountID string   `json:"accountId"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	Provider  string   `json:"provider"`
}

func (s *Server) client(r *http.Request) (*oauthclient.Client, error) {
	p, err := provider.Parse(r.PathValue("service"))
	if err != nil {
		return nil, err
	}
	c, ok := s.clients[p]
	if !ok {
		return nil, errors.Mark(ErrProviderNotConfigured, 0).Append(p.String())
	}
	return c, nil
}

// GET /connect/{service}?return_to=/path
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) (string, error) {
	c, err := s.client(r)
	if err != nil {
		return "", err
	}
	state := s.states.Sign(c.Provider(), safeReturnTo(r.URL.Query().Get("return_to")))
	logging.Track(r.Context(), "provider", c.Provider().String())
	return c.AuthCodeURL(state), nil
}

// GET /oauth/check/{service}?code=...&state=...
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) (string, error) {
	ctx := r.Context()
	c, err := s.client(r)
	if err != nil {
		return "", err
	}
	logging.Track(ctx, "provider", c.Provider().String())

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		// The user declined consent or the provider refused the request.
		return "", errors.Codef(codes.Unauthenticated, "oauth: provider returned %s", e)
	}
	st, err := s.states.Verify(c.Provider(), q.Get("state"))
	if err != nil {
		return "", err
	}

	tok, err := c.Exchange(ctx, q.Get("code"))
	if err != nil {
		return "", err
	}
	raw, err := c.FetchUser(ctx, tok)
	if err != nil {
		return "", err
	}
	res, err := s.login(w, r, c.Provider(), raw)
	if err != nil {
		return "", err
	}
	logging.Track(ctx, "account_id", res.Account.ID)
	return safeReturnTo(st.ReturnTo), nil
}

// POST /login/google {"idtoken": "..."}
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) (any, error) {
	var body struct {
		IDToken string `json:"idtoken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.WithCode(err, codes.InvalidArgument)
	}

	c, ok := s.clients[provider.Google]
	if !ok {
		return nil, errors.Mark(ErrProviderNotConfigured, 0).Append(provider.Google.String())
	}
	raw, err := c.VerifyIDToken(r.Context(), body.IDToken)
	if err != nil {
		return nil, err
	}

	res, err := s.login(w, r, provider.Google, raw)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{AccountID: res.Account.ID, Outcome: res.Outcome.String()}, nil
}

// GET /login?error=...
func (s *Server) handleLoginPage(_ http.ResponseWriter, r *http.Request) (any, error) {
	resp := &LoginPageResponse{Error: r.URL.Query().Get("error"), Providers: []string{}}
	for _, p := range provider.All() {
		if _, ok := s.clients[p]; ok {
			resp.Providers = append(resp.Providers, p.String())
		}
	}
	return resp, nil
}

// GET /identity
func (s *Server) handleIdentity(_ http.ResponseWriter, r *http.Request) (any, error) {
	claims, err := s.sessions.FromRequest(r)
	if err != nil {
		return nil, err
	}
	return &IdentityResponse{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		Provider:  claims.Provider,
	}, nil
}

func handleHealth(_ http.ResponseWriter, _ *http.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

// login normalizes raw, resolves the account and sets the identity cookie.
func (s *Server) login(w http.ResponseWriter, r *http.Request, p provider.Name, raw provider.RawUser) (account.Resolution, error) {
	identity, err := provider.Normalize(p, raw)
	if err != nil {
		return account.Resolution{}, err
	}
	res, err := s.resolver.Resolve(r.Context(), identity)
	if err != nil {
		return account.Resolution{}, err
	}
	token, err := s.sessions.Token(r.Context(), res.Account, p)
	if err != nil {
		return account.Resolution{}, err
	}
	s.sessions.SetCookie(w, token)
	logging.Infow(r.Context(), "login succeeded", "provider", p, "account_id", res.Account.ID, "outcome", res.Outcome.String())
	return res, nil
}

// safeReturnTo only allows local absolute paths, so the login flow can't be
// used as an open redirect.
func safeReturnTo(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return "/"
	}
	return path
}
