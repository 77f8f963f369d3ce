// Package client is the consumer side of the auth backend: a thin HTTP
// client for the identity-flow endpoints plus the durable session cache that
// backs the login state machine between process restarts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/layer-3/vigil/core"
	"github.com/layer-3/vigil/ports"
)

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the auth backend and feeds the session manager. Token
// responses are saved before the call returns, so a caller observing success
// always finds a valid session.
type Client struct {
	baseURL string
	http    Doer

	// Session is the durable session cache fed by this client.
	Session *SessionManager
}

// New creates a client for the backend at baseURL, caching session state in
// kv.
func New(baseURL string, kv ports.KV) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	c.Session = NewSessionManager(kv, c)
	return c
}

// WithHTTPClient overrides the transport
func (c *Client) WithHTTPClient(d Doer) *Client {
	c.http = d
	return c
}

// Login starts a password authentication attempt and classifies the
// response into one of the three outcomes. Token outcomes are persisted;
// challenge outcomes mirror their transient artifacts into the store so an
// interrupted enrollment can resume.
func (c *Client) Login(ctx context.Context, email, password string) (core.LoginOutcome, error) {
	data, err := c.post(ctx, "/mfa/auth", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	switch str(data, "message") {
	case "SOFTWARE_TOKEN_MFA required":
		// Only the continuation token is mirrored on this branch; the
		// qr/otpauth/username keys belong to the enrollment branch.
		session := str(data, "session")
		if err := c.Session.StoreEnrollment(ctx, session, "", "", ""); err != nil {
			return nil, err
		}
		return core.LoginCodeChallenge{Session: session, Username: email}, nil

	case "MFA required":
		enrollment := core.LoginEnrollment{
			Session:    str(data, "session"),
			Username:   str(data, "username"),
			OtpauthURL: str(data, "otpauthUrl"),
			QRCodeURL:  str(data, "qrCodeUrl"),
			SecretCode: secretFromOtpauthURL(str(data, "otpauthUrl")),
		}
		err := c.Session.StoreEnrollment(ctx,
			enrollment.Session, enrollment.QRCodeURL, enrollment.OtpauthURL, enrollment.Username)
		if err != nil {
			return nil, err
		}
		return enrollment, nil
	}

	tokens, ok := tokenSetFrom(data)
	if !ok {
		return nil, core.Unexpected("Unexpected login response.")
	}
	if err := c.Session.Save(ctx, tokens); err != nil {
		return nil, err
	}
	return core.LoginTokens{Tokens: tokens}, nil
}

// VerifyCode answers a SOFTWARE_TOKEN_MFA challenge and persists the issued
// session.
func (c *Client) VerifyCode(ctx context.Context, session, code, username string) (*core.TokenSet, error) {
	data, err := c.post(ctx, "/mfa/verify", map[string]string{
		"session":  session,
		"mfaCode":  code,
		"username": username,
	})
	if err != nil {
		return nil, err
	}

	tokens, ok := tokenSetFrom(data)
	if !ok {
		return nil, core.Unexpected("Unexpected verification response.")
	}
	if err := c.Session.Save(ctx, tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// RegisterMFA confirms first-time enrollment. No session is written; the
// authority requires a fresh login afterwards.
func (c *Client) RegisterMFA(ctx context.Context, session, code string) error {
	_, err := c.post(ctx, "/mfa/register", map[string]string{
		"session": session,
		"mfaCode": code,
	})
	return err
}

// SignUp registers a new user and returns the authority's user identifier.
func (c *Client) SignUp(ctx context.Context, email, password string) (string, error) {
	data, err := c.post(ctx, "/mfa/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	return str(data, "userSub"), nil
}

// ConfirmEmail completes registration with the emailed code.
func (c *Client) ConfirmEmail(ctx context.Context, email, confirmationCode string) error {
	_, err := c.post(ctx, "/mfa/email-verification", map[string]string{
		"email":            email,
		"confirmationCode": confirmationCode,
	})
	return err
}

// RefreshTokens exchanges a refresh token for fresh id and access tokens.
// Used by the session manager's refresh funnel.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*core.RefreshedTokens, error) {
	data, err := c.post(ctx, "/mfa/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		return nil, err
	}

	idToken := str(data, "idToken")
	accessToken := str(data, "accessToken")
	expiresIn, ok := num(data, "expiresIn")
	if idToken == "" || accessToken == "" || !ok {
		return nil, core.Unexpected("Unexpected refresh response.")
	}
	return &core.RefreshedTokens{
		IDToken:     idToken,
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	}, nil
}

// FetchUser resolves an access token to the user's profile.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*core.UserProfile, error) {
	data, err := c.post(ctx, "/mfa/validate", map[string]string{
		"token": accessToken,
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data["user"])
	if err != nil {
		return nil, core.Unexpected("Unexpected validation response.")
	}
	var profile core.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, core.Unexpected("Unexpected validation response.")
	}
	return &profile, nil
}

// Logout drops the local session. The refresh token stays valid on the
// authority side; only the local cache is cleared.
func (c *Client) Logout(ctx context.Context) error {
	return c.Session.Clear(ctx)
}

// post issues a JSON POST and decodes the normalized response payload.
// Non-2xx statuses come back as classified errors carrying the backend's
// message verbatim.
func (c *Client) post(ctx context.Context, path string, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, core.WrapError(core.KindUnexpected, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, core.WrapError(core.KindUnexpected, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, core.WrapError(core.KindTransport, "auth backend unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.KindTransport, "failed to read response", err)
	}

	data := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, core.Unexpected("Unexpected response from auth backend.")
		}
	}
	data = normalizeKeys(data)

	if resp.StatusCode != http.StatusOK {
		msg := str(data, "message")
		if msg == "" {
			msg = str(data, "error")
		}
		if msg == "" {
			msg = "Request failed."
		}
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return nil, core.BadRequest(msg)
		case http.StatusUnauthorized:
			return nil, core.Unauthorized(msg)
		default:
			return nil, core.Unexpected(msg)
		}
	}
	return data, nil
}

func tokenSetFrom(data map[string]any) (core.TokenSet, bool) {
	expiresIn, ok := num(data, "expiresIn")
	tokens := core.TokenSet{
		IDToken:      str(data, "idToken"),
		AccessToken:  str(data, "accessToken"),
		RefreshToken: str(data, "refreshToken"),
		ExpiresIn:    expiresIn,
	}
	if !ok || tokens.IDToken == "" || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return core.TokenSet{}, false
	}
	return tokens, true
}

func secretFromOtpauthURL(otpauthURL string) string {
	u, err := url.Parse(otpauthURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("secret")
}

func str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func num(data map[string]any, key string) (int64, bool) {
	f, ok := data[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
