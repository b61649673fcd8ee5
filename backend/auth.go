package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// LoginRequest is the body posted to LoginPath.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type OTPSendRequest struct {
	Phone string `json:"phone"`
}

type OTPVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// AuthResult is what the session layer needs from an auth response.
//
// Token is empty when the backend succeeded without issuing a credential
// (for example OTP send, or registration that requires verification).
type AuthResult struct {
	Message string
	Token   string
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	return c.authCall(ctx, LoginPath, req)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	return c.authCall(ctx, RegisterPath, req)
}

// SendOTP asks the backend to deliver a one-time code.
func (c *Client) SendOTP(ctx context.Context, req OTPSendRequest) (AuthResult, error) {
	return c.authCall(ctx, OTPSendPath, req)
}

// VerifyOTP exchanges a one-time code for a token.
func (c *Client) VerifyOTP(ctx context.Context, req OTPVerifyRequest) (AuthResult, error) {
	return c.authCall(ctx, OTPVerifyPath, req)
}

// Logout asks the backend to invalidate token server side.
func (c *Client) Logout(ctx context.Context, token string) error {
	status, raw, err := c.do(ctx, http.MethodPost, LogoutPath, token, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apiError(status, raw)
	}
	return nil
}

// OAuthURL returns the browser entry point of the provider's OAuth flow.
// The backend redirects to the callback page with token and return_url once
// the provider round trip completes.
func (c *Client) OAuthURL(provider, returnURL string) string {
	u := c.baseURL + "/auth/" + url.PathEscape(provider)
	if returnURL == "" {
		return u
	}
	return u + "?" + url.Values{"return_url": {returnURL}}.Encode()
}

// authCall posts body and reads the success envelope.
//
// Only two facts are taken from a successful response: the message and the
// presence of a token, either under data.token or at the top level.
func (c *Client) authCall(ctx context.Context, path string, body any) (AuthResult, error) {
	status, raw, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return AuthResult{}, err
	}

	if status < 200 || status >= 300 || !gjson.ValidBytes(raw) {
		return AuthResult{}, apiError(status, raw)
	}

	doc := gjson.ParseBytes(raw)
	if ok := doc.Get("success"); ok.Exists() && !ok.Bool() {
		return AuthResult{}, apiError(status, raw)
	}

	token := doc.Get("data.token")
	if !token.Exists() {
		token = doc.Get("token")
	}

	return AuthResult{
		Message: doc.Get("message").String(),
		Token:   token.String(),
	}, nil
}
