package api

import (
	"context"
	"net/http"
	"net/url"

	"taskpilot-cli/internal/model"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Signup registers a new account. The account stays disabled until the
// emailed code is confirmed through Verify.
func (c *Client) Signup(ctx context.Context, creds Credentials) error {
	return c.do(ctx, http.MethodPost, "/auth/signup", creds, nil)
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify confirms the emailed code and returns a session token.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/verify", req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/verify/resend?email="+url.QueryEscape(email), nil, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &u)
	return u, err
}

// UserEnabled reports whether the account finished email verification.
// Usable without a token (the verify screen polls it before login).
func (c *Client) UserEnabled(ctx context.Context, email string) (bool, error) {
	var enabled bool
	err := c.do(ctx, http.MethodGet, "/users/enabled/"+url.PathEscape(email), nil, &enabled)
	return enabled, err
}

func (c *Client) MyPlan(ctx context.Context) (model.PlanUsage, error) {
	var p model.PlanUsage
	err := c.do(ctx, http.MethodGet, "/plans/me", nil, &p)
	return p, err
}
