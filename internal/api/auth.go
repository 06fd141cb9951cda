package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"kanban-cli/internal/model"
)

// AuthResult is the login/register response. Some deployments return the user at the top
// level next to the token instead of nesting it.
type AuthResult struct {
	Token string
	User  model.User
}

type wireAuth struct {
	Token       string    `json:"token"`
	AccessToken string    `json:"accessToken"`
	User        *wireUser `json:"user"`
	wireUser
}

func (w wireAuth) result() AuthResult {
	tok := strings.TrimSpace(w.Token)
	if tok == "" {
		tok = strings.TrimSpace(w.AccessToken)
	}
	u := w.wireUser.model()
	if w.User != nil {
		u = w.User.model()
	}
	return AuthResult{Token: tok, User: u}
}

// Credentials carry login and registration input.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
	Username string `json:"username,omitempty"`
}

// ProfilePatch is the body of PUT /me.
type ProfilePatch struct {
	Username        *string `json:"username,omitempty"`
	Avatar          *string `json:"avatar,omitempty"`
	Password        *string `json:"password,omitempty"`
	ConfirmPassword *string `json:"confirmPassword,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out wireAuth
	body := map[string]any{"email": strings.TrimSpace(email), "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", nil, body, &out); err != nil {
		return AuthResult{}, err
	}
	return out.result(), nil
}

func (c *Client) Register(ctx context.Context, creds Credentials) (AuthResult, error) {
	var out wireAuth
	body := map[string]any{
		"email":    strings.TrimSpace(creds.Email),
		"password": creds.Password,
		"username": strings.TrimSpace(creds.Username),
	}
	if err := c.do(ctx, http.MethodPost, "/register", nil, body, &out); err != nil {
		return AuthResult{}, err
	}
	return out.result(), nil
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &raw); err != nil {
		return model.User{}, err
	}
	return decodeUser(raw)
}

func (c *Client) UpdateMe(ctx context.Context, patch ProfilePatch) (model.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/me", nil, patch, &raw); err != nil {
		return model.User{}, err
	}
	return decodeUser(raw)
}

// decodeUser accepts either a bare user object or {"user": {...}}.
func decodeUser(raw json.RawMessage) (model.User, error) {
	if len(raw) == 0 {
		return model.User{}, nil
	}
	var w wireAuth
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.User{}, err
	}
	return w.result().User, nil
}
