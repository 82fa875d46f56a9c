package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Profile is a user account with its extended profile fields.
type Profile struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Fullname      string `json:"fullname"`
	Role          string `json:"role"`
	StudentID     string `json:"studentId"`
	Age           *int   `json:"age"`
	Course        string `json:"course"`
	Address       string `json:"address"`
	ContactNumber string `json:"contactNumber"`
	Birthdate     string `json:"birthdate"`
	BorrowedCount *int   `json:"borrowed_count,omitempty"`
}

// LoginResult is the credential issued at login.
type LoginResult struct {
	Token       string `json:"token"`
	IsSuperuser bool   `json:"is_superuser"`
}

// ErrInvalidCredentials is returned by Login on a bad username or password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Login exchanges a username and password for a token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var res LoginResult
	err := c.doJSON(ctx, http.MethodPost, c.url("auth", "login"), "", body, &res)
	if errors.Is(err, ErrUnauthorized) {
		return nil, ErrInvalidCredentials
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login: server returned no token")
	}
	return &res, nil
}

// GetProfile fetches the token user's profile.
func (c *Client) GetProfile(ctx context.Context, token string) (*Profile, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var p Profile
	if err := c.doJSON(ctx, http.MethodGet, c.url("auth", "profile"), token, nil, &p); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile replaces the token user's profile. The payload is a
// marshaler so callers go through a typed command rather than a loose map.
func (c *Client) UpdateProfile(ctx context.Context, token string, payload json.Marshaler) (*Profile, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var p Profile
	if err := c.doJSON(ctx, http.MethodPut, c.url("auth", "profile"), token, payload, &p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}

// ListUsers returns every account (admin).
func (c *Client) ListUsers(ctx context.Context, token string) ([]Profile, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var out []Profile
	if err := c.doJSON(ctx, http.MethodGet, c.url("auth", "users"), token, nil, &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if out == nil {
		out = []Profile{}
	}
	return out, nil
}
