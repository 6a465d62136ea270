package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"netmon-dashboard/internal/telemetry"
	"netmon-dashboard/pkg/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPayload struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	User         telemetry.RawRecord `json:"user"`
}

// credentials reads the token pair from the top level of the envelope,
// falling back to data for backends that nest it.
func credentials(resp *response) (models.Credentials, error) {
	var p tokenPayload
	top, err := json.Marshal(resp.Fields)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to read token payload: %w", err)
	}
	if err := decode(top, &p); err != nil {
		return models.Credentials{}, err
	}
	if p.AccessToken == "" {
		if err := decode(resp.Data(), &p); err != nil {
			return models.Credentials{}, err
		}
	}
	if p.AccessToken == "" {
		return models.Credentials{}, &APIError{StatusCode: resp.StatusCode, Message: "no access token in response"}
	}
	return models.Credentials{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		User:         telemetry.NormalizeUser(p.User),
	}, nil
}

// Login exchanges a username and password for a token pair
func (c *Client) Login(ctx context.Context, username, password string) (models.Credentials, error) {
	if err := required("username", strings.TrimSpace(username)); err != nil {
		return models.Credentials{}, err
	}
	if err := required("password", password); err != nil {
		return models.Credentials{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": strings.TrimSpace(username),
		"password": password,
	})
	if err != nil {
		return models.Credentials{}, err
	}
	return credentials(resp)
}

// Register creates a viewer account. It does not sign in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := required("username", req.Username); err != nil {
		return nil, err
	}
	if err := required("email", req.Email); err != nil {
		return nil, err
	}
	if err := required("password", req.Password); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/register", req)
	if err != nil {
		return nil, err
	}
	return userFrom(resp)
}

// Refresh trades a refresh token for a new token pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	if err := required("refresh_token", refreshToken); err != nil {
		return models.Credentials{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return models.Credentials{}, err
	}
	return credentials(resp)
}

// Me returns the user owning the current token
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	return userFrom(resp)
}

func userFrom(resp *response) (*models.User, error) {
	raw, ok := resp.Fields["user"]
	if !ok {
		raw = resp.Data()
	}
	var rec telemetry.RawRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "no user in response"}
	}
	return telemetry.NormalizeUser(rec), nil
}
