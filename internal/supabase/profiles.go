package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fahndung/backend/internal/models"
)

// GetUser validates a bearer token and returns the user it belongs to.
// With a configured JWT secret the token is verified locally, otherwise GoTrue is asked.
func (c *Client) GetUser(ctx context.Context, token string) (*models.User, error) {
	if c.verifier != nil {
		return c.verifier.Verify(token)
	}

	var user models.User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		token:  token,
	}, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.ID == "" {
		return nil, &Error{Kind: KindUnauthorized, Message: "token does not identify a user"}
	}

	return &user, nil
}

// GetProfile loads one row of user_profiles.
// A missing row or a row hidden by row-level security yields a KindPolicyDenied error (HTTP 406).
func (c *Client) GetProfile(ctx context.Context, token, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/" + profilesTable,
		query:   url.Values{"id": {"eq." + userID}, "select": {"*"}},
		token:   token,
		headers: map[string]string{"Accept": acceptSingleRow},
	}, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return withDefaultRole(&profile), nil
}

// UpdateProfile patches the caller's own profile row and returns the stored row
func (c *Client) UpdateProfile(ctx context.Context, token, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/" + profilesTable,
		query:  url.Values{"id": {"eq." + userID}},
		token:  token,
		headers: map[string]string{
			"Accept": acceptSingleRow,
			"Prefer": "return=representation",
		},
		body: update,
	}, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return withDefaultRole(&profile), nil
}

// withDefaultRole gives a row without role the lowest role
func withDefaultRole(profile *models.Profile) *models.Profile {
	if profile.Role == 0 {
		profile.Role = models.RoleUser
	}
	return profile
}
