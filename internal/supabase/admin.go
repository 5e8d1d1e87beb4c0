package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fahndung/backend/internal/models"
)

// ListProfiles returns all staff profiles, newest first
func (c *Client) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	req, err := c.serviceRequest(request{
		method: http.MethodGet,
		path:   "/rest/v1/" + profilesTable,
		query:  url.Values{"select": {"*"}, "order": {"created_at.desc"}},
	})
	if err != nil {
		return nil, err
	}

	var profiles []models.Profile
	if err := c.do(ctx, req, &profiles); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	for i := range profiles {
		withDefaultRole(&profiles[i])
	}

	return profiles, nil
}

// UpdateProfileRole sets the role of a profile and returns the stored row
func (c *Client) UpdateProfileRole(ctx context.Context, userID string, role models.Role) (*models.Profile, error) {
	req, err := c.serviceRequest(request{
		method: http.MethodPatch,
		path:   "/rest/v1/" + profilesTable,
		query:  url.Values{"id": {"eq." + userID}},
		headers: map[string]string{
			"Accept": acceptSingleRow,
			"Prefer": "return=representation",
		},
		body: map[string]any{"role": role, "updated_at": c.now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := c.do(ctx, req, &profile); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return withDefaultRole(&profile), nil
}

// UpsertProfile creates a profile row or merges into the existing one
func (c *Client) UpsertProfile(ctx context.Context, user models.User, name string, role models.Role) error {
	req, err := c.serviceRequest(request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + profilesTable,
		headers: map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"},
		body: map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  name,
			"role":  role,
		},
	})
	if err != nil {
		return err
	}

	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// CreateUser creates a confirmed identity with a password
func (c *Client) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	req, err := c.serviceRequest(request{
		method: http.MethodPost,
		path:   "/auth/v1/admin/users",
		body: map[string]any{
			"email":         email,
			"password":      password,
			"email_confirm": true,
		},
	})
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// DeleteUser removes the identity and its profile row
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	profileReq, err := c.serviceRequest(request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + profilesTable,
		query:  url.Values{"id": {"eq." + userID}},
	})
	if err != nil {
		return err
	}
	if err := c.do(ctx, profileReq, nil); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	userReq, err := c.serviceRequest(request{
		method: http.MethodDelete,
		path:   "/auth/v1/admin/users/" + url.PathEscape(userID),
	})
	if err != nil {
		return err
	}
	if err := c.do(ctx, userReq, nil); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
