package models

import "time"

// User is the authenticated identity as reported by the identity backend
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the staff profile row stored in the user_profiles table
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department *string   `json:"department,omitempty"`
	Phone      *string   `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileUpdate holds the fields a user may change on their own profile
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// Empty reports whether the update changes nothing
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Department == nil && u.Phone == nil
}

// Session is the authenticated identity plus its optional profile.
// A nil Profile means the profile row is missing or unreadable; the session stays authenticated.
type Session struct {
	User    User     `json:"user"`
	Profile *Profile `json:"profile"`
}

// Role returns the effective role of the session. Sessions without a profile act as RoleUser.
func (s *Session) Role() Role {
	if s == nil {
		return 0
	}
	if s.Profile == nil || !s.Profile.Role.Valid() {
		return RoleUser
	}
	return s.Profile.Role
}

// AuthSession is the token set issued by the identity backend
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expired reports whether the access token is expired at the given time
func (a *AuthSession) Expired(now time.Time) bool {
	return a.ExpiresAt != 0 && now.Unix() >= a.ExpiresAt
}

// AuthEvent is an auth-state change notification
type AuthEvent string

const (
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEvent = "USER_UPDATED"
)
