package supabase

import (
	"errors"
	"fmt"

	"github.com/fahndung/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims of a Supabase access token
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates access tokens signed with the project's JWT secret
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for HS256 tokens
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify checks signature and expiry of an access token and returns the user it was issued to
func (v *TokenVerifier) Verify(tokenString string) (*models.User, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		kind := KindUnauthorized
		if errors.Is(err, jwt.ErrTokenExpired) {
			kind = KindExpired
		}
		return nil, &Error{Kind: kind, Err: fmt.Errorf("failed to parse token: %w", err)}
	}

	if !token.Valid {
		return nil, &Error{Kind: KindUnauthorized, Message: "token is invalid"}
	}

	if claims.Subject == "" {
		return nil, &Error{Kind: KindUnauthorized, Message: "sub not found in token"}
	}

	// Service role and anon keys are JWTs too but do not identify a user
	if claims.Role != "" && claims.Role != "authenticated" {
		return nil, &Error{Kind: KindUnauthorized, Message: "token is not a user token"}
	}

	return &models.User{ID: claims.Subject, Email: claims.Email}, nil
}
