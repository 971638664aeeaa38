// Package models holds the login request and token response.
package models

import (
	"strings"

	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/email"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || strings.TrimSpace(r.Password) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}
	return nil
}

// TokenResult is a bearer access token.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
