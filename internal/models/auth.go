package models

import (
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
)

// LoginRequest holds credentials submitted as JSON or a form. Empty fields
// are allowed through so they are rejected like any other bad credential.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"max=100"`
	Password string `json:"password" form:"password" validate:"max=1024"`
}

// AuthOutcome enumerates the results of a login attempt.
type AuthOutcome int

const (
	AuthAuthenticated AuthOutcome = iota
	AuthNoSuchIdentity
	AuthInactiveIdentity
	AuthInvalidCredential
)

func (o AuthOutcome) String() string {
	switch o {
	case AuthAuthenticated:
		return "authenticated"
	case AuthNoSuchIdentity:
		return "no_such_identity"
	case AuthInactiveIdentity:
		return "inactive_identity"
	case AuthInvalidCredential:
		return "invalid_credential"
	default:
		return "unknown"
	}
}

// AuthResult is the outcome of a login attempt. Identity is set only when
// Outcome is AuthAuthenticated.
type AuthResult struct {
	Outcome  AuthOutcome
	Identity *IdentitySnapshot
}

// Authenticated reports whether the login succeeded.
func (r *AuthResult) Authenticated() bool {
	return r != nil && r.Outcome == AuthAuthenticated && r.Identity != nil
}

// Err maps every rejection to the same externally visible error, so callers
// cannot tell an unknown user from a wrong password or a disabled account.
func (r *AuthResult) Err() error {
	if r.Authenticated() {
		return nil
	}
	return appErrors.ErrInvalidCredentials
}
