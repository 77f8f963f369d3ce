package ports

import (
	"context"

	"github.com/layer-3/vigil/core"
)

// InitiateAuthResult is the raw outcome of initiate-authentication: either a
// token set, or a named challenge with its continuation token.
type InitiateAuthResult struct {
	Tokens        *core.TokenSet
	ChallengeName string
	Session       string
}

// Identity is the black-box identity authority. Implementations own the user
// store, password verification, TOTP math, and token issuance; this interface
// only exposes the operations the session orchestrator consumes.
type Identity interface {
	// InitiateAuth starts a password authentication attempt.
	InitiateAuth(ctx context.Context, username, password string) (*InitiateAuthResult, error)

	// AssociateSoftwareToken provisions a TOTP secret for the pending
	// authentication attempt identified by session.
	AssociateSoftwareToken(ctx context.Context, session string) (*core.EnrollmentSecret, error)

	// VerifySoftwareToken confirms first-time enrollment with the user's
	// initial code. Returns the authority's status string.
	VerifySoftwareToken(ctx context.Context, session, userCode string) (string, error)

	// RespondToMFAChallenge answers a SOFTWARE_TOKEN_MFA challenge.
	RespondToMFAChallenge(ctx context.Context, session, username, code string) (*core.TokenSet, error)

	// RefreshTokens exchanges a refresh token for fresh id and access
	// tokens. The refresh token itself is not rotated.
	RefreshTokens(ctx context.Context, refreshToken string) (*core.RefreshedTokens, error)

	// GetUser resolves an access token to the user's profile.
	GetUser(ctx context.Context, accessToken string) (*core.UserProfile, error)

	// SignUp registers a new user.
	SignUp(ctx context.Context, email, password string) (*core.SignUpResult, error)

	// ConfirmSignUp completes registration with the emailed code.
	ConfirmSignUp(ctx context.Context, email, confirmationCode string) error
}

// VerifyStatusSuccess is the authority status confirming MFA enrollment.
const VerifyStatusSuccess = "SUCCESS"
