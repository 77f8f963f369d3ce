package core

// Challenge names used by the identity authority.
const (
	ChallengeSoftwareTokenMFA = "SOFTWARE_TOKEN_MFA"
	ChallengeMFASetup         = "MFA_SETUP"
)

// Credentials carry a single login attempt. They are never persisted.
type Credentials struct {
	Email    string
	Password string
}

// TokenSet is the bundle issued by the identity authority on successful
// authentication. ExpiresIn is the access lifetime in seconds.
type TokenSet struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RefreshedTokens is the result of a token refresh. The authority returns no
// new refresh token on this path; the original one remains usable.
type RefreshedTokens struct {
	IDToken     string
	AccessToken string
	ExpiresIn   int64
}

// UserProfile is the authority's view of the authenticated user, flattened
// from its attribute list into a name -> value mapping.
type UserProfile struct {
	Username   string            `json:"username"`
	Attributes map[string]string `json:"attributes"`
}

// SignUpResult is returned when the authority accepts a registration.
type SignUpResult struct {
	UserSub string
}

// EnrollmentSecret is returned by associate-software-mfa-token: the shared
// TOTP secret plus the continuation token for the follow-up verification.
type EnrollmentSecret struct {
	SecretCode string
	Session    string
}
