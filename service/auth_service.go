package service

import (
	"context"
	"fmt"

	"github.com/layer-3/vigil/core"
	"github.com/layer-3/vigil/ports"
)

// Default otpauth issuer naming, kept stable for already-enrolled
// authenticator apps.
const (
	DefaultIssuer      = "Cognito"
	DefaultIssuerLabel = "AWSCognito"
)

// AuthService drives the authentication state machine against the identity
// authority. It holds no session state of its own; persistence belongs to the
// client-side session manager.
type AuthService struct {
	identity ports.Identity
	eventPub ports.EventPublisher

	issuer      string
	issuerLabel string
}

// NewAuthService creates a new authentication service
func NewAuthService(identity ports.Identity, eventPub ports.EventPublisher) *AuthService {
	return &AuthService{
		identity:    identity,
		eventPub:    eventPub,
		issuer:      DefaultIssuer,
		issuerLabel: DefaultIssuerLabel,
	}
}

// WithIssuer overrides the otpauth issuer naming
func (s *AuthService) WithIssuer(issuer, issuerLabel string) *AuthService {
	s.issuer = issuer
	s.issuerLabel = issuerLabel
	return s
}

// Login starts a password authentication attempt. One call terminates three
// ways: a token set, a code challenge for an enrolled user, or an enrollment
// challenge carrying the freshly associated secret and its otpauth artifacts.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.LoginOutcome, error) {
	if email == "" || password == "" {
		return nil, core.BadRequest("Email and password are required.")
	}

	res, err := s.identity.InitiateAuth(ctx, email, password)
	if err != nil {
		return nil, err
	}

	switch {
	case res.Tokens != nil:
		s.publish(ctx, ports.EventLoginSucceeded, email)
		return core.LoginTokens{Tokens: *res.Tokens}, nil

	case res.ChallengeName == core.ChallengeSoftwareTokenMFA:
		return core.LoginCodeChallenge{Session: res.Session, Username: email}, nil

	case res.ChallengeName == core.ChallengeMFASetup:
		return s.startEnrollment(ctx, res.Session, email)
	}

	return nil, core.Unexpected("Unexpected authentication response.")
}

// startEnrollment associates a software token for the pending attempt and
// builds the artifacts the user needs to enroll their authenticator.
func (s *AuthService) startEnrollment(ctx context.Context, session, email string) (core.LoginOutcome, error) {
	if session == "" {
		return nil, core.Unexpected("Session is required for MFA setup.")
	}

	secret, err := s.identity.AssociateSoftwareToken(ctx, session)
	if err != nil {
		return nil, err
	}

	otpauthURL := s.otpauthURL(email, secret.SecretCode)
	qrCodeURL, err := qrCodeDataURL(otpauthURL)
	if err != nil {
		return nil, core.WrapError(core.KindUnexpected, "Failed to render QR code.", err)
	}

	return core.LoginEnrollment{
		Session:    secret.Session,
		Username:   email,
		SecretCode: secret.SecretCode,
		OtpauthURL: otpauthURL,
		QRCodeURL:  qrCodeURL,
	}, nil
}

// VerifyMFACode answers a SOFTWARE_TOKEN_MFA challenge with the user's
// one-time code and returns the issued token set.
func (s *AuthService) VerifyMFACode(ctx context.Context, session, code, username string) (*core.TokenSet, error) {
	if session == "" || code == "" || username == "" {
		return nil, core.BadRequest("Session, MFA code, and username are required.")
	}

	tokens, err := s.identity.RespondToMFAChallenge(ctx, session, username, code)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ports.EventLoginSucceeded, username)
	return tokens, nil
}

// RegisterMFA confirms first-time enrollment. The authority issues no tokens
// on this path; the user must authenticate again afterwards.
func (s *AuthService) RegisterMFA(ctx context.Context, session, code string) error {
	if session == "" || code == "" {
		return core.BadRequest("Session and MFA code are required.")
	}

	status, err := s.identity.VerifySoftwareToken(ctx, session, code)
	if err != nil {
		return err
	}
	if status != ports.VerifyStatusSuccess {
		return core.Unauthorized("Invalid MFA code. Please try again.")
	}

	s.publish(ctx, ports.EventMFAEnrolled, "")
	return nil
}

// SetupMFA re-associates a software token from a bare continuation token.
// The continuation token doubles as the otpauth account label here; callers
// that know the username should prefer the enrollment branch of Login.
func (s *AuthService) SetupMFA(ctx context.Context, session string) (*core.EnrollmentSecret, string, error) {
	if session == "" {
		return nil, "", core.BadRequest("Session is required for MFA setup.")
	}

	secret, err := s.identity.AssociateSoftwareToken(ctx, session)
	if err != nil {
		return nil, "", err
	}

	return secret, s.otpauthURL(session, secret.SecretCode), nil
}

// Refresh exchanges a refresh token for fresh id and access tokens
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*core.RefreshedTokens, error) {
	if refreshToken == "" {
		return nil, core.BadRequest("Refresh token is required.")
	}

	return s.identity.RefreshTokens(ctx, refreshToken)
}

// Validate resolves an access token to the user's profile
func (s *AuthService) Validate(ctx context.Context, accessToken string) (*core.UserProfile, error) {
	if accessToken == "" {
		return nil, core.BadRequest("Token is required.")
	}

	return s.identity.GetUser(ctx, accessToken)
}

// SignUp registers a new user
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*core.SignUpResult, error) {
	if email == "" || password == "" {
		return nil, core.BadRequest("Email and password are required.")
	}

	return s.identity.SignUp(ctx, email, password)
}

// ConfirmSignUp completes registration with the emailed confirmation code
func (s *AuthService) ConfirmSignUp(ctx context.Context, email, confirmationCode string) error {
	if email == "" || confirmationCode == "" {
		return core.BadRequest("Email and confirmation code are required.")
	}

	if err := s.identity.ConfirmSignUp(ctx, email, confirmationCode); err != nil {
		return err
	}

	s.publish(ctx, ports.EventSignUpComplete, email)
	return nil
}

func (s *AuthService) publish(ctx context.Context, kind, username string) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.PublishAuthEvent(ctx, kind, username); err != nil {
		// The auth operation already succeeded; the event stream is
		// best-effort.
		fmt.Printf("Warning: Failed to publish auth event: %v\n", err)
	}
}
