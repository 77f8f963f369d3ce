package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/vigil/core"
	"github.com/layer-3/vigil/ports"
)

type fakeIdentity struct {
	initiate  func(username, password string) (*ports.InitiateAuthResult, error)
	associate func(session string) (*core.EnrollmentSecret, error)
	verify    func(session, userCode string) (string, error)
	respond   func(session, username, code string) (*core.TokenSet, error)
	refresh   func(refreshToken string) (*core.RefreshedTokens, error)
	getUser   func(accessToken string) (*core.UserProfile, error)
	signUp    func(email, password string) (*core.SignUpResult, error)
	confirm   func(email, code string) error
}

func (f *fakeIdentity) InitiateAuth(_ context.Context, username, password string) (*ports.InitiateAuthResult, error) {
	return f.initiate(username, password)
}

func (f *fakeIdentity) AssociateSoftwareToken(_ context.Context, session string) (*core.EnrollmentSecret, error) {
	return f.associate(session)
}

func (f *fakeIdentity) VerifySoftwareToken(_ context.Context, session, userCode string) (string, error) {
	return f.verify(session, userCode)
}

func (f *fakeIdentity) RespondToMFAChallenge(_ context.Context, session, username, code string) (*core.TokenSet, error) {
	return f.respond(session, username, code)
}

func (f *fakeIdentity) RefreshTokens(_ context.Context, refreshToken string) (*core.RefreshedTokens, error) {
	return f.refresh(refreshToken)
}

func (f *fakeIdentity) GetUser(_ context.Context, accessToken string) (*core.UserProfile, error) {
	return f.getUser(accessToken)
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password string) (*core.SignUpResult, error) {
	return f.signUp(email, password)
}

func (f *fakeIdentity) ConfirmSignUp(_ context.Context, email, code string) error {
	return f.confirm(email, code)
}

type recordingPublisher struct {
	kinds []string
}

func (p *recordingPublisher) PublishAuthEvent(_ context.Context, kind, _ string) error {
	p.kinds = append(p.kinds, kind)
	return nil
}

func testTokens() core.TokenSet {
	return core.TokenSet{
		IDToken:      "id-token",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    3600,
	}
}

func TestLoginIssuesTokensWithoutChallenge(t *testing.T) {
	tokens := testTokens()
	pub := &recordingPublisher{}
	svc := NewAuthService(&fakeIdentity{
		initiate: func(username, password string) (*ports.InitiateAuthResult, error) {
			assert.Equal(t, "a@b.com", username)
			assert.Equal(t, "secret1", password)
			return &ports.InitiateAuthResult{Tokens: &tokens}, nil
		},
	}, pub)

	outcome, err := svc.Login(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)

	issued, ok := outcome.(core.LoginTokens)
	require.True(t, ok, "expected a token outcome, got %T", outcome)
	assert.Equal(t, tokens, issued.Tokens)
	assert.Equal(t, []string{ports.EventLoginSucceeded}, pub.kinds)
}

func TestLoginSurfacesCodeChallenge(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		initiate: func(string, string) (*ports.InitiateAuthResult, error) {
			return &ports.InitiateAuthResult{
				ChallengeName: core.ChallengeSoftwareTokenMFA,
				Session:       "cont-1",
			}, nil
		},
	}, nil)

	outcome, err := svc.Login(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)

	challenge, ok := outcome.(core.LoginCodeChallenge)
	require.True(t, ok, "expected a code challenge, got %T", outcome)
	assert.Equal(t, "cont-1", challenge.Session)
	assert.Equal(t, "a@b.com", challenge.Username)
}

func TestLoginStartsEnrollment(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		initiate: func(string, string) (*ports.InitiateAuthResult, error) {
			return &ports.InitiateAuthResult{
				ChallengeName: core.ChallengeMFASetup,
				Session:       "cont-1",
			}, nil
		},
		associate: func(session string) (*core.EnrollmentSecret, error) {
			assert.Equal(t, "cont-1", session)
			return &core.EnrollmentSecret{SecretCode: "JBSWY3DPEHPK3PXP", Session: "cont-2"}, nil
		},
	}, nil)

	outcome, err := svc.Login(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)

	enrollment, ok := outcome.(core.LoginEnrollment)
	require.True(t, ok, "expected an enrollment challenge, got %T", outcome)
	assert.Equal(t, "cont-2", enrollment.Session)
	assert.Equal(t, "a@b.com", enrollment.Username)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", enrollment.SecretCode)
	assert.Equal(t, "otpauth://totp/AWSCognito:a@b.com?secret=JBSWY3DPEHPK3PXP&issuer=Cognito", enrollment.OtpauthURL)
	assert.True(t, strings.HasPrefix(enrollment.QRCodeURL, "data:image/png;base64,"))
}

func TestLoginEnrollmentWithoutSessionFails(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		initiate: func(string, string) (*ports.InitiateAuthResult, error) {
			return &ports.InitiateAuthResult{ChallengeName: core.ChallengeMFASetup}, nil
		},
	}, nil)

	_, err := svc.Login(context.Background(), "a@b.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, core.KindUnexpected, core.KindOf(err))
}

func TestLoginUnexpectedResponse(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		initiate: func(string, string) (*ports.InitiateAuthResult, error) {
			return &ports.InitiateAuthResult{ChallengeName: "CUSTOM_CHALLENGE"}, nil
		},
	}, nil)

	_, err := svc.Login(context.Background(), "a@b.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, core.KindUnexpected, core.KindOf(err))
}

func TestLoginValidatesInput(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		initiate: func(string, string) (*ports.InitiateAuthResult, error) {
			t.Fatal("no authority call expected for invalid input")
			return nil, nil
		},
	}, nil)

	for _, creds := range []core.Credentials{
		{Email: "", Password: "secret1"},
		{Email: "a@b.com", Password: ""},
		{},
	} {
		_, err := svc.Login(context.Background(), creds.Email, creds.Password)
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	}
}

func TestVerifyMFACode(t *testing.T) {
	tokens := testTokens()
	svc := NewAuthService(&fakeIdentity{
		respond: func(session, username, code string) (*core.TokenSet, error) {
			assert.Equal(t, "cont-1", session)
			assert.Equal(t, "a@b.com", username)
			assert.Equal(t, "123456", code)
			return &tokens, nil
		},
	}, nil)

	got, err := svc.VerifyMFACode(context.Background(), "cont-1", "123456", "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, tokens, *got)
}

func TestVerifyMFACodeValidatesInput(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{}, nil)

	_, err := svc.VerifyMFACode(context.Background(), "", "123456", "a@b.com")
	assert.Equal(t, core.KindBadRequest, core.KindOf(err))

	_, err = svc.VerifyMFACode(context.Background(), "cont-1", "", "a@b.com")
	assert.Equal(t, core.KindBadRequest, core.KindOf(err))

	_, err = svc.VerifyMFACode(context.Background(), "cont-1", "123456", "")
	assert.Equal(t, core.KindBadRequest, core.KindOf(err))
}

func TestRegisterMFAConfirmsEnrollmentWithoutTokens(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewAuthService(&fakeIdentity{
		verify: func(session, userCode string) (string, error) {
			assert.Equal(t, "cont-2", session)
			assert.Equal(t, "123456", userCode)
			return ports.VerifyStatusSuccess, nil
		},
	}, pub)

	require.NoError(t, svc.RegisterMFA(context.Background(), "cont-2", "123456"))
	assert.Equal(t, []string{ports.EventMFAEnrolled}, pub.kinds)
}

func TestRegisterMFARejectsNonSuccessStatus(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		verify: func(string, string) (string, error) {
			return "ERROR", nil
		},
	}, nil)

	err := svc.RegisterMFA(context.Background(), "cont-2", "999999")
	require.Error(t, err)
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))
}

func TestSetupMFAUsesSessionAsLabel(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		associate: func(string) (*core.EnrollmentSecret, error) {
			return &core.EnrollmentSecret{SecretCode: "SECRET1", Session: "cont-2"}, nil
		},
	}, nil)

	secret, otpauthURL, err := svc.SetupMFA(context.Background(), "cont-1")
	require.NoError(t, err)
	assert.Equal(t, "SECRET1", secret.SecretCode)
	assert.Equal(t, "otpauth://totp/AWSCognito:cont-1?secret=SECRET1&issuer=Cognito", otpauthURL)
}

func TestRefreshPassesThroughAuthorityFailure(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		refresh: func(string) (*core.RefreshedTokens, error) {
			return nil, core.Unauthorized("refresh token failed")
		},
	}, nil)

	_, err := svc.Refresh(context.Background(), "stale-token")
	require.Error(t, err)
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))
}

func TestValidateFlattensProfile(t *testing.T) {
	svc := NewAuthService(&fakeIdentity{
		getUser: func(accessToken string) (*core.UserProfile, error) {
			assert.Equal(t, "access-token", accessToken)
			return &core.UserProfile{
				Username:   "a@b.com",
				Attributes: map[string]string{"email": "a@b.com"},
			}, nil
		},
	}, nil)

	profile, err := svc.Validate(context.Background(), "access-token")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", profile.Attributes["email"])
}

func TestConfirmSignUpPublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewAuthService(&fakeIdentity{
		confirm: func(email, code string) error {
			assert.Equal(t, "a@b.com", email)
			assert.Equal(t, "654321", code)
			return nil
		},
	}, pub)

	require.NoError(t, svc.ConfirmSignUp(context.Background(), "a@b.com", "654321"))
	assert.Equal(t, []string{ports.EventSignUpComplete}, pub.kinds)
}

func TestAuthorityErrorsKeepClassification(t *testing.T) {
	cause := errors.New("wire failure")
	svc := NewAuthService(&fakeIdentity{
		initiate: func(string, string) (*ports.InitiateAuthResult, error) {
			return nil, core.WrapError(core.KindTransport, "initiate auth unreachable", cause)
		},
	}, nil)

	_, err := svc.Login(context.Background(), "a@b.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, core.KindTransport, core.KindOf(err))
	assert.ErrorIs(t, err, cause)
}
