package cognito

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/layer-3/vigil/core"
	"github.com/layer-3/vigil/ports"
)

// API is the subset of the Cognito SDK client this adapter consumes.
type API interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, opts ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	AssociateSoftwareToken(ctx context.Context, in *cip.AssociateSoftwareTokenInput, opts ...func(*cip.Options)) (*cip.AssociateSoftwareTokenOutput, error)
	VerifySoftwareToken(ctx context.Context, in *cip.VerifySoftwareTokenInput, opts ...func(*cip.Options)) (*cip.VerifySoftwareTokenOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, opts ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, opts ...func(*cip.Options)) (*cip.GetUserOutput, error)
	SignUp(ctx context.Context, in *cip.SignUpInput, opts ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, opts ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
}

// Client implements the Identity interface against an AWS Cognito user pool
type Client struct {
	api      API
	clientID string
}

// NewClient creates a new Cognito identity adapter
func NewClient(api API, clientID string) ports.Identity {
	return &Client{api: api, clientID: clientID}
}

// InitiateAuth starts a USER_PASSWORD_AUTH flow
func (c *Client) InitiateAuth(ctx context.Context, username, password string) (*ports.InitiateAuthResult, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
		ClientId: aws.String(c.clientID),
	})
	if err != nil {
		return nil, classify("initiate auth", err)
	}

	result := &ports.InitiateAuthResult{
		ChallengeName: string(out.ChallengeName),
		Session:       aws.ToString(out.Session),
	}
	if out.AuthenticationResult != nil && out.AuthenticationResult.IdToken != nil {
		result.Tokens = tokenSet(out.AuthenticationResult)
	}
	return result, nil
}

// AssociateSoftwareToken provisions a TOTP secret for the pending attempt
func (c *Client) AssociateSoftwareToken(ctx context.Context, session string) (*core.EnrollmentSecret, error) {
	out, err := c.api.AssociateSoftwareToken(ctx, &cip.AssociateSoftwareTokenInput{
		Session: aws.String(session),
	})
	if err != nil {
		return nil, classify("associate software token", err)
	}
	if aws.ToString(out.SecretCode) == "" {
		return nil, core.Unexpected("failed to associate software token")
	}
	return &core.EnrollmentSecret{
		SecretCode: aws.ToString(out.SecretCode),
		Session:    aws.ToString(out.Session),
	}, nil
}

// VerifySoftwareToken confirms first-time enrollment with the user's code
func (c *Client) VerifySoftwareToken(ctx context.Context, session, userCode string) (string, error) {
	out, err := c.api.VerifySoftwareToken(ctx, &cip.VerifySoftwareTokenInput{
		Session:  aws.String(session),
		UserCode: aws.String(userCode),
	})
	if err != nil {
		return "", classify("verify software token", err)
	}
	return string(out.Status), nil
}

// RespondToMFAChallenge answers a SOFTWARE_TOKEN_MFA challenge
func (c *Client) RespondToMFAChallenge(ctx context.Context, session, username, code string) (*core.TokenSet, error) {
	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName: types.ChallengeNameTypeSoftwareTokenMfa,
		ClientId:      aws.String(c.clientID),
		ChallengeResponses: map[string]string{
			"USERNAME":                username,
			"SOFTWARE_TOKEN_MFA_CODE": code,
		},
		Session: aws.String(session),
	})
	if err != nil {
		return nil, classify("respond to challenge", err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == nil {
		return nil, core.Unauthorized("invalid authentication result")
	}
	ts := tokenSet(out.AuthenticationResult)
	return ts, nil
}

// RefreshTokens runs a REFRESH_TOKEN_AUTH flow. Cognito does not return a
// new refresh token here; the original stays valid.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*core.RefreshedTokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
		ClientId: aws.String(c.clientID),
	})
	if err != nil {
		return nil, classify("refresh tokens", err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == nil {
		return nil, core.Unauthorized("refresh token failed")
	}
	return &core.RefreshedTokens{
		IDToken:     aws.ToString(out.AuthenticationResult.IdToken),
		AccessToken: aws.ToString(out.AuthenticationResult.AccessToken),
		ExpiresIn:   int64(out.AuthenticationResult.ExpiresIn),
	}, nil
}

// GetUser resolves an access token to the user's flattened profile
func (c *Client) GetUser(ctx context.Context, accessToken string) (*core.UserProfile, error) {
	out, err := c.api.GetUser(ctx, &cip.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return nil, classify("get user", err)
	}

	attrs := make(map[string]string, len(out.UserAttributes))
	for _, attr := range out.UserAttributes {
		attrs[aws.ToString(attr.Name)] = aws.ToString(attr.Value)
	}
	return &core.UserProfile{
		Username:   aws.ToString(out.Username),
		Attributes: attrs,
	}, nil
}

// SignUp registers a new user with the email attribute set
func (c *Client) SignUp(ctx context.Context, email, password string) (*core.SignUpResult, error) {
	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return nil, classify("sign up", err)
	}
	return &core.SignUpResult{UserSub: aws.ToString(out.UserSub)}, nil
}

// ConfirmSignUp completes registration with the emailed code
func (c *Client) ConfirmSignUp(ctx context.Context, email, confirmationCode string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(confirmationCode),
	})
	if err != nil {
		return classify("confirm sign up", err)
	}
	return nil
}

func tokenSet(result *types.AuthenticationResultType) *core.TokenSet {
	return &core.TokenSet{
		IDToken:      aws.ToString(result.IdToken),
		AccessToken:  aws.ToString(result.AccessToken),
		RefreshToken: aws.ToString(result.RefreshToken),
		ExpiresIn:    int64(result.ExpiresIn),
	}
}
