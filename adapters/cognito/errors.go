package cognito

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/layer-3/vigil/core"
)

// classify maps Cognito SDK failures onto the core taxonomy so nothing above
// the adapter ever sees a raw AWS error shape.
func classify(op string, err error) error {
	var (
		notAuthorized    *types.NotAuthorizedException
		userNotFound     *types.UserNotFoundException
		userNotConfirmed *types.UserNotConfirmedException
		codeMismatch     *types.CodeMismatchException
		expiredCode      *types.ExpiredCodeException
		usernameExists   *types.UsernameExistsException
		invalidPassword  *types.InvalidPasswordException
		invalidParameter *types.InvalidParameterException
	)

	switch {
	case errors.As(err, &notAuthorized),
		errors.As(err, &userNotFound),
		errors.As(err, &userNotConfirmed),
		errors.As(err, &codeMismatch),
		errors.As(err, &expiredCode):
		return core.WrapError(core.KindUnauthorized, op+" rejected", err)

	case errors.As(err, &usernameExists),
		errors.As(err, &invalidPassword),
		errors.As(err, &invalidParameter):
		return core.WrapError(core.KindConflict, op+" refused by authority", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return core.WrapError(core.KindUnexpected, op+" failed", err)
	}

	// No API error shape at all: the authority was unreachable.
	return core.WrapError(core.KindTransport, op+" unreachable", err)
}
