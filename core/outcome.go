package core

// LoginOutcome is the result of starting a login. A single initiate call can
// terminate three structurally different ways, so the outcome is a sealed
// variant rather than one struct with optional fields: callers switch on the
// concrete type and cannot forget to check which branch they got.
type LoginOutcome interface {
	loginOutcome()
}

// LoginTokens means the authority issued a full token set with no challenge.
type LoginTokens struct {
	Tokens TokenSet
}

// LoginCodeChallenge means the user is already enrolled and must supply a
// one-time code. Session is the authority's continuation token.
type LoginCodeChallenge struct {
	Session  string
	Username string
}

// LoginEnrollment means the authority demands first-time MFA setup. The
// secret has already been associated; the caller presents the otpauth URI
// (or its QR rendering) and collects the first code.
type LoginEnrollment struct {
	Session    string
	Username   string
	SecretCode string
	OtpauthURL string
	QRCodeURL  string
}

func (LoginTokens) loginOutcome()        {}
func (LoginCodeChallenge) loginOutcome() {}
func (LoginEnrollment) loginOutcome()    {}
