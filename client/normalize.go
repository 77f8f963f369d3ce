package client

// wireKeyAliases maps every field naming the authority or backend has been
// observed to use onto the client's camelCase convention. The pairs are fixed
// and explicit instead of a generic case transform so the mapping stays
// auditable; unknown keys pass through unchanged.
var wireKeyAliases = map[string]string{
	"id_token":          "idToken",
	"IdToken":           "idToken",
	"access_token":      "accessToken",
	"AccessToken":       "accessToken",
	"refresh_token":     "refreshToken",
	"RefreshToken":      "refreshToken",
	"expires_in":        "expiresIn",
	"ExpiresIn":         "expiresIn",
	"session":           "session",
	"Session":           "session",
	"message":           "message",
	"Message":           "message",
	"qr_code_url":       "qrCodeUrl",
	"QrCodeUrl":         "qrCodeUrl",
	"otpauth_url":       "otpauthUrl",
	"OtpauthUrl":        "otpauthUrl",
	"username":          "username",
	"Username":          "username",
	"user":              "user",
	"User":              "user",
	"valid":             "valid",
	"Valid":             "valid",
	"secret":            "secret",
	"SecretCode":        "secret",
	"user_sub":          "userSub",
	"UserSub":           "userSub",
	"error":             "error",
	"Error":             "error",
	"confirmation_code": "confirmationCode",
}

// normalizeKeys rewrites the top-level keys of a decoded wire payload onto
// the client convention.
func normalizeKeys(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if alias, ok := wireKeyAliases[k]; ok {
			k = alias
		}
		out[k] = v
	}
	return out
}
