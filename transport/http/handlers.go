package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/vigil/core"
	"github.com/layer-3/vigil/service"
)

// AuthHandlers contains HTTP handlers for the identity-flow endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// Login handles the password authentication request. The response shape
// discriminates the three outcomes by its message field, which the frontend
// branches on; the strings are load-bearing.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	outcome, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	switch o := outcome.(type) {
	case core.LoginTokens:
		c.JSON(http.StatusOK, gin.H{
			"idToken":      o.Tokens.IDToken,
			"accessToken":  o.Tokens.AccessToken,
			"refreshToken": o.Tokens.RefreshToken,
			"expiresIn":    o.Tokens.ExpiresIn,
		})
	case core.LoginCodeChallenge:
		c.JSON(http.StatusOK, gin.H{
			"message": "SOFTWARE_TOKEN_MFA required",
			"session": o.Session,
		})
	case core.LoginEnrollment:
		c.JSON(http.StatusOK, gin.H{
			"message":    "MFA required",
			"session":    o.Session,
			"qrCodeUrl":  o.QRCodeURL,
			"otpauthUrl": o.OtpauthURL,
			"username":   o.Username,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Unexpected authentication response."})
	}
}

// VerifyMFA answers a SOFTWARE_TOKEN_MFA challenge
func (h *AuthHandlers) VerifyMFA(c *gin.Context) {
	var req struct {
		Session  string `json:"session"`
		MFACode  string `json:"mfaCode"`
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	tokens, err := h.authService.VerifyMFACode(c.Request.Context(), req.Session, req.MFACode, req.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"idToken":      tokens.IDToken,
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"expiresIn":    tokens.ExpiresIn,
	})
}

// RegisterMFA confirms first-time enrollment. No tokens are issued; the user
// logs in again afterwards.
func (h *AuthHandlers) RegisterMFA(c *gin.Context) {
	var req struct {
		Session string `json:"session"`
		MFACode string `json:"mfaCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	if err := h.authService.RegisterMFA(c.Request.Context(), req.Session, req.MFACode); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "MFA setup verified successfully. Please log in again."})
}

// SetupMFA re-associates a software token from a bare continuation token
func (h *AuthHandlers) SetupMFA(c *gin.Context) {
	var req struct {
		Session string `json:"session"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	secret, otpauthURL, err := h.authService.SetupMFA(c.Request.Context(), req.Session)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret":     secret.SecretCode,
		"otpauthUrl": otpauthURL,
	})
}

// Refresh exchanges a refresh token for fresh id and access tokens
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"idToken":     tokens.IDToken,
		"accessToken": tokens.AccessToken,
		"expiresIn":   tokens.ExpiresIn,
	})
}

// Validate resolves an access token to the user's profile
func (h *AuthHandlers) Validate(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	user, err := h.authService.Validate(c.Request.Context(), req.Token)
	if err != nil {
		if core.KindOf(err) == core.KindBadRequest {
			c.JSON(http.StatusBadRequest, gin.H{"message": core.MessageOf(err)})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": core.MessageOf(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "user": user})
}

// SignUp registers a new user
func (h *AuthHandlers) SignUp(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	result, err := h.authService.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User registered successfully.",
		"userSub": result.UserSub,
	})
}

// ConfirmSignUp completes registration with the emailed code
func (h *AuthHandlers) ConfirmSignUp(c *gin.Context) {
	var req struct {
		Email            string `json:"email"`
		ConfirmationCode string `json:"confirmationCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	if err := h.authService.ConfirmSignUp(c.Request.Context(), req.Email, req.ConfirmationCode); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verification successful."})
}

// Me returns the authenticated user's profile. The profile is resolved by
// the auth middleware.
func (h *AuthHandlers) Me(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// writeError maps the core taxonomy onto the fixed status contract:
// 400 bad request or validation, 401 auth failure, 500 everything else.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch core.KindOf(err) {
	case core.KindBadRequest, core.KindConflict:
		status = http.StatusBadRequest
	case core.KindUnauthorized:
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"message": core.MessageOf(err)})
}
