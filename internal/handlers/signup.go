package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/services"
)

type SignupHandler struct {
	otp    *services.OTPService
	config *config.Config
}

func NewSignupHandler(otp *services.OTPService, cfg *config.Config) *SignupHandler {
	return &SignupHandler{
		otp:    otp,
		config: cfg,
	}
}

type requestOTPRequest struct {
	Email    string `json:"email" binding:"required"`
	ClientID string `json:"clientId" binding:"required"`
}

// RequestOTP mails a fresh verification code to the address. A repeated
// request replaces the previous code.
func (h *SignupHandler) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and clientId are required"})
		return
	}

	err := h.otp.Request(c.Request.Context(), req.Email, req.ClientID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClientNotFound), errors.Is(err, services.ErrClientRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown client"})
		case errors.Is(err, services.ErrSignupNotPermitted):
			c.JSON(http.StatusForbidden, gin.H{"error": "client does not permit password signup"})
		case errors.Is(err, services.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		case errors.Is(err, services.ErrEmailRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		case errors.Is(err, services.ErrOTPDeliveryFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to send verification email"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request verification code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

type verifyOTPRequest struct {
	Email    string `json:"email" binding:"required"`
	OTP      string `json:"otp" binding:"required"`
	ClientID string `json:"clientId" binding:"required"`
}

// VerifyOTP checks the code, creates the account without a password, and
// hands back an onboarding token (also set as an httpOnly cookie). Password
// and profile are submitted later under that token.
func (h *SignupHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, otp, and clientId are required"})
		return
	}

	user, onboardingToken, err := h.otp.Verify(c.Request.Context(), services.VerifyRequest{
		Email:    req.Email,
		OTP:      req.OTP,
		ClientID: req.ClientID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClientNotFound), errors.Is(err, services.ErrClientRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown client"})
		case errors.Is(err, services.ErrOTPNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending verification for email"})
		case errors.Is(err, services.ErrOTPExpired):
			c.JSON(http.StatusGone, gin.H{"error": "verification code expired"})
		case errors.Is(err, services.ErrOTPInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "verification code does not match"})
		case errors.Is(err, services.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}

	setOnboardingCookie(c, h.config, onboardingToken)

	c.JSON(http.StatusCreated, gin.H{
		"user":            userResponse(user),
		"onboardingToken": onboardingToken,
	})
}
