package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/iitd"
	"github.com/bsw-iitd/auth-server/internal/services"
)

type IITDHandler struct {
	federation *services.FederationService
	config     *config.Config
}

func NewIITDHandler(federation *services.FederationService, cfg *config.Config) *IITDHandler {
	return &IITDHandler{
		federation: federation,
		config:     cfg,
	}
}

// Redirect validates the requesting client and sends the browser to the IITD
// authorization endpoint with the flow state round-tripped.
func (h *IITDHandler) Redirect(c *gin.Context) {
	clientID := c.Query("client_id")
	redirectURI := c.Query("redirect_uri")
	requestedRole := c.Query("role")

	if clientID == "" || redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "client_id and redirect_uri are required",
		})
		return
	}

	authURL, err := h.federation.BeginLogin(clientID, redirectURI, requestedRole)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClientNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown client"})
		case errors.Is(err, services.ErrFederationNotPermitted):
			c.JSON(http.StatusForbidden, gin.H{"error": "client does not permit federated login"})
		case errors.Is(err, services.ErrRedirectNotAllowed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "redirect URI not allowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to begin federated login"})
		}
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the federated login. Failures never render an error in
// place; the browser is sent to the unauthorised page with a machine-readable
// reason.
func (h *IITDHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	rawState := c.Query("state")

	if code == "" || rawState == "" {
		h.failRedirect(c, "missing_code_or_state")
		return
	}

	result, err := h.federation.CompleteLogin(
		c.Request.Context(),
		code,
		rawState,
		c.Request.UserAgent(),
		c.ClientIP(),
	)
	if err != nil {
		h.failRedirect(c, callbackErrorCode(err))
		return
	}

	setAuthCookies(c, h.config, result.Tokens)

	redirect, err := redirectWithToken(result.State.RedirectURI, result.Tokens.AccessToken, "")
	if err != nil {
		h.failRedirect(c, "invalid_redirect")
		return
	}

	c.Redirect(http.StatusFound, redirect)
}

func (h *IITDHandler) failRedirect(c *gin.Context, reason string) {
	target := h.config.FrontendURL + "/unauthorised?error=" + url.QueryEscape(reason)
	c.Redirect(http.StatusFound, target)
}

func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, iitd.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, services.ErrClientNotFound):
		return "unknown_client"
	case errors.Is(err, services.ErrFederationNotPermitted):
		return "federation_not_permitted"
	case errors.Is(err, services.ErrRedirectNotAllowed):
		return "redirect_not_allowed"
	case errors.Is(err, iitd.ErrExchangeFailed):
		return "exchange_failed"
	case errors.Is(err, iitd.ErrProfileFetch), errors.Is(err, iitd.ErrInvalidProfile):
		return "profile_fetch_failed"
	default:
		return "login_failed"
	}
}
