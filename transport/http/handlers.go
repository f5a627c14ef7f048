package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// userResponse is the user object returned by login and verify
type userResponse struct {
	ID         string `json:"id"`
	EnsName    string `json:"ensName"`
	Address    string `json:"address"`
	Balance    string `json:"balance,omitempty"`
	BalanceUSD string `json:"balanceUSD,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func newUserResponse(user *core.User, profile core.Profile) userResponse {
	return userResponse{
		ID:         user.ID,
		EnsName:    user.EnsName,
		Address:    user.Address,
		Balance:    profile.Balance,
		BalanceUSD: profile.BalanceUSD,
		Avatar:     profile.Avatar,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
}

// Nonce issues a brand-new challenge on every call
func (h *AuthHandlers) Nonce(c *gin.Context) {
	challenge, err := h.authService.CreateChallenge(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":     challenge.Value,
		"timestamp": strconv.FormatInt(challenge.IssuedAt.UnixMilli(), 10),
	})
}

// Login verifies a signed challenge and issues a session token
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		EnsName   string `json:"ensName" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Nonce     string `json:"nonce" binding:"required"`
		Timestamp string `json:"timestamp" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": core.ErrMissingFields.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), core.AuthRequest{
		EnsName:   req.EnsName,
		Signature: req.Signature,
		Nonce:     req.Nonce,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Internal server error"

		switch {
		case errors.Is(err, core.ErrMissingFields),
			errors.Is(err, core.ErrNonceInvalid),
			errors.Is(err, core.ErrTimestampExpired):
			// Actionable for the client: fetch a fresh nonce and retry
			status = http.StatusBadRequest
			msg = err.Error()
		case errors.Is(err, core.ErrInvalidSignature),
			errors.Is(err, core.ErrNotNameOwner):
			status = http.StatusUnauthorized
			msg = err.Error()
		case errors.Is(err, core.ErrUpstreamResolution):
			msg = err.Error()
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
		"user":    newUserResponse(result.User, result.Profile),
		"ensName": result.EnsName,
		"avatar":  result.Profile.Avatar,
	})
}

// Verify validates the bearer token and returns its user
func (h *AuthHandlers) Verify(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
		return
	}

	user, err := h.authService.VerifySession(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user":  newUserResponse(user, core.Profile{}),
	})
}

// Me returns the authenticated user set by the auth middleware
func (h *AuthHandlers) Me(c *gin.Context) {
	user, exists := c.Get(contextUserKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": newUserResponse(user.(*core.User), core.Profile{}),
	})
}

// Health reports service liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
