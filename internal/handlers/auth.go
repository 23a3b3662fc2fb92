package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"survey-app-server/internal/middleware"
	"survey-app-server/internal/models"
	"survey-app-server/internal/services"
	"survey-app-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthService is the credential flow used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (*models.User, error)
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Auth AuthService
	// SecureCookies marks the refresh cookie Secure; off in development.
	SecureCookies bool
	// RefreshMaxAge is the refresh cookie lifetime in seconds.
	RefreshMaxAge int
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth AuthService, secureCookies bool, refreshMaxAge int) *AuthHandler {
	return &AuthHandler{Auth: auth, SecureCookies: secureCookies, RefreshMaxAge: refreshMaxAge}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,hasdigit"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	pair, user, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken, h.RefreshMaxAge)
	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken exchanges a refresh token for a new token pair. The token is
// read from the refresh cookie first, then from the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		HandleError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken, h.RefreshMaxAge)
	utils.Success(c, "Access token refreshed successfully", pair)
}

// Logout revokes the caller's refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), userID); err != nil {
		HandleError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	user, err := h.Auth.Profile(c.Request.Context(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(refreshCookie, value, maxAge, "/", "", h.SecureCookies, true)
}
