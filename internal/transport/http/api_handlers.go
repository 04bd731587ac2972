package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
)

// APIHandlers provides the account endpoints that issue session cookies.
type APIHandlers struct {
	authService *auth.Service
	cookieName  string
	cookieTTL   int
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. cookieTTL is in
// seconds; zero issues a browser-session cookie.
func NewAPIHandlers(authService *auth.Service, cookieName string, cookieTTL int, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		cookieName:  cookieName,
		cookieTTL:   cookieTTL,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the public identity in API responses.
type UserResponse struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var registerMessages = map[error]string{
	auth.ErrRequiredFieldMissing: "Required field missing!",
	auth.ErrEmailPattern:         "Email is not valid!",
	auth.ErrPasswordPattern:      "Password should be 8 characters at least!",
	auth.ErrPasswordRepeat:       "Password repeat does not match!",
}

// Register handles user registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req auth.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		for target, msg := range registerMessages {
			if errors.Is(err, target) {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: target.Error(), Message: msg})
				return
			}
		}
		if errors.Is(err, auth.ErrUserExists) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: auth.ErrUserExists.Error(), Message: "User already exists!"})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("failed to register user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("email", user.Email).Msg("user registered successfully")
	c.JSON(http.StatusCreated, userResponse(auth.IdentityOf(user)))
}

// Login checks credentials and sets the HttpOnly session cookie.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, id, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: auth.ErrInvalidCredentials.Error(), Message: "Email or password is wrong!"})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, h.cookieTTL, "/", "", false, true)

	h.log.Info().Str("email", id.Email).Msg("user logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: userResponse(id)})
}

// Logout clears the session cookie.
// POST /api/logout
func (h *APIHandlers) Logout(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func userResponse(id auth.Identity) UserResponse {
	return UserResponse{
		Firstname: id.Firstname,
		Lastname:  id.Lastname,
		Email:     id.Email,
	}
}
