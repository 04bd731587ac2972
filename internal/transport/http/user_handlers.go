package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/core"
)

// UserHandlers exposes the socket queries over plain HTTP for non-socket clients.
type UserHandlers struct {
	query *core.Query
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(query *core.Query, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		query: query,
		log:   logger,
	}
}

// Online lists identities currently in the presence store.
// GET /api/users/online
func (h *UserHandlers) Online(c *gin.Context) {
	ids, err := h.query.ListOnline(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to list online users")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeUnavailable})
		return
	}

	response := make([]UserResponse, 0, len(ids))
	for _, id := range ids {
		response = append(response, userResponse(id))
	}
	c.JSON(http.StatusOK, response)
}

// Info looks a user up by email.
// GET /api/users/info?email=alice@x.com
func (h *UserHandlers) Info(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrCodeBadRequest, Message: "email is required"})
		return
	}

	id, err := h.query.Info(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
			return
		}
		h.log.Error().Err(err).Str("lookup", email).Msg("failed to look up user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, userResponse(*id))
}
