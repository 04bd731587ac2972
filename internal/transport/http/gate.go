package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/metrics"
)

// ContextKeySession is the gin context key holding the authenticated *core.Session.
const ContextKeySession = "session"

type sessionCtxKey struct{}

// Gate authenticates connection attempts before any handler runs.
type Gate struct {
	auth       *auth.Service
	cookieName string
	serverID   string
	log        *zerolog.Logger
	metrics    *metrics.Metrics
}

// NewGate creates a gate reading the token from cookieName.
func NewGate(authService *auth.Service, cookieName, serverID string, logger *zerolog.Logger, m *metrics.Metrics) *Gate {
	return &Gate{
		auth:       authService,
		cookieName: cookieName,
		serverID:   serverID,
		log:        logger,
		metrics:    m,
	}
}

// Admit returns an Authenticated session for r, or an error wrapping
// auth.ErrNoCredential or auth.ErrInvalidOrExpired.
func (g *Gate) Admit(r *http.Request) (*core.Session, error) {
	session := core.NewSession(g.serverID)

	id, err := g.verify(r)
	if err != nil {
		_ = session.Reject()
		g.metrics.AuthRejected()
		g.log.Debug().Err(err).Str("session_id", session.ID).Str("remote", r.RemoteAddr).Msg("connection rejected")
		return nil, err
	}

	if err := session.Authenticate(id); err != nil {
		return nil, err
	}
	return session, nil
}

func (g *Gate) verify(r *http.Request) (auth.Identity, error) {
	token, err := auth.TokenFromRequest(r, g.cookieName)
	if err != nil {
		return auth.Identity{}, err
	}
	return g.auth.Verify(token)
}

// Middleware rejects unauthenticated requests with 401 io:not_authenticated
// and stores the session in the gin context otherwise.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := g.Admit(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: core.ErrCodeNotAuthenticated})
			return
		}
		c.Set(ContextKeySession, session)
		c.Next()
	}
}

// Handler is Middleware for plain net/http handlers. Socket upgrades go
// through it because they hijack the connection, which gin's writer refuses
// once a status is recorded.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := g.Admit(r)
		if err != nil {
			writeNotAuthenticated(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey{}, session)))
	})
}

func writeNotAuthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: core.ErrCodeNotAuthenticated})
}

// SessionFromContext returns the session stored by Gate.Handler.
func SessionFromContext(ctx context.Context) (*core.Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(*core.Session)
	return s, ok
}
