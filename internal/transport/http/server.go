package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/metrics"
)

// Deps are the services the HTTP layer routes to.
type Deps struct {
	Hub     *core.Hub
	Tracker *core.Tracker
	Query   *core.Query
	Auth    *auth.Service
	Metrics *metrics.Metrics
}

// Server is the HTTP server plus the sockets it has hijacked, which
// http.Server.Shutdown does not track.
type Server struct {
	*stdhttp.Server
	sockets *WSHandler
}

// Shutdown stops accepting requests, then closes every socket and waits for
// its session to go offline.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Join(s.Server.Shutdown(ctx), s.sockets.Shutdown(ctx))
}

// NewServer builds the HTTP server and its routes. /ws is served outside
// gin so the upgrade can hijack the raw connection.
func NewServer(cfg *config.Config, deps Deps, logger *zerolog.Logger) *Server {
	gate := NewGate(deps.Auth, cfg.CookieName, cfg.ServerID, logger, deps.Metrics)
	ws := NewWSHandler(deps.Hub, deps.Tracker, deps.Query, cfg.MaxMessageBytes, cfg.EventsPerMinute, logger, deps.Metrics)
	api := NewAPIHandlers(deps.Auth, cfg.CookieName, int(cfg.JWTTTL.Seconds()), logger)
	users := NewUserHandlers(deps.Query, logger)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	apiGroup := router.Group("/api")
	apiGroup.POST("/register", api.Register)
	apiGroup.POST("/login", api.Login)
	apiGroup.POST("/logout", api.Logout)

	authed := apiGroup.Group("/users", gate.Middleware())
	authed.GET("/online", users.Online)
	authed.GET("/info", users.Info)

	mux := stdhttp.NewServeMux()
	mux.Handle("GET /ws", gate.Handler(ws))
	mux.Handle("/", router)

	return &Server{
		Server: &stdhttp.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		sockets: ws,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
