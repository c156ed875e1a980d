package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goog1e-app/line-notify/internal/config"
	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/service"
	"github.com/goog1e-app/line-notify/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Server wires HTTP handlers for the relay.
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	tokenSvc  *service.TokenService
	notifySvc *service.NotifyService
	logSvc    *service.DeliveryLogService
	authSvc   *service.AuthService
	logger    zerolog.Logger
}

// New builds a server instance.
func New(cfg *config.Config, tokenSvc *service.TokenService, notifySvc *service.NotifyService, logSvc *service.DeliveryLogService, authSvc *service.AuthService, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:           cfg.HTTP.ReadTimeout,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		BodyLimit:             bodyLimit(cfg),
		AppName:               "line-notify-relay",
		DisableStartupMessage: true,
	})
	s := &Server{
		app:       app,
		cfg:       cfg,
		tokenSvc:  tokenSvc,
		notifySvc: notifySvc,
		logSvc:    logSvc,
		authSvc:   authSvc,
		logger:    logger.With().Str("component", "server").Logger(),
	}
	s.registerRoutes()
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.cfg.HTTP.Addr).Msg("relay listening")
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(recover.New())
	s.app.Use(s.accessLog)

	s.app.Get("/healthz", s.handleHealth)

	s.app.Post("/auth/login", s.handleLogin)
	s.app.Get("/auth/profile", s.handleProfile)

	// Pass-through: the caller's own bearer token is forwarded.
	s.app.Post("/api/notify", s.handleNotifyDirect)

	api := s.app.Group("/api", s.requireAuth)
	api.Post("/notify/:name", s.handleNotifyNamed)
	api.Post("/broadcast", s.handleBroadcast)

	api.Get("/tokens", s.handleTokenList)
	api.Post("/tokens", s.handleTokenRegister)
	api.Get("/tokens/:name", s.handleTokenGet)
	api.Delete("/tokens/:name", s.handleTokenDelete)
	api.Post("/tokens/:name/revoke", s.handleTokenRevoke)
	api.Post("/tokens/:name/activate", s.handleTokenActivate)

	api.Get("/logs", s.handleLogList)
	api.Get("/logs/count/date", s.handleLogCountDate)
	api.Get("/logs/count/status", s.handleLogCountStatus)
	api.Get("/logs/count/token", s.handleLogCountToken)
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("request")
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed login request"))
	}
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("authentication disabled", fiber.Map{
			"token":    "",
			"enabled":  false,
			"username": "guest",
		}))
	}
	token, err := s.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("logged in", fiber.Map{
		"token":    token,
		"enabled":  true,
		"username": s.authSvc.Username(),
	}))
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("ok", fiber.Map{"enabled": false, "username": "guest"}))
	}
	claims, err := s.authSvc.Validate(extractBearerToken(c.Get(fiber.HeaderAuthorization)))
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("session expired"))
	}
	return c.JSON(model.Success("ok", fiber.Map{"enabled": true, "username": claims.Username}))
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.Next()
	}
	token := extractBearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("login required"))
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("session expired"))
	}
	c.Locals("username", claims.Username)
	return c.Next()
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrTokenRevoked):
		status = http.StatusConflict
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	return c.Status(status).JSON(model.Error(err.Error()))
}

func bodyLimit(cfg *config.Config) int {
	// Leave room for form fields around the upload.
	if cfg.Notify.MaxUploadBytes <= 0 {
		return 11 << 20
	}
	return cfg.Notify.MaxUploadBytes + 1<<20
}

func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
