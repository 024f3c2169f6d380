package httpapi

import (
	"context"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facetrack/internal/attendance"
	"facetrack/internal/auth"
	"facetrack/internal/avatar"
	"facetrack/internal/clock"
	"facetrack/internal/detection"
	"facetrack/internal/identity"
	"facetrack/internal/logging"
	"facetrack/internal/metrics"
	"facetrack/internal/session"
)

// InvalidCredentialsMessage is shown for every failed login.
const InvalidCredentialsMessage = "Invalid credentials. Use demo123 as password."

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Config holds the token settings of the shell.
type Config struct {
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
}

// Server composes the session manager and the detection loop behind gin.
type Server struct {
	cfg        Config
	sessions   *session.Manager
	scanner    *detection.Loop
	attendance *attendance.Table
	avatars    *avatar.Resolver
	metrics    *metrics.Metrics
	clock      clock.Clock
	logger     *slog.Logger
	health     map[string]HealthCheck
}

// Deps are the collaborators a Server routes to.
type Deps struct {
	Sessions   *session.Manager
	Scanner    *detection.Loop
	Attendance *attendance.Table
	Avatars    *avatar.Resolver
	Metrics    *metrics.Metrics
	Clock      clock.Clock
	Logger     *slog.Logger
	Health     map[string]HealthCheck
}

// New builds a Server.
func New(cfg Config, deps Deps) *Server {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 12 * time.Hour
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	return &Server{
		cfg:        cfg,
		sessions:   deps.Sessions,
		scanner:    deps.Scanner,
		attendance: deps.Attendance,
		avatars:    deps.Avatars,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		logger:     logging.Or(deps.Logger).With("component", "httpapi"),
		health:     deps.Health,
	}
}

// Register mounts every route on r.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	v1.GET("/session", s.getSession)
	v1.POST("/session/login", s.login)
	v1.POST("/session/register", s.register)

	authed := v1.Group("", auth.Required(s.cfg.JWTSigningKey, s.cfg.JWTIssuer, s.verify))
	authed.POST("/session/logout", s.logout)
	authed.GET("/scanner", s.getScanner)
	authed.POST("/scanner/start", s.startScanner)
	authed.POST("/scanner/stop", s.stopScanner)
	authed.POST("/scanner/confirm", s.confirm)
	authed.GET("/scanner/frame.png", s.frame)
	authed.GET("/attendance", s.listAttendance)
	authed.GET("/dashboard/stats", s.stats)
}

// verify accepts a token only while its subject is the logged-in identity.
func (s *Server) verify(_ *gin.Context, claims auth.Claims) bool {
	snap := s.sessions.Snapshot()
	return snap.Authenticated && snap.Identity != nil && snap.Identity.ID == claims.Subject
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, body)
}

func (s *Server) withAvatar(id identity.Identity) identity.Identity {
	id.Avatar = s.avatars.Resolve(id.Avatar)
	return id
}

func (s *Server) sessionView() session.Session {
	snap := s.sessions.Snapshot()
	if snap.Identity != nil {
		id := s.withAvatar(*snap.Identity)
		snap.Identity = &id
	}
	return snap
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.sessionView())
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, msg := loginError(err)
		s.metrics.Logins.WithLabelValues(loginResult(err)).Inc()
		c.JSON(status, gin.H{"error": msg})
		return
	}
	s.metrics.Logins.WithLabelValues("success").Inc()

	tok, err := auth.Issue(id, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.clock.Now())
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":         s.withAvatar(id),
		"access_token": tok.AccessToken,
		"expires_at":   tok.ExpiresAt.Unix(),
	})
}

func loginError(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrAuthenticationFailed):
		return http.StatusUnauthorized, InvalidCredentialsMessage
	case errors.Is(err, session.ErrRestoring):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, session.ErrLoginInProgress),
		errors.Is(err, session.ErrAlreadyAuthenticated),
		errors.Is(err, session.ErrLoginCancelled):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "login aborted"
	default:
		return http.StatusInternalServerError, "login failed"
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, session.ErrAuthenticationFailed):
		return "rejected"
	case errors.Is(err, session.ErrRestoring),
		errors.Is(err, session.ErrLoginInProgress),
		errors.Is(err, session.ErrAlreadyAuthenticated),
		errors.Is(err, session.ErrLoginCancelled):
		return "conflict"
	default:
		return "error"
	}
}

// logout also stops the scanner, as leaving the shell releases the camera.
func (s *Server) logout(c *gin.Context) {
	s.scanner.Stop()
	s.metrics.ScannerRunning.Set(0)
	s.sessions.Logout(c.Request.Context())
	c.JSON(http.StatusOK, s.sessionView())
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		Email      string `json:"email" binding:"required"`
		Password   string `json:"password" binding:"required"`
		Role       string `json:"role"`
		Department string `json:"department"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := identity.Role(req.Role)
	if role == "" {
		role = identity.RoleEmployee
	}
	candidate := identity.Identity{
		Name:       req.Name,
		Email:      req.Email,
		Role:       role,
		Department: req.Department,
	}
	err := s.sessions.Register(c.Request.Context(), candidate)
	if errors.Is(err, session.ErrRegistrationUnsupported) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "registration aborted"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) scannerView() detection.Snapshot {
	snap := s.scanner.Snapshot()
	if snap.Event != nil {
		snap.Event.Identity = s.withAvatar(snap.Event.Identity)
	}
	if snap.Confirmation != nil {
		snap.Confirmation.Identity = s.withAvatar(snap.Confirmation.Identity)
	}
	return snap
}

func (s *Server) getScanner(c *gin.Context) {
	c.JSON(http.StatusOK, s.scannerView())
}

func (s *Server) startScanner(c *gin.Context) {
	s.scanner.Start(c.Request.Context())
	s.metrics.ScannerRunning.Set(1)
	c.JSON(http.StatusOK, s.scannerView())
}

func (s *Server) stopScanner(c *gin.Context) {
	s.scanner.Stop()
	s.metrics.ScannerRunning.Set(0)
	c.JSON(http.StatusOK, s.scannerView())
}

func (s *Server) confirm(c *gin.Context) {
	var req struct {
		EventID string `json:"event_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conf, err := s.scanner.Confirm(req.EventID)
	if errors.Is(err, detection.ErrStaleConfirmation) {
		s.metrics.StaleConfirmations.Inc()
		c.JSON(http.StatusOK, gin.H{"confirmed": false})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	conf.Identity = s.withAvatar(conf.Identity)
	c.JSON(http.StatusOK, gin.H{"confirmed": true, "confirmation": conf})
}

func (s *Server) frame(c *gin.Context) {
	img, source, err := s.scanner.Frame(c.Request.Context())
	if errors.Is(err, detection.ErrNotRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Warn("frame capture failed", "error", err, "source", source)
		c.JSON(http.StatusBadGateway, gin.H{"error": "frame unavailable"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Feed-Source", string(source))
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, img); err != nil {
		s.logger.Warn("frame encode failed", "error", err)
	}
}

func (s *Server) listAttendance(c *gin.Context) {
	f := attendance.Filter{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		Department: c.Query("department"),
	}
	rows := s.attendance.List(f)
	c.JSON(http.StatusOK, gin.H{
		"records":     rows,
		"summary":     attendance.Summarize(rows),
		"departments": s.attendance.Departments(),
	})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, attendance.DemoStats)
}
