package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/monitoring"
	"netmon-dashboard/pkg/config"
	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Server struct {
	config       *config.Config
	orchestrator *monitoring.Orchestrator
	router       *gin.Engine
}

func NewServer(cfg *config.Config, orch *monitoring.Orchestrator) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:       cfg,
		orchestrator: orch,
		router:       gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.corsMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api", s.timeoutMiddleware())
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.handleLogin)
			auth.POST("/register", s.handleRegister)
			auth.POST("/logout", s.handleLogout)
			auth.GET("/session", s.handleSession)
		}

		api.GET("/preferences", s.handleGetPreferences)
		api.PUT("/preferences", s.handleSavePreferences)
		api.DELETE("/errors", s.handleDismissError)

		secured := api.Group("", s.requireSession())

		secured.GET("/dashboard", s.handleDashboard)

		devices := secured.Group("/devices")
		{
			devices.GET("", s.handleListDevices)
			devices.POST("", s.handleCreateDevice)
			devices.POST("/refresh", s.handleRefreshDevices)
			devices.GET("/:deviceId", s.validateID("deviceId"), s.handleGetDevice)
			devices.PUT("/:deviceId", s.validateID("deviceId"), s.handleUpdateDevice)
			devices.DELETE("/:deviceId", s.validateID("deviceId"), s.handleDeleteDevice)
		}

		alerts := secured.Group("/alerts")
		{
			alerts.GET("", s.handleListAlerts)
			alerts.GET("/summary", s.handleAlertSummary)
			alerts.POST("/check", s.handleCheckAlerts)
			alerts.PUT("/:alertId/resolve", s.validateID("alertId"), s.handleResolveAlert)
		}

		network := secured.Group("/network")
		{
			network.GET("/live", s.handleLiveNetwork)
			network.GET("/poller", s.handlePollerStatus)
			network.POST("/poller/start", s.handleStartPoller)
			network.POST("/poller/stop", s.handleStopPoller)
		}

		scan := secured.Group("/scan")
		{
			scan.POST("", s.handleScan)
			scan.POST("/save", s.handleSaveScanned)
		}

		rep := secured.Group("/reports")
		{
			rep.GET("", s.handleListReports)
			rep.POST("", s.handleExportReport)
			rep.GET("/preview", s.handlePreviewReport)
			rep.GET("/download", s.handleDownloadReport)
		}
	}

	s.router.GET("/ws/live", s.handleWebSocketLive)
}

func (s *Server) validateID(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isValidID(c.Param(param)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param + " format"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func isValidID(id string) bool {
	matched, _ := regexp.MatchString("^[a-zA-Z0-9_.:-]{1,64}$", id)
	return matched
}

// requireSession rejects requests while no session is established, which
// sends presentation clients to the login view
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.orchestrator.GetStore().Authenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// fail maps err onto a status and the banner message. Backend failures are
// recorded as the session's dismissible error as well.
func (s *Server) fail(c *gin.Context, err error) {
	status, msg := backend.HTTPStatus(err), backend.Message(err)
	switch {
	case errors.Is(err, monitoring.ErrDeviceNotFound):
		status, msg = http.StatusNotFound, "device not found"
	case errors.Is(err, monitoring.ErrReportsDisabled):
		status, msg = http.StatusServiceUnavailable, "report export is not configured"
	default:
		s.orchestrator.ReportError(err)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			logger.Err(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ok, components := s.orchestrator.CheckHealth(ctx)
	health := gin.H{
		"status":     "healthy",
		"time":       time.Now().Format(time.RFC3339),
		"version":    "1.0.0",
		"components": components,
		"poller":     s.orchestrator.GetPoller().Status(),
	}
	if !ok {
		health["status"] = "degraded"
	}
	c.JSON(http.StatusOK, health)
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.Dashboard())
}

func (s *Server) handleListDevices(c *gin.Context) {
	dm := s.orchestrator.GetDeviceManager()
	if c.Query("fetch") == "true" {
		if _, err := dm.Fetch(c.Request.Context()); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, dm.Search(c.Query("q")))
}

func (s *Server) handleGetDevice(c *gin.Context) {
	d, err := s.orchestrator.GetDeviceManager().Get(c.Param("deviceId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleCreateDevice(c *gin.Context) {
	var req models.NewDevice
	if !s.bind(c, &req) {
		return
	}
	d, err := s.orchestrator.GetDeviceManager().Create(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) handleUpdateDevice(c *gin.Context) {
	var patch models.DevicePatch
	if !s.bind(c, &patch) {
		return
	}
	d, err := s.orchestrator.GetDeviceManager().Update(c.Request.Context(), c.Param("deviceId"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleDeleteDevice(c *gin.Context) {
	if err := s.orchestrator.GetDeviceManager().Delete(c.Request.Context(), c.Param("deviceId")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRefreshDevices(c *gin.Context) {
	res, err := s.orchestrator.RunRefresh(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	am := s.orchestrator.GetAlertManager()
	if c.Query("sync") != "false" {
		if _, err := am.Sync(c.Request.Context()); err != nil {
			s.fail(c, err)
			return
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	items, err := am.List(c.DefaultQuery("level", "all"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleAlertSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.GetAlertManager().Summary())
}

func (s *Server) handleCheckAlerts(c *gin.Context) {
	summary, err := s.orchestrator.GetAlertManager().Check(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleResolveAlert(c *gin.Context) {
	summary, err := s.orchestrator.GetAlertManager().Resolve(c.Request.Context(), c.Param("alertId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleLiveNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.GetLiveTracker().View())
}

func (s *Server) handlePollerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.GetPoller().Status())
}

func (s *Server) handleStartPoller(c *gin.Context) {
	started := s.orchestrator.StartPolling()
	c.JSON(http.StatusOK, gin.H{"changed": started, "status": s.orchestrator.GetPoller().Status()})
}

func (s *Server) handleStopPoller(c *gin.Context) {
	stopped := s.orchestrator.StopPolling()
	c.JSON(http.StatusOK, gin.H{"changed": stopped, "status": s.orchestrator.GetPoller().Status()})
}

type scanRequest struct {
	Subnet  string `json:"subnet"`
	Timeout int    `json:"timeout"`
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.orchestrator.GetDeviceManager().Scan(c.Request.Context(), req.Subnet, req.Timeout)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSaveScanned(c *gin.Context) {
	var req struct {
		IPAddress string `json:"ip_address"`
	}
	if !s.bind(c, &req) {
		return
	}
	d, err := s.orchestrator.GetDeviceManager().SaveScanned(c.Request.Context(), req.IPAddress)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) handleWebSocketLive(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", logger.Err(err))
		return
	}

	hello := gin.H{"session": s.orchestrator.Session()}
	if s.orchestrator.GetStore().Authenticated() {
		hello["dashboard"] = s.orchestrator.Dashboard()
		hello["live"] = s.orchestrator.GetLiveTracker().View()
	}
	s.orchestrator.GetHub().Serve(conn, hello)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", s.config.CORSOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func (s *Server) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
