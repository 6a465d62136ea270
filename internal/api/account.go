package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/reports"
	"netmon-dashboard/internal/storage"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}
	user, err := s.orchestrator.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "session": s.orchestrator.Session()})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req backend.RegisterRequest
	if !s.bind(c, &req) {
		return
	}
	user, err := s.orchestrator.Register(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.orchestrator.Logout(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.orchestrator.Session())
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.Session())
}

func (s *Server) handleDismissError(c *gin.Context) {
	s.orchestrator.GetStore().ClearError()
	c.Status(http.StatusNoContent)
}

type preferencesResponse struct {
	storage.Preferences
	RTL bool `json:"rtl"`
}

func (s *Server) handleGetPreferences(c *gin.Context) {
	p, err := s.orchestrator.Preferences(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preferencesResponse{Preferences: p, RTL: p.RTL()})
}

func (s *Server) handleSavePreferences(c *gin.Context) {
	var req storage.Preferences
	if !s.bind(c, &req) {
		return
	}
	p, err := s.orchestrator.SavePreferences(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preferencesResponse{Preferences: p, RTL: p.RTL()})
}

type exportRequest struct {
	Period string `json:"period"`
	Format string `json:"format"`
}

func (s *Server) handleExportReport(c *gin.Context) {
	var req exportRequest
	if !s.bind(c, &req) {
		return
	}
	period, err := reports.ParsePeriod(req.Period)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var format reports.Format
	if req.Format != "" {
		if format, err = reports.ParseFormat(req.Format); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	name, err := s.orchestrator.RunReportExport(c.Request.Context(), period, format)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"object": name, "period": period})
}

func (s *Server) handlePreviewReport(c *gin.Context) {
	period, err := reports.ParsePeriod(c.DefaultQuery("period", string(reports.Daily)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.orchestrator.BuildReport(period))
}

func (s *Server) handleListReports(c *gin.Context) {
	period := c.Query("period")
	if period != "" {
		p, err := reports.ParsePeriod(period)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		period = string(p)
	}
	list, err := s.orchestrator.ListReports(c.Request.Context(), period)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleDownloadReport(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	body, err := s.orchestrator.DownloadReport(c.Request.Context(), name)
	if err != nil {
		s.fail(c, err)
		return
	}
	contentType := "application/json"
	if strings.HasSuffix(name, ".csv.gz") {
		contentType = "text/csv"
	}
	c.Data(http.StatusOK, contentType, body)
}

