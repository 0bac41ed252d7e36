package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api"

func (s *Server) apiAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if !s.authenticate(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *Server) registerAPIRoutes(engine *gin.Engine) {
	api := engine.Group(apiPrefix, s.apiAuthMiddleware())
	api.GET("/health", s.ginAPIHealth)
	api.GET("/actions", s.ginAPIActions)
	api.GET("/pending", s.ginAPIPending)
	api.GET("/tools", s.ginAPITools)
	api.POST("/invoke", s.ginAPIInvoke)
	api.GET("/schedules", s.ginAPISchedules)
	api.POST("/schedules/:name/run", s.ginAPIScheduleRun)
}

func (s *Server) ginAPIHealth(c *gin.Context) {
	used, limit := s.Relay.RateWindow()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"bridges": s.Conns.ListBridges(),
		"clients": s.Conns.ClientCount(),
		"pending": len(s.Relay.Pending()),
		"rate":    gin.H{"used": used, "limit": limit},
	})
}

func (s *Server) ginAPIActions(c *gin.Context) {
	c.JSON(http.StatusOK, s.actionsView())
}

func (s *Server) ginAPIPending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": s.Relay.Pending()})
}

func (s *Server) ginAPITools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.Tools.ListToolDefs()})
}

func (s *Server) ginAPIInvoke(c *gin.Context) {
	var body InvokeParams
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if body.Desc == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "desc required"})
		return
	}
	text, err := s.invoke(c.Request.Context(), body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (s *Server) ginAPISchedules(c *gin.Context) {
	if s.Scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []any{}, "runs": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": s.Scheduler.List(), "runs": s.Scheduler.Runs()})
}

func (s *Server) ginAPIScheduleRun(c *gin.Context) {
	if s.Scheduler == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "scheduler disabled"})
		return
	}
	if err := s.Scheduler.RunNow(c.Param("name")); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
