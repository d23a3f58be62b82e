package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/argie33/algo-sub006/internal/errors"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"name":    s.config.App.Name,
		"version": s.config.App.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAllQuality(c *gin.Context) {
	metrics := s.monitor.GetAllQualityMetrics()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(metrics),
		"metrics": metrics,
	})
}

func (s *Server) handleSymbolQuality(c *gin.Context) {
	symbol := c.Param("symbol")
	metrics, ok := s.monitor.GetQualityMetrics(symbol)
	if !ok {
		s.respondError(c, errors.NewAppError(errors.ErrCodeNotFound, "no quality metrics for symbol "+symbol, nil))
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (s *Server) handleHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			s.respondError(c, errors.NewAppError(errors.ErrCodeInvalidInput, "invalid window duration: "+raw, nil))
			return
		}
		window = parsed
	}

	entries := s.monitor.GetHistory(symbol, window)
	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleSystem(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.GetSystemMetrics())
}

func (s *Server) handleAlerts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.respondError(c, errors.NewAppError(errors.ErrCodeInvalidInput, "invalid limit: "+raw, nil))
			return
		}
		limit = parsed
	}

	alerts := s.monitor.RecentAlerts(limit)
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

func (s *Server) respondError(c *gin.Context, err *errors.AppError) {
	c.JSON(err.HTTPStatus(), gin.H{
		"error": gin.H{
			"code":    err.Code,
			"message": err.Message,
		},
	})
}
