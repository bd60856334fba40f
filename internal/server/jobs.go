package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cicilan/internal/scheduler"
	"go.uber.org/zap"
)

// RunJob triggers one scheduler job synchronously. The job takes the same
// distributed lock as the cron run, so a concurrent run is skipped.
func (s *Server) RunJob(c *gin.Context) {
	if s.jobs == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	name := strings.TrimSpace(c.Param("job"))
	result, err := s.jobs.RunJob(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			AbortWithError(c, ErrNotFound)
			return
		}
		s.log.Error("manual job run failed", zap.String("job", name), zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
