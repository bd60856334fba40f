package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
)

func (s *Server) ListFailedNotifications(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CreditID string `form:"credit_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListRequest{
		Pagination: query.Pagination,
		CreditID:   query.CreditID,
		Status:     string(notificationdomain.StatusFailed),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Notifications, "page_info": resp.PageInfo})
}

func (s *Server) ResendNotification(c *gin.Context) {
	n, err := s.notificationSvc.Resend(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": n})
}

func isNotificationNotFound(err error) bool {
	return errors.Is(err, notificationdomain.ErrNotFound)
}
