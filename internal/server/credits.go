package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

type createCreditRequest struct {
	OrderID string `json:"order_id"`
	PlanID  string `json:"payment_plan_id"`
}

func (s *Server) CreateCredit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	orderID, err := snowflake.ParseString(strings.TrimSpace(req.OrderID))
	if err != nil || orderID == 0 {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "invalid order_id"))
		return
	}
	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil || planID == 0 {
		AbortWithError(c, newValidationError("payment_plan_id", "invalid_payment_plan_id", "invalid payment_plan_id"))
		return
	}

	credit, err := s.creditSvc.Create(c.Request.Context(), creditdomain.CreateRequest{
		OrderID:    orderID,
		PlanID:     planID,
		CustomerID: actor.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("credit_id", credit.ID.String())
	c.JSON(http.StatusCreated, gin.H{"data": credit})
}

func (s *Server) ListMyCredits(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query creditdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.CustomerID = actor.ID.String()

	resp, err := s.creditSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Credits, "page_info": resp.PageInfo})
}

func (s *Server) GetMyCredit(c *gin.Context) {
	detail, ok := s.ownedCredit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) ListMyInstallments(c *gin.Context) {
	detail, ok := s.ownedCredit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":    detail.Installments,
		"summary": detail.Summary,
	})
}

func (s *Server) GetMyEarlyPayoff(c *gin.Context) {
	detail, ok := s.ownedCredit(c)
	if !ok {
		return
	}

	quote, err := s.creditSvc.CalculateEarlyPayment(c.Request.Context(), detail.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) ExportMyScheduleXLSX(c *gin.Context) {
	detail, ok := s.ownedCredit(c)
	if !ok {
		return
	}

	buf, err := s.creditSvc.ExportScheduleXLSX(c.Request.Context(), detail.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attachment(c, fmt.Sprintf("credit-%s-schedule.xlsx", detail.ID.String()))
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

func (s *Server) ExportMySchedulePDF(c *gin.Context) {
	detail, ok := s.ownedCredit(c)
	if !ok {
		return
	}

	doc, err := s.creditSvc.ExportSchedulePDF(c.Request.Context(), detail.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	streamDocument(c, doc, fmt.Sprintf("credit-%s-schedule.pdf", detail.ID.String()))
}

// ownedCredit loads the credit named by the path and hides credits that belong
// to another customer behind a not found.
func (s *Server) ownedCredit(c *gin.Context) (*creditdomain.CreditDetail, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}

	detail, err := s.creditSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	if detail.CustomerID != actor.ID {
		AbortWithError(c, creditdomain.ErrCreditNotFound)
		return nil, false
	}

	c.Set("credit_id", detail.ID.String())
	return detail, true
}

// -------- Admin --------

func (s *Server) ListCredits(c *gin.Context) {
	var query creditdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Credits, "page_info": resp.PageInfo})
}

func (s *Server) GetCredit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := s.creditSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("credit_id", detail.ID.String())
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) GetCreditHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var query creditdomain.HistoryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.History(c.Request.Context(), id, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.History, "page_info": resp.PageInfo})
}

func (s *Server) ApproveCredit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	credit, err := s.creditSvc.Approve(c.Request.Context(), id, actor.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("credit_id", credit.ID.String())
	c.JSON(http.StatusOK, gin.H{"data": credit})
}

type rejectCreditRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectCredit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req rejectCreditRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	credit, err := s.creditSvc.Reject(c.Request.Context(), id, strings.TrimSpace(req.Reason), actor.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("credit_id", credit.ID.String())
	c.JSON(http.StatusOK, gin.H{"data": credit})
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func streamDocument(c *gin.Context, doc io.Reader, filename string) {
	c.DataFromReader(http.StatusOK, -1, contentTypePDF, doc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}
