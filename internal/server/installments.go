package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
)

type recordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"payment_method"`
	Reference string          `json:"payment_reference"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.creditSvc.ProcessPayment(c.Request.Context(), creditdomain.PaymentRequest{
		InstallmentID: id,
		Amount:        req.Amount,
		Method:        strings.ToLower(strings.TrimSpace(req.Method)),
		Reference:     strings.TrimSpace(req.Reference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("credit_id", result.CreditID.String())
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	doc, err := s.creditSvc.Receipt(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	streamDocument(c, doc, fmt.Sprintf("receipt-%s.pdf", id.String()))
}
