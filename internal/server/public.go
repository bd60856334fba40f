package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	plandomain "github.com/smallbiznis/cicilan/internal/paymentplan/domain"
)

func (s *Server) ListAvailablePlans(c *gin.Context) {
	var query struct {
		Amount      string `form:"amount"`
		ProductID   string `form:"product_id"`
		CategoryIDs string `form:"category_ids"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := parseDecimal(query.Amount)
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}

	plans, err := s.planSvc.ListAvailable(c.Request.Context(), plandomain.AvailableRequest{
		ProductID:   strings.TrimSpace(query.ProductID),
		CategoryIDs: splitCSV(query.CategoryIDs),
		Amount:      amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plans})
}

type previewRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) PreviewPlan(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schedule, err := s.planSvc.Preview(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": schedule})
}

type affordabilityRequest struct {
	MonthlyIncome     decimal.Decimal  `json:"monthly_income"`
	MonthlyExpenses   decimal.Decimal  `json:"monthly_expenses"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount"`
	PlanID            string           `json:"payment_plan_id"`
	Amount            *decimal.Decimal `json:"amount"`
}

// CheckAffordability takes the installment directly or derives it from a plan
// and purchase amount.
func (s *Server) CheckAffordability(c *gin.Context) {
	var req affordabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if !req.MonthlyIncome.IsPositive() {
		AbortWithError(c, newValidationError("monthly_income", "invalid_monthly_income", "monthly_income must be positive"))
		return
	}
	if req.MonthlyExpenses.IsNegative() {
		AbortWithError(c, newValidationError("monthly_expenses", "invalid_monthly_expenses", "monthly_expenses must not be negative"))
		return
	}

	var installment decimal.Decimal
	switch {
	case req.InstallmentAmount != nil:
		installment = *req.InstallmentAmount
	case strings.TrimSpace(req.PlanID) != "" && req.Amount != nil:
		schedule, err := s.planSvc.Preview(c.Request.Context(), req.PlanID, *req.Amount)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if len(schedule.Lines) > 0 {
			installment = schedule.Lines[0].Amount
		}
	default:
		AbortWithError(c, newValidationError("installment_amount", "required", "installment_amount or payment_plan_id and amount are required"))
		return
	}
	if !installment.IsPositive() {
		AbortWithError(c, newValidationError("installment_amount", "invalid_installment_amount", "installment_amount must be positive"))
		return
	}

	result := amortization.CheckAffordability(req.MonthlyIncome, req.MonthlyExpenses, installment)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"installment_amount": installment,
		"result":             result,
	}})
}

func (s *Server) ListPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.creditSvc.PaymentMethods()})
}

type whatsappWebhookRequest struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// HandleWhatsAppWebhook applies gateway delivery receipts. Unknown message ids
// are acknowledged so the gateway stops retrying them.
func (s *Server) HandleWhatsAppWebhook(c *gin.Context) {
	var req whatsappWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.notificationSvc.UpdateDeliveryStatus(c.Request.Context(), req.MessageID, req.Status)
	if err != nil && !isNotificationNotFound(err) {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
