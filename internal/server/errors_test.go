package server

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smallbiznis/cicilan/internal/authorization"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	plandomain "github.com/smallbiznis/cicilan/internal/paymentplan/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		kind     string
		wantCode string
	}{
		{name: "not found", err: creditdomain.ErrCreditNotFound, status: http.StatusNotFound, kind: "not_found", wantCode: "credit_not_found"},
		{name: "invalid state", err: creditdomain.ErrInvalidState, status: http.StatusConflict, kind: "invalid_state", wantCode: "invalid_state"},
		{name: "validation", err: creditdomain.ErrAmountOutOfRange, status: http.StatusBadRequest, kind: "validation_error", wantCode: "amount_out_of_range"},
		{name: "conflict", err: plandomain.ErrPlanInUse, status: http.StatusConflict, kind: "conflict", wantCode: "plan_in_use"},
		{name: "wrapped conflict", err: fmt.Errorf("pay: %w", creditdomain.ErrAlreadyPaid), status: http.StatusConflict, kind: "conflict", wantCode: "already_paid"},
		{name: "insufficient", err: creditdomain.ErrInsufficientAmount, status: http.StatusUnprocessableEntity, kind: "insufficient_amount", wantCode: "insufficient_amount"},
		{name: "forbidden", err: authorization.ErrForbidden, status: http.StatusForbidden, kind: "forbidden"},
		{name: "unauthorized", err: ErrUnauthorized, status: http.StatusUnauthorized, kind: "unauthorized"},
		{name: "record not found", err: gorm.ErrRecordNotFound, status: http.StatusNotFound, kind: "not_found"},
		{name: "store down", err: fmt.Errorf("find credit: %w", driver.ErrBadConn), status: http.StatusServiceUnavailable, kind: "service_unavailable"},
		{name: "rate limited", err: ErrTooManyRequests, status: http.StatusTooManyRequests, kind: "rate_limited"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, kind: "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
			assert.Equal(t, tc.wantCode, payload.Code)
		})
	}
}

func TestMapErrorHidesInternalDetails(t *testing.T) {
	_, payload := mapError(errors.New("pq: password authentication failed for user postgres"))
	assert.Equal(t, "internal server error", payload.Message)
}

func TestMapErrorCarriesFieldReasons(t *testing.T) {
	_, payload := mapError(creditdomain.ErrInvalidPaymentMethod.WithField("payment_method", "longer than 32 characters"))
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "payment_method", payload.Errors[0].Field)
		assert.Equal(t, "longer than 32 characters", payload.Errors[0].Message)
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(creditdomain.ErrAlreadyPaid)
	assert.Equal(t, "conflict", kind)
	assert.Equal(t, "already_paid", code)

	kind, code = classifyErrorForLog(invalidRequestError())
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_request", code)
}
