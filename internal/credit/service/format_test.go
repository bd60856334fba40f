package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "1,200,000.00", money(decimal.NewFromInt(1200000)))
	assert.Equal(t, "17,254.84", money(decimal.RequireFromString("17254.8361")))
	assert.Equal(t, "0.00", money(decimal.Zero))
}

func TestDate(t *testing.T) {
	d := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-04-01", date(&d))
	assert.Equal(t, "", date(nil))
}
