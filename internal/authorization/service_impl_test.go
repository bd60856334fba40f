package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/cicilan/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := dbtest.Open(t)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "admin:1799", ObjectCredit, ActionCreditApprove))
	assert.NoError(t, svc.Authorize(ctx, "customer:42", ObjectCredit, ActionCreditCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, "customer:42", ObjectCredit, ActionCreditApprove), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, "system", ObjectInstallment, ActionInstallmentPay))
}

func TestAuthorizeRejectsMalformedActors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", ObjectCredit, ActionCreditView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "robot:1", ObjectCredit, ActionCreditView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "admin:abc", ObjectCredit, ActionCreditView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "admin:1", "", ActionCreditView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "admin:1", ObjectCredit, ""), ErrInvalidAction)
}

func TestSeedPoliciesIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	first, err := NewEnforcer(conn)
	require.NoError(t, err)
	before, err := first.GetPolicy()
	require.NoError(t, err)

	second, err := NewEnforcer(conn)
	require.NoError(t, err)
	after, err := second.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}
