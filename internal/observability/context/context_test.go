package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, "admin", "42")
	ctx = WithJobRunID(ctx, "run-9")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "admin", actorType)
	assert.Equal(t, "42", actorID)
	assert.Equal(t, "run-9", JobRunIDFromContext(ctx))
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(nil)) //nolint:staticcheck
}
