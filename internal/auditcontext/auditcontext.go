// Package auditcontext carries who/where information for history records.
package auditcontext

import "context"

type key int

const (
	requestIDKey key = iota
	ipAddressKey
	userAgentKey
	actorTypeKey
	actorIDKey
)

const (
	ActorSystem   = "system"
	ActorAdmin    = "admin"
	ActorCustomer = "customer"
)

func WithRequestID(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, requestIDKey, v)
}

func RequestIDFromContext(ctx context.Context) string {
	return value(ctx, requestIDKey)
}

func WithIPAddress(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, ipAddressKey, v)
}

func IPAddressFromContext(ctx context.Context) string {
	return value(ctx, ipAddressKey)
}

func WithUserAgent(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, userAgentKey, v)
}

func UserAgentFromContext(ctx context.Context) string {
	return value(ctx, userAgentKey)
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, actorTypeKey, actorType)
	return context.WithValue(ctx, actorIDKey, actorID)
}

// ActorFromContext falls back to the system actor when nothing was set.
func ActorFromContext(ctx context.Context) (string, string) {
	actorType := value(ctx, actorTypeKey)
	if actorType == "" {
		return ActorSystem, ""
	}
	return actorType, value(ctx, actorIDKey)
}

func value(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}
