package authorization

import "context"

// Service decides whether an actor may perform action on object.
//
// Actors are "system", "admin:<id>" or "customer:<id>".
type Service interface {
	Authorize(ctx context.Context, actor string, object string, action string) error
}
