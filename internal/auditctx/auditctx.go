package auditctx

import "context"

// Actor captures who issued a request so activity entries written deeper in
// the stack can be attributed without threading gin.Context through services.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
	RequestID string
}

type actorContextKey struct{}

// WithActor injects actor metadata into the supplied context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// WithUserID returns ctx with the actor's user id set, keeping any request
// metadata already attached.
func WithUserID(ctx context.Context, userID string) context.Context {
	actor, _ := FromContext(ctx)
	actor.UserID = userID
	return WithActor(ctx, actor)
}
