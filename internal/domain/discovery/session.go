package discovery

import (
	"context"

	"github.com/okian/seisnear/pkg/logger"
)

type sessionKey struct{}

// WithSession tags ctx with a search session id that discovery logs carry.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session id stored by WithSession.
func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

func sessionField(ctx context.Context) logger.Field {
	return logger.String("session", SessionFrom(ctx))
}
