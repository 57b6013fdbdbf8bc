package profilectx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const profileKey ctxKey = "profile"

// Create a new context with the authenticated profile id
func New(ctx context.Context, profileID uuid.UUID) context.Context {
	return context.WithValue(ctx, profileKey, profileID)
}

// Extract the profile id from the context
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(profileKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
