package identity

import (
	"context"
	"strings"
)

// User is what the identity provider tells us about the person logged in.
type User struct {
	ID        string `json:"userId" validate:"required,notblank"`
	FirstName string `json:"firstName"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type ctxKey string

const ctxUserKey ctxKey = "user"

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxUserKey).(User)
	return u, ok
}

func UserID(ctx context.Context) (string, bool) {
	u, ok := FromContext(ctx)
	if !ok || strings.TrimSpace(u.ID) == "" {
		return "", false
	}
	return u.ID, true
}
