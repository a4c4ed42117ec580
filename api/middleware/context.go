package middleware

import (
	"context"

	"github.com/Marlon-Urena/userAccountService/internal/identity"
)

type contextKey string

const (
	ctxPrincipal contextKey = "principal"
	ctxSubjectID contextKey = "subject_id"
)

// WithPrincipal installs the authenticated principal into the context.
// This is the only point where identity enters the handler chain.
func WithPrincipal(ctx context.Context, principal *identity.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxPrincipal, principal)
	if principal != nil {
		ctx = context.WithValue(ctx, ctxSubjectID, principal.SubjectID)
	}
	return ctx
}

// PrincipalFromContext returns the authenticated principal, or nil on
// unauthenticated routes.
func PrincipalFromContext(ctx context.Context) *identity.Principal {
	if ctx == nil {
		return nil
	}
	if p, ok := ctx.Value(ctxPrincipal).(*identity.Principal); ok {
		return p
	}
	return nil
}

func SubjectIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSubjectID).(string); ok {
		return v
	}
	return ""
}
