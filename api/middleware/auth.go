package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Marlon-Urena/userAccountService/api/responses"
	"github.com/Marlon-Urena/userAccountService/internal/identity"
	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
	"github.com/Marlon-Urena/userAccountService/pkg/logger"
)

type credentialVerifier interface {
	Verify(ctx context.Context, raw string) (string, map[string]string, error)
}

type principalResolver interface {
	Resolve(ctx context.Context, subjectID, credentials string) (*identity.Principal, error)
}

// Auth verifies the bearer credential, resolves the principal and seeds
// the request context. No store is touched before this gate passes.
func Auth(verifier credentialVerifier, resolver principalResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidCredential, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidCredential, "missing credentials"))
				return
			}

			subjectID, _, err := verifier.Verify(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			principal, err := resolver.Resolve(r.Context(), subjectID, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"subject_id":  principal.SubjectID,
					"authorities": len(principal.Authorities),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
