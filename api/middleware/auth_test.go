package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Marlon-Urena/userAccountService/internal/identity"
	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
)

type stubVerifier struct {
	subjectID string
	err       error
	tokens    []string
}

func (s *stubVerifier) Verify(_ context.Context, raw string) (string, map[string]string, error) {
	s.tokens = append(s.tokens, raw)
	if s.err != nil {
		return "", nil, s.err
	}
	return s.subjectID, nil, nil
}

type stubResolver struct {
	principal *identity.Principal
	err       error
	calls     int
}

func (s *stubResolver) Resolve(_ context.Context, subjectID, credentials string) (*identity.Principal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.principal != nil {
		return s.principal, nil
	}
	return &identity.Principal{SubjectID: subjectID, Credentials: credentials}, nil
}

func runAuth(t *testing.T, verifier *stubVerifier, resolver *stubResolver, authHeader string) (*httptest.ResponseRecorder, *identity.Principal) {
	t.Helper()

	var seen *identity.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()

	Auth(verifier, resolver, nil)(next).ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	verifier := &stubVerifier{}
	resolver := &stubResolver{}

	rec, _ := runAuth(t, verifier, resolver, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(verifier.tokens) != 0 {
		t.Fatal("verifier called without credentials")
	}
	if resolver.calls != 0 {
		t.Fatal("resolver called without credentials")
	}
}

func TestAuthStripsBearerPrefix(t *testing.T) {
	verifier := &stubVerifier{subjectID: "subject-1"}
	resolver := &stubResolver{}

	for _, header := range []string{"Bearer raw-token", "bearer raw-token", "BEARER raw-token"} {
		verifier.tokens = nil
		rec, _ := runAuth(t, verifier, resolver, header)
		if rec.Code != http.StatusOK {
			t.Fatalf("header %q: expected 200, got %d", header, rec.Code)
		}
		if len(verifier.tokens) != 1 || verifier.tokens[0] != "raw-token" {
			t.Fatalf("header %q: prefix not stripped, verifier saw %v", header, verifier.tokens)
		}
	}
}

func TestAuthInstallsPrincipal(t *testing.T) {
	verifier := &stubVerifier{subjectID: "subject-1"}
	resolver := &stubResolver{principal: &identity.Principal{
		SubjectID:   "subject-1",
		Authorities: []string{"admin"},
	}}

	rec, principal := runAuth(t, verifier, resolver, "Bearer raw-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if principal == nil || principal.SubjectID != "subject-1" {
		t.Fatalf("principal not installed: %+v", principal)
	}
	if !principal.HasAuthority("admin") {
		t.Fatal("authorities not carried")
	}
}

func TestAuthRejectsInvalidCredential(t *testing.T) {
	verifier := &stubVerifier{err: pkgerrors.New(pkgerrors.CodeInvalidCredential, "token rejected by provider")}
	resolver := &stubResolver{}

	rec, seen := runAuth(t, verifier, resolver, "Bearer bad-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if seen != nil {
		t.Fatal("handler reached with rejected credential")
	}
	if resolver.calls != 0 {
		t.Fatal("resolver called after verification failure")
	}
}

func TestAuthRejectsUnknownSubject(t *testing.T) {
	verifier := &stubVerifier{subjectID: "ghost"}
	resolver := &stubResolver{err: pkgerrors.New(pkgerrors.CodeUnknownSubject, "provider has no record for subject")}

	rec, seen := runAuth(t, verifier, resolver, "Bearer raw-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if seen != nil {
		t.Fatal("handler reached with unknown subject")
	}
}

func TestAuthSurfacesProviderOutage(t *testing.T) {
	verifier := &stubVerifier{err: pkgerrors.New(pkgerrors.CodeProviderUnavailable, "provider down")}
	resolver := &stubResolver{}

	rec, _ := runAuth(t, verifier, resolver, "Bearer raw-token")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
