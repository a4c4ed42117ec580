package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
	"github.com/Marlon-Urena/userAccountService/pkg/identity"
	"github.com/Marlon-Urena/userAccountService/pkg/logger"
	pkgredis "github.com/Marlon-Urena/userAccountService/pkg/redis"
)

type tokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.TokenInfo, error)
}

type verifyCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	AddToSet(ctx context.Context, key string, ttl time.Duration, members ...any) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	VerifyTokenKey(tokenHash string) string
	VerifySubjectKey(subjectID string) string
}

// Verifier validates bearer credentials against the identity provider.
// An optional short-lived cache skips repeat provider round-trips; the
// sync service invalidates it whenever it mutates provider claims.
type Verifier struct {
	provider tokenVerifier
	cache    verifyCache
	cacheTTL time.Duration
	logg     *logger.Logger
}

func NewVerifier(provider tokenVerifier, cache verifyCache, cacheTTL time.Duration, logg *logger.Logger) (*Verifier, error) {
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "token verifier required")
	}
	return &Verifier{
		provider: provider,
		cache:    cache,
		cacheTTL: cacheTTL,
		logg:     logg,
	}, nil
}

// Verify validates the raw bearer token (prefix already stripped) and
// returns the subject identifier plus provider claims. Malformed tokens
// are rejected locally without a provider call.
func (v *Verifier) Verify(ctx context.Context, raw string) (string, map[string]string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeInvalidCredential, "missing credentials")
	}

	// Structural pre-check only; signature and expiry remain the
	// provider's responsibility.
	if _, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInvalidCredential, err, "malformed token")
	}

	if info, ok := v.cachedVerification(ctx, token); ok {
		return info.SubjectID, info.Claims, nil
	}

	info, err := v.provider.VerifyToken(ctx, token)
	if err != nil {
		return "", nil, err
	}

	v.cacheVerification(ctx, token, info)

	return info.SubjectID, info.Claims, nil
}

// InvalidateSubject drops every cached verification for a subject. Called
// after any claim-mutating account update.
func (v *Verifier) InvalidateSubject(ctx context.Context, subjectID string) {
	if v.cache == nil || v.cacheTTL <= 0 || subjectID == "" {
		return
	}

	subjectKey := v.cache.VerifySubjectKey(subjectID)
	members, err := v.cache.SetMembers(ctx, subjectKey)
	if err != nil && !pkgredis.IsMissing(err) {
		if v.logg != nil {
			v.logg.Warn(ctx, "verification cache invalidation lookup failed")
		}
		return
	}

	keys := append(members, subjectKey)
	if err := v.cache.Del(ctx, keys...); err != nil && v.logg != nil {
		v.logg.Warn(ctx, "verification cache invalidation failed")
	}
}

func (v *Verifier) cachedVerification(ctx context.Context, token string) (*identity.TokenInfo, bool) {
	if v.cache == nil || v.cacheTTL <= 0 {
		return nil, false
	}

	cached, err := v.cache.Get(ctx, v.cache.VerifyTokenKey(hashToken(token)))
	if err != nil {
		if !pkgredis.IsMissing(err) && v.logg != nil {
			v.logg.Warn(ctx, "verification cache read failed")
		}
		return nil, false
	}

	var info identity.TokenInfo
	if err := json.Unmarshal([]byte(cached), &info); err != nil || info.SubjectID == "" {
		return nil, false
	}
	return &info, true
}

func (v *Verifier) cacheVerification(ctx context.Context, token string, info *identity.TokenInfo) {
	if v.cache == nil || v.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return
	}

	tokenKey := v.cache.VerifyTokenKey(hashToken(token))
	if err := v.cache.Set(ctx, tokenKey, string(payload), v.cacheTTL); err != nil {
		if v.logg != nil {
			v.logg.Warn(ctx, "verification cache write failed")
		}
		return
	}
	if err := v.cache.AddToSet(ctx, v.cache.VerifySubjectKey(info.SubjectID), v.cacheTTL, tokenKey); err != nil && v.logg != nil {
		v.logg.Warn(ctx, "verification cache index write failed")
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
