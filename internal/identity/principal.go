package identity

// Principal is the verified, request-scoped representation of the caller.
// It is created by the authentication middleware and discarded at request
// end; it is never persisted.
type Principal struct {
	SubjectID string
	// Credentials holds the verified raw token for the lifetime of the
	// request.
	Credentials string
	// Authorities are derived from provider claim keys; presence is the
	// signal, claim values are never consulted.
	Authorities []string
}

// HasAuthority reports whether the principal carries the given authority.
func (p *Principal) HasAuthority(authority string) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
