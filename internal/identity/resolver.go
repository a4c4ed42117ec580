package identity

import (
	"context"
	"sort"

	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
	"github.com/Marlon-Urena/userAccountService/pkg/identity"
)

type subjectDirectory interface {
	GetUser(ctx context.Context, subjectID string) (*identity.UserRecord, error)
}

// Resolver maps a verified subject identifier onto an authenticated
// principal. A cryptographically valid token whose backing account no
// longer exists resolves to UNKNOWN_SUBJECT, not INVALID_CREDENTIAL.
type Resolver struct {
	directory subjectDirectory
}

func NewResolver(directory subjectDirectory) (*Resolver, error) {
	if directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subject directory required")
	}
	return &Resolver{directory: directory}, nil
}

// Resolve loads the provider record for the subject and derives one
// authority per custom-claim key present.
func (r *Resolver) Resolve(ctx context.Context, subjectID, credentials string) (*Principal, error) {
	record, err := r.directory.GetUser(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	authorities := make([]string, 0, len(record.CustomClaims))
	for claim := range record.CustomClaims {
		authorities = append(authorities, claim)
	}
	sort.Strings(authorities)

	return &Principal{
		SubjectID:   record.SubjectID,
		Credentials: credentials,
		Authorities: authorities,
	}, nil
}
