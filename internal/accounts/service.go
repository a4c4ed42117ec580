package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Marlon-Urena/userAccountService/pkg/db"
	"github.com/Marlon-Urena/userAccountService/pkg/db/models"
	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
	"github.com/Marlon-Urena/userAccountService/pkg/identity"
	"github.com/Marlon-Urena/userAccountService/pkg/pagination"
)

const (
	emailConstraint    = "uq_accounts_email"
	usernameConstraint = "uq_accounts_username"
)

type accountRepository interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
	Delete(ctx context.Context, subjectID string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Search(ctx context.Context, query string, page pagination.Page) ([]models.Account, error)
}

type identityAdmin interface {
	UpdateUser(ctx context.Context, params identity.UpdateUserParams) error
}

type avatarStorage interface {
	Upload(ctx context.Context, objectName, contentType string, content io.Reader) (string, error)
}

type claimsInvalidator interface {
	InvalidateSubject(ctx context.Context, subjectID string)
}

// Service orchestrates account mutations that span the local store and
// the identity provider's own record.
type Service interface {
	Account(ctx context.Context, subjectID string) (*AccountDTO, error)
	Register(ctx context.Context, input CreateAccountInput) (*AccountDTO, error)
	UpdateAccount(ctx context.Context, subjectID string, input UpdateAccountInput) (*AccountDTO, error)
	UpdatePersonalInfo(ctx context.Context, subjectID string, input PersonalInfoInput) (*AccountDTO, error)
	ChangeEmail(ctx context.Context, subjectID, newEmail string) (*AccountDTO, error)
	ChangeUsername(ctx context.Context, subjectID, newUsername string) (*AccountDTO, error)
	ChangeAvatar(ctx context.Context, subjectID, filename, contentType string, content io.Reader) (*AccountDTO, error)
	Delete(ctx context.Context, subjectID string) error
	Contacts(ctx context.Context, query string, page pagination.Page) ([]ContactDTO, error)
	EmailAvailable(ctx context.Context, email string) (bool, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

type service struct {
	repo        accountRepository
	provider    identityAdmin
	storage     avatarStorage
	invalidator claimsInvalidator
}

// NewService builds the account service with the provided collaborators.
// The invalidator may be nil when no verification cache is configured.
func NewService(repo accountRepository, provider identityAdmin, storage avatarStorage, invalidator claimsInvalidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("identity provider client required")
	}
	if storage == nil {
		return nil, fmt.Errorf("avatar storage required")
	}
	return &service{
		repo:        repo,
		provider:    provider,
		storage:     storage,
		invalidator: invalidator,
	}, nil
}

func (s *service) Account(ctx context.Context, subjectID string) (*AccountDTO, error) {
	account, err := s.findAccount(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return FromModel(account), nil
}

// Register checks email before username so that when both collide the
// caller hears about the field they most likely supplied first. The
// pre-checks only improve the error in the non-racing case; the unique
// indexes are the real enforcement.
func (s *service) Register(ctx context.Context, input CreateAccountInput) (*AccountDTO, error) {
	if err := validateNewAccount(input); err != nil {
		return nil, err
	}

	emailTaken, err := s.repo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	if emailTaken {
		return nil, emailTakenError(input.Email)
	}

	usernameTaken, err := s.repo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
	}
	if usernameTaken {
		return nil, usernameTakenError(input.Username)
	}

	created, err := s.repo.Create(ctx, input.ToModel())
	if err != nil {
		return nil, s.mapWriteError(err, input.Email, input.Username)
	}

	return FromModel(created), nil
}

func (s *service) UpdateAccount(ctx context.Context, subjectID string, input UpdateAccountInput) (*AccountDTO, error) {
	account, err := s.findAccount(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	account.FirstName = input.FirstName
	account.LastName = input.LastName
	account.Address = input.Address
	account.City = input.City
	account.State = input.State
	account.Country = input.Country
	account.ZipCode = input.ZipCode
	account.PhoneNumber = input.PhoneNumber
	if input.Status != nil && *input.Status != "" {
		account.Status = *input.Status
	}

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account")
	}
	return FromModel(updated), nil
}

// UpdatePersonalInfo replaces only the descriptive fields; they are not
// mirrored to the identity provider, so there is no remote leg.
func (s *service) UpdatePersonalInfo(ctx context.Context, subjectID string, input PersonalInfoInput) (*AccountDTO, error) {
	account, err := s.findAccount(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	account.FirstName = input.FirstName
	account.LastName = input.LastName
	account.Address = input.Address
	account.City = input.City
	account.State = input.State
	account.Country = input.Country
	account.ZipCode = input.ZipCode

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update personal info")
	}
	return FromModel(updated), nil
}

// ChangeEmail establishes the local uniqueness invariant first, then
// mirrors the address to the identity provider. A remote failure after
// the committed local write is surfaced as REMOTE_SYNC_FAILED and the
// local write is kept: rolling back would risk losing the uniqueness
// slot to a racing request. The local store is authoritative; callers
// retry the remote leg.
func (s *service) ChangeEmail(ctx context.Context, subjectID, newEmail string) (*AccountDTO, error) {
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}

	taken, err := s.repo.ExistsByEmail(ctx, newEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	if taken {
		return nil, emailTakenError(newEmail)
	}

	account, err := s.findAccount(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	account.Email = newEmail
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, s.mapWriteError(err, newEmail, "")
	}

	if err := s.provider.UpdateUser(ctx, identity.UpdateUserParams{
		SubjectID: subjectID,
		Email:     &newEmail,
	}); err != nil {
		return nil, remoteSyncError(err, "email", FromModel(updated))
	}

	s.invalidateClaims(ctx, subjectID)

	return FromModel(updated), nil
}

// ChangeUsername follows the same shape as ChangeEmail, mirroring the
// username to the provider's display name.
func (s *service) ChangeUsername(ctx context.Context, subjectID, newUsername string) (*AccountDTO, error) {
	newUsername = strings.TrimSpace(newUsername)
	if newUsername == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid username")
	}

	taken, err := s.repo.ExistsByUsername(ctx, newUsername)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
	}
	if taken {
		return nil, usernameTakenError(newUsername)
	}

	account, err := s.findAccount(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	account.Username = newUsername
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, s.mapWriteError(err, "", newUsername)
	}

	if err := s.provider.UpdateUser(ctx, identity.UpdateUserParams{
		SubjectID:   subjectID,
		DisplayName: &newUsername,
	}); err != nil {
		return nil, remoteSyncError(err, "username", FromModel(updated))
	}

	s.invalidateClaims(ctx, subjectID)

	return FromModel(updated), nil
}

// ChangeAvatar stores the blob first so the account row never points at
// an object that does not exist, then mirrors the URL to the provider's
// photo field under the same local-first ordering as email changes.
func (s *service) ChangeAvatar(ctx context.Context, subjectID, filename, contentType string, content io.Reader) (*AccountDTO, error) {
	if content == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar payload is required")
	}

	objectName := avatarObjectName(subjectID, filename)
	mediaURL, err := s.storage.Upload(ctx, objectName, contentType, content)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload avatar")
	}

	account, err := s.findAccount(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	account.AvatarURL = &mediaURL
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update avatar url")
	}

	if err := s.provider.UpdateUser(ctx, identity.UpdateUserParams{
		SubjectID: subjectID,
		PhotoURL:  &mediaURL,
	}); err != nil {
		return nil, remoteSyncError(err, "avatar", FromModel(updated))
	}

	s.invalidateClaims(ctx, subjectID)

	return FromModel(updated), nil
}

// Delete removes the local record only; provider deactivation is owned
// by the provider's own tooling.
func (s *service) Delete(ctx context.Context, subjectID string) error {
	if _, err := s.findAccount(ctx, subjectID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, subjectID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete account")
	}
	return nil
}

func (s *service) Contacts(ctx context.Context, query string, page pagination.Page) ([]ContactDTO, error) {
	accounts, err := s.repo.Search(ctx, query, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search accounts")
	}

	contacts := make([]ContactDTO, 0, len(accounts))
	for i := range accounts {
		contacts = append(contacts, ContactFromModel(&accounts[i]))
	}
	return contacts, nil
}

func (s *service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	return !taken, nil
}

func (s *service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
	}
	return !taken, nil
}

func (s *service) findAccount(ctx context.Context, subjectID string) (*models.Account, error) {
	if subjectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject id is required")
	}
	account, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

func (s *service) invalidateClaims(ctx context.Context, subjectID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateSubject(ctx, subjectID)
	}
}

// mapWriteError translates storage-level unique violations into the same
// client-facing kinds as the pre-checks, for the racing case the checks
// cannot cover.
func (s *service) mapWriteError(err error, email, username string) error {
	switch {
	case db.IsUniqueViolation(err, emailConstraint):
		return pkgerrors.Wrap(pkgerrors.CodeEmailTaken, err, "email already in use").
			WithDetails(map[string]any{"email": email})
	case db.IsUniqueViolation(err, usernameConstraint):
		return pkgerrors.Wrap(pkgerrors.CodeUsernameTaken, err, "username already in use").
			WithDetails(map[string]any{"username": username})
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "account conflicts with an existing record")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write account")
	}
}

func validateNewAccount(input CreateAccountInput) error {
	if input.SubjectID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject id is required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	if input.Username == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	return nil
}

func emailTakenError(email string) error {
	return pkgerrors.New(pkgerrors.CodeEmailTaken, "email already in use").
		WithDetails(map[string]any{"email": email})
}

func usernameTakenError(username string) error {
	return pkgerrors.New(pkgerrors.CodeUsernameTaken, "username already in use").
		WithDetails(map[string]any{"username": username})
}

// remoteSyncError reports a committed local write whose provider mirror
// failed. The updated account rides along in details so callers can
// retry only the remote leg.
func remoteSyncError(err error, field string, account *AccountDTO) error {
	return pkgerrors.Wrap(pkgerrors.CodeRemoteSync, err, "identity provider update failed after local write").
		WithDetails(map[string]any{
			"field":   field,
			"account": account,
		})
}

func avatarObjectName(subjectID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("avatars/%s/%s%s", subjectID, uuid.NewString(), ext)
}
