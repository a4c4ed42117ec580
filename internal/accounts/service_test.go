package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/Marlon-Urena/userAccountService/pkg/db/models"
	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
	"github.com/Marlon-Urena/userAccountService/pkg/identity"
	"github.com/Marlon-Urena/userAccountService/pkg/pagination"
)

type fakeRepo struct {
	accounts map[string]*models.Account

	createErr error
	updateErr error
	existsErr error

	createCalls int
	updateCalls int
}

func newFakeRepo(seed ...*models.Account) *fakeRepo {
	repo := &fakeRepo{accounts: map[string]*models.Account{}}
	for _, a := range seed {
		copied := *a
		repo.accounts[a.SubjectID] = &copied
	}
	return repo
}

func (f *fakeRepo) FindBySubjectID(_ context.Context, subjectID string) (*models.Account, error) {
	account, ok := f.accounts[subjectID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeRepo) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	copied := *account
	f.accounts[account.SubjectID] = &copied
	return account, nil
}

func (f *fakeRepo) Update(_ context.Context, account *models.Account) (*models.Account, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	copied := *account
	f.accounts[account.SubjectID] = &copied
	return account, nil
}

func (f *fakeRepo) Delete(_ context.Context, subjectID string) error {
	delete(f.accounts, subjectID)
	return nil
}

func (f *fakeRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, a := range f.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, a := range f.accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Search(_ context.Context, query string, page pagination.Page) ([]models.Account, error) {
	page = page.Normalize()
	var out []models.Account
	for _, a := range f.accounts {
		if query == "" || strings.Contains(strings.ToLower(a.Username), strings.ToLower(query)) {
			out = append(out, *a)
		}
	}
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

type fakeProvider struct {
	err   error
	calls []identity.UpdateUserParams
}

func (f *fakeProvider) UpdateUser(_ context.Context, params identity.UpdateUserParams) error {
	f.calls = append(f.calls, params)
	return f.err
}

type fakeStorage struct {
	err      error
	mediaURL string
	objects  []string
}

func (f *fakeStorage) Upload(_ context.Context, objectName, _ string, _ io.Reader) (string, error) {
	f.objects = append(f.objects, objectName)
	if f.err != nil {
		return "", f.err
	}
	if f.mediaURL != "" {
		return f.mediaURL, nil
	}
	return "https://media.example.com/" + objectName, nil
}

type fakeInvalidator struct {
	subjects []string
}

func (f *fakeInvalidator) InvalidateSubject(_ context.Context, subjectID string) {
	f.subjects = append(f.subjects, subjectID)
}

func seedAccount() *models.Account {
	return &models.Account{
		SubjectID: "subject-1",
		Email:     "alice@example.com",
		Username:  "alice",
		Status:    models.StatusOffline,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, provider *fakeProvider, storage *fakeStorage, invalidator *fakeInvalidator) Service {
	t.Helper()
	var inv claimsInvalidator
	if invalidator != nil {
		inv = invalidator
	}
	svc, err := NewService(repo, provider, storage, inv)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterCreatesAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeProvider{}, &fakeStorage{}, nil)

	dto, err := svc.Register(context.Background(), CreateAccountInput{
		SubjectID: "subject-1",
		Email:     "alice@example.com",
		Username:  "alice",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if dto.Status != models.StatusOffline {
		t.Fatalf("expected status %q, got %q", models.StatusOffline, dto.Status)
	}
	if _, ok := repo.accounts["subject-1"]; !ok {
		t.Fatal("account not persisted")
	}
}

func TestRegisterEmailTakenWinsOverUsername(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	svc := newTestService(t, repo, &fakeProvider{}, &fakeStorage{}, nil)

	_, err := svc.Register(context.Background(), CreateAccountInput{
		SubjectID: "subject-2",
		Email:     "alice@example.com",
		Username:  "alice",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmailTaken) {
		t.Fatalf("expected EMAIL_TAKEN, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no create attempts, got %d", repo.createCalls)
	}
}

func TestRegisterUsernameTaken(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	svc := newTestService(t, repo, &fakeProvider{}, &fakeStorage{}, nil)

	_, err := svc.Register(context.Background(), CreateAccountInput{
		SubjectID: "subject-2",
		Email:     "bob@example.com",
		Username:  "alice",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUsernameTaken) {
		t.Fatalf("expected USERNAME_TAKEN, got %v", err)
	}
	if len(repo.accounts) != 1 {
		t.Fatalf("store mutated on rejected registration")
	}
}

func TestRegisterMapsRacingUniqueViolation(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = fmt.Errorf(`duplicate key value violates unique constraint "uq_accounts_email"`)
	svc := newTestService(t, repo, &fakeProvider{}, &fakeStorage{}, nil)

	_, err := svc.Register(context.Background(), CreateAccountInput{
		SubjectID: "subject-2",
		Email:     "bob@example.com",
		Username:  "bob",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmailTaken) {
		t.Fatalf("expected EMAIL_TAKEN from storage backstop, got %v", err)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeProvider{}, &fakeStorage{}, nil)

	cases := []CreateAccountInput{
		{Email: "a@b.com", Username: "x"},
		{SubjectID: "s", Email: "not-an-email", Username: "x"},
		{SubjectID: "s", Email: "a@b.com"},
	}
	for _, input := range cases {
		if _, err := svc.Register(context.Background(), input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("input %+v: expected VALIDATION_ERROR, got %v", input, err)
		}
	}
}

func TestChangeEmailSuccessSyncsProvider(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	provider := &fakeProvider{}
	invalidator := &fakeInvalidator{}
	svc := newTestService(t, repo, provider, &fakeStorage{}, invalidator)

	dto, err := svc.ChangeEmail(context.Background(), "subject-1", "alice.new@example.com")
	if err != nil {
		t.Fatalf("ChangeEmail: %v", err)
	}
	if dto.Email != "alice.new@example.com" {
		t.Fatalf("dto email not updated: %q", dto.Email)
	}
	if got := repo.accounts["subject-1"].Email; got != "alice.new@example.com" {
		t.Fatalf("stored email not updated: %q", got)
	}
	if len(provider.calls) != 1 || provider.calls[0].Email == nil || *provider.calls[0].Email != "alice.new@example.com" {
		t.Fatalf("provider not mirrored: %+v", provider.calls)
	}
	if len(invalidator.subjects) != 1 || invalidator.subjects[0] != "subject-1" {
		t.Fatalf("verification cache not invalidated: %v", invalidator.subjects)
	}
}

func TestChangeEmailRemoteFailureKeepsLocalWrite(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	provider := &fakeProvider{err: errors.New("provider down")}
	invalidator := &fakeInvalidator{}
	svc := newTestService(t, repo, provider, &fakeStorage{}, invalidator)

	_, err := svc.ChangeEmail(context.Background(), "subject-1", "alice.new@example.com")
	if !pkgerrors.IsCode(err, pkgerrors.CodeRemoteSync) {
		t.Fatalf("expected REMOTE_SYNC_FAILED, got %v", err)
	}

	if got := repo.accounts["subject-1"].Email; got != "alice.new@example.com" {
		t.Fatalf("local write should survive the remote failure, got %q", got)
	}

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["field"] != "email" {
		t.Fatalf("expected field detail %q, got %v", "email", details["field"])
	}
	account, ok := details["account"].(*AccountDTO)
	if !ok || account.Email != "alice.new@example.com" {
		t.Fatalf("expected committed account in details, got %v", details["account"])
	}
	if len(invalidator.subjects) != 0 {
		t.Fatalf("cache invalidated despite remote failure: %v", invalidator.subjects)
	}
}

func TestChangeEmailTakenLeavesStoreUnchanged(t *testing.T) {
	other := &models.Account{SubjectID: "subject-2", Email: "bob@example.com", Username: "bob"}
	repo := newFakeRepo(seedAccount(), other)
	provider := &fakeProvider{}
	svc := newTestService(t, repo, provider, &fakeStorage{}, nil)

	_, err := svc.ChangeEmail(context.Background(), "subject-1", "bob@example.com")
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmailTaken) {
		t.Fatalf("expected EMAIL_TAKEN, got %v", err)
	}
	if repo.updateCalls != 0 {
		t.Fatal("no local write should happen on a taken email")
	}
	if len(provider.calls) != 0 {
		t.Fatal("provider should not be called on a taken email")
	}
	if got := repo.accounts["subject-1"].Email; got != "alice@example.com" {
		t.Fatalf("original email mutated: %q", got)
	}
}

func TestChangeEmailValidation(t *testing.T) {
	svc := newTestService(t, newFakeRepo(seedAccount()), &fakeProvider{}, &fakeStorage{}, nil)

	for _, email := range []string{"", "   ", "missing-at-sign"} {
		if _, err := svc.ChangeEmail(context.Background(), "subject-1", email); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("email %q: expected VALIDATION_ERROR, got %v", email, err)
		}
	}
}

func TestChangeUsernameOnlyMutatesUsername(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	provider := &fakeProvider{}
	svc := newTestService(t, repo, provider, &fakeStorage{}, nil)

	dto, err := svc.ChangeUsername(context.Background(), "subject-1", "alice2")
	if err != nil {
		t.Fatalf("ChangeUsername: %v", err)
	}
	if dto.Username != "alice2" {
		t.Fatalf("username not updated: %q", dto.Username)
	}
	if dto.Email != "alice@example.com" {
		t.Fatalf("email mutated by username change: %q", dto.Email)
	}
	if len(provider.calls) != 1 || provider.calls[0].DisplayName == nil || *provider.calls[0].DisplayName != "alice2" {
		t.Fatalf("display name not mirrored: %+v", provider.calls)
	}
}

func TestChangeUsernameTaken(t *testing.T) {
	other := &models.Account{SubjectID: "subject-2", Email: "bob@example.com", Username: "bob"}
	repo := newFakeRepo(seedAccount(), other)
	svc := newTestService(t, repo, &fakeProvider{}, &fakeStorage{}, nil)

	_, err := svc.ChangeUsername(context.Background(), "subject-1", "bob")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUsernameTaken) {
		t.Fatalf("expected USERNAME_TAKEN, got %v", err)
	}
}

func TestChangeAvatarUploadsBeforeLocalWrite(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	provider := &fakeProvider{}
	storage := &fakeStorage{}
	svc := newTestService(t, repo, provider, storage, nil)

	dto, err := svc.ChangeAvatar(context.Background(), "subject-1", "me.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("ChangeAvatar: %v", err)
	}
	if len(storage.objects) != 1 {
		t.Fatalf("expected one upload, got %d", len(storage.objects))
	}
	object := storage.objects[0]
	if !strings.HasPrefix(object, "avatars/subject-1/") || !strings.HasSuffix(object, ".png") {
		t.Fatalf("unexpected object name %q", object)
	}
	if dto.AvatarURL == nil || *dto.AvatarURL == "" {
		t.Fatal("avatar url not set")
	}
	if len(provider.calls) != 1 || provider.calls[0].PhotoURL == nil {
		t.Fatalf("photo url not mirrored: %+v", provider.calls)
	}
}

func TestChangeAvatarUploadFailureSkipsLocalWrite(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	storage := &fakeStorage{err: errors.New("bucket unavailable")}
	svc := newTestService(t, repo, &fakeProvider{}, storage, nil)

	_, err := svc.ChangeAvatar(context.Background(), "subject-1", "me.png", "image/png", strings.NewReader("png-bytes"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if repo.updateCalls != 0 {
		t.Fatal("account row written despite failed upload")
	}
}

func TestChangeAvatarRemoteFailureKeepsLocalWrite(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	provider := &fakeProvider{err: errors.New("provider down")}
	svc := newTestService(t, repo, provider, &fakeStorage{}, nil)

	_, err := svc.ChangeAvatar(context.Background(), "subject-1", "me.png", "image/png", strings.NewReader("png-bytes"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeRemoteSync) {
		t.Fatalf("expected REMOTE_SYNC_FAILED, got %v", err)
	}
	if repo.accounts["subject-1"].AvatarURL == nil {
		t.Fatal("local avatar url should survive the remote failure")
	}
}

func TestUpdatePersonalInfoSkipsProvider(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	provider := &fakeProvider{}
	svc := newTestService(t, repo, provider, &fakeStorage{}, nil)

	first := "Alice"
	last := "Smith"
	dto, err := svc.UpdatePersonalInfo(context.Background(), "subject-1", PersonalInfoInput{
		FirstName: &first,
		LastName:  &last,
	})
	if err != nil {
		t.Fatalf("UpdatePersonalInfo: %v", err)
	}
	if dto.FirstName == nil || *dto.FirstName != "Alice" {
		t.Fatalf("first name not updated: %v", dto.FirstName)
	}
	if len(provider.calls) != 0 {
		t.Fatal("personal info must not be mirrored to the provider")
	}
}

func TestAccountNotFound(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeProvider{}, &fakeStorage{}, nil)

	_, err := svc.Account(context.Background(), "ghost")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteRemovesLocalRecordOnly(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	provider := &fakeProvider{}
	svc := newTestService(t, repo, provider, &fakeStorage{}, nil)

	if err := svc.Delete(context.Background(), "subject-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.accounts["subject-1"]; ok {
		t.Fatal("account still present after delete")
	}
	if len(provider.calls) != 0 {
		t.Fatal("delete must not touch the provider record")
	}

	if err := svc.Delete(context.Background(), "subject-1"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND on second delete, got %v", err)
	}
}

func TestAvailabilityChecksAreReadOnly(t *testing.T) {
	repo := newFakeRepo(seedAccount())
	svc := newTestService(t, repo, &fakeProvider{}, &fakeStorage{}, nil)

	for i := 0; i < 3; i++ {
		available, err := svc.EmailAvailable(context.Background(), "alice@example.com")
		if err != nil {
			t.Fatalf("EmailAvailable: %v", err)
		}
		if available {
			t.Fatal("seeded email reported available")
		}
	}

	available, err := svc.UsernameAvailable(context.Background(), "brand-new")
	if err != nil {
		t.Fatalf("UsernameAvailable: %v", err)
	}
	if !available {
		t.Fatal("fresh username reported taken")
	}
	if len(repo.accounts) != 1 {
		t.Fatal("availability check mutated the store")
	}
}

func TestContactsProjectsAccounts(t *testing.T) {
	first := "Alice"
	last := "Smith"
	account := seedAccount()
	account.FirstName = &first
	account.LastName = &last

	repo := newFakeRepo(account)
	svc := newTestService(t, repo, &fakeProvider{}, &fakeStorage{}, nil)

	contacts, err := svc.Contacts(context.Background(), "ali", pagination.Page{})
	if err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(contacts))
	}
	if contacts[0].Name != "Alice Smith" {
		t.Fatalf("expected combined name, got %q", contacts[0].Name)
	}
}
