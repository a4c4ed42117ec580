package accounts

import (
	"context"
	"strings"

	"github.com/Marlon-Urena/userAccountService/pkg/db/models"
	"github.com/Marlon-Urena/userAccountService/pkg/pagination"
	"gorm.io/gorm"
)

// Repository exposes account persistence operations. It enforces no
// business rules; uniqueness is backed by the database indexes.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an accounts repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindBySubjectID loads an account by its provider-assigned key.
func (r *Repository) FindBySubjectID(ctx context.Context, subjectID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "subject_id = ?", subjectID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Create inserts a new account and returns the persisted model.
func (r *Repository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// Update replaces the full record.
func (r *Repository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// Delete removes the account row for the subject.
func (r *Repository) Delete(ctx context.Context, subjectID string) error {
	return r.db.WithContext(ctx).
		Delete(&models.Account{}, "subject_id = ?", subjectID).Error
}

// ExistsByEmail reports whether any account holds the given email.
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// ExistsByUsername reports whether any account holds the given username.
func (r *Repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

// Search lists accounts ordered by username ascending. A non-empty query
// applies a case-insensitive substring match on username; an empty query
// returns the full listing. Pages offer no duplicate/skip guarantee under
// concurrent unrelated writes.
func (r *Repository) Search(ctx context.Context, query string, page pagination.Page) ([]models.Account, error) {
	page = page.Normalize()

	tx := r.db.WithContext(ctx).Model(&models.Account{})
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		tx = tx.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(trimmed)+"%")
	}

	var accounts []models.Account
	err := tx.Order("username asc").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&accounts).Error
	return accounts, err
}
