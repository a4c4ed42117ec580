package accounts

import (
	"time"

	"github.com/Marlon-Urena/userAccountService/pkg/db/models"
)

// AccountDTO is the transport shape of the full profile record.
type AccountDTO struct {
	SubjectID    string    `json:"subject_id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	Address      *string   `json:"address,omitempty"`
	City         *string   `json:"city,omitempty"`
	State        *string   `json:"state,omitempty"`
	Country      *string   `json:"country,omitempty"`
	ZipCode      *string   `json:"zip_code,omitempty"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContactDTO is the read-only listing projection of an account. It is
// computed per response and never stored.
type ContactDTO struct {
	SubjectID    string    `json:"subject_id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
}

// CreateAccountInput holds the data required to register a new account.
type CreateAccountInput struct {
	SubjectID   string
	Email       string
	Username    string
	FirstName   *string
	LastName    *string
	Address     *string
	City        *string
	State       *string
	Country     *string
	ZipCode     *string
	PhoneNumber *string
}

// UpdateAccountInput captures the mutable fields for a full-record update.
// Email and username have dedicated change operations and are excluded.
type UpdateAccountInput struct {
	FirstName   *string
	LastName    *string
	Address     *string
	City        *string
	State       *string
	Country     *string
	ZipCode     *string
	PhoneNumber *string
	Status      *string
}

// PersonalInfoInput carries the descriptive fields that are not mirrored
// to the identity provider.
type PersonalInfoInput struct {
	FirstName *string
	LastName  *string
	Address   *string
	City      *string
	State     *string
	Country   *string
	ZipCode   *string
}

func (c CreateAccountInput) ToModel() *models.Account {
	return &models.Account{
		SubjectID:   c.SubjectID,
		Email:       c.Email,
		Username:    c.Username,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Address:     c.Address,
		City:        c.City,
		State:       c.State,
		Country:     c.Country,
		ZipCode:     c.ZipCode,
		PhoneNumber: c.PhoneNumber,
		Status:      models.StatusOffline,
	}
}

func FromModel(a *models.Account) *AccountDTO {
	if a == nil {
		return nil
	}

	return &AccountDTO{
		SubjectID:    a.SubjectID,
		Email:        a.Email,
		Username:     a.Username,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Address:      a.Address,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
		ZipCode:      a.ZipCode,
		PhoneNumber:  a.PhoneNumber,
		AvatarURL:    a.AvatarURL,
		Status:       a.Status,
		LastActivity: a.LastActivity,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func ContactFromModel(a *models.Account) ContactDTO {
	return ContactDTO{
		SubjectID:    a.SubjectID,
		Email:        a.Email,
		Username:     a.Username,
		Name:         displayName(a.FirstName, a.LastName),
		AvatarURL:    a.AvatarURL,
		Status:       a.Status,
		LastActivity: a.LastActivity,
	}
}

// displayName concatenates first and last name, or falls back to the
// empty string when either half is absent.
func displayName(first, last *string) string {
	if first == nil || last == nil || *first == "" || *last == "" {
		return ""
	}
	return *first + " " + *last
}
