package models

import "time"

// StatusOffline is the presence value assigned to new accounts.
const StatusOffline = "offline"

// Account is the durable profile record. The primary key is the subject
// identifier assigned by the identity provider; it is never regenerated
// and never reused.
type Account struct {
	SubjectID string `gorm:"column:subject_id;primaryKey"`
	Email     string `gorm:"type:text;not null;uniqueIndex:uq_accounts_email"`
	Username  string `gorm:"type:text;not null;uniqueIndex:uq_accounts_username"`

	FirstName   *string `gorm:"column:first_name"`
	LastName    *string `gorm:"column:last_name"`
	Address     *string `gorm:"column:address"`
	City        *string `gorm:"column:city"`
	State       *string `gorm:"column:state"`
	Country     *string `gorm:"column:country"`
	ZipCode     *string `gorm:"column:zip_code"`
	PhoneNumber *string `gorm:"column:phone_number"`
	AvatarURL   *string `gorm:"column:avatar_url"`

	Status       string    `gorm:"column:status;not null;default:offline"`
	LastActivity time.Time `gorm:"column:last_activity;autoCreateTime"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table to the name used by the migrations.
func (Account) TableName() string {
	return "user_accounts"
}
