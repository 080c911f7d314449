package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOthers = "OTHERS"
)

// User is an account owner. ID is internal and only ever travels inside
// signed tokens; UUID is the identifier exposed over the API.
type User struct {
	ID              uint      `json:"-" gorm:"primaryKey"`
	UUID            uuid.UUID `json:"uuid" gorm:"type:uuid;uniqueIndex;not null;<-:create"`
	Email           string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password        string    `json:"-" gorm:"size:255"`
	FirstName       string    `json:"first_name" gorm:"size:30"`
	LastName        string    `json:"last_name" gorm:"size:30"`
	PhoneNumber     string    `json:"phone_number,omitempty" gorm:"size:15"`
	Gender          string    `json:"gender,omitempty" gorm:"size:10"`
	GoogleID        *string   `json:"-" gorm:"uniqueIndex;size:64"`
	IsEmailVerified bool      `json:"is_email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		u.UUID = id
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// HasPassword reports whether the account can use password login.
// Accounts created through Google sign-in have no password hash.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOthers:
		return true
	}
	return false
}
