package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_STUDENT   = "student"
	ROLE_RECRUITER = "recruiter"
	ROLE_ADMIN     = "admin"
	ROLE_AFFILIATE = "affiliate"
	ROLE_MARKETER  = "marketer"
)

// Account status projected from billing state. A paying user is approved,
// a lapsed user is on hold, everyone else is pending.
const (
	STATUS_PENDING  = "pending"
	STATUS_APPROVED = "approved"
	STATUS_ON_HOLD  = "on_hold"
)

type User struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	Name                  string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                 string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password              string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                  string         `gorm:"type:varchar(50);default:'student'" json:"role" validate:"oneof=student recruiter admin affiliate marketer"`
	Status                string         `gorm:"type:varchar(50);default:'pending';index" json:"status" validate:"oneof=pending approved on_hold"`
	StripeCustomerID      *string        `gorm:"type:varchar(191);index" json:"stripe_customer_id,omitempty"`
	IsPaid                bool           `gorm:"default:false;index" json:"is_paid"`
	NextBillingAt         *time.Time     `gorm:"type:timestamp;default:null" json:"next_billing_at,omitempty"`
	CancellationRequested bool           `gorm:"default:false" json:"cancellation_requested"`
	Bio                   string         `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`
	AvatarURL             string         `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	ActivationToken       string         `gorm:"type:varchar(100);index" json:"-"`
	ActivationSentAt      *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt           *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(name string, email string, password string, role string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = ROLE_STUDENT
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: pw,
		Role:     role,
		Status:   STATUS_PENDING,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// IsApproved reports whether the user currently has an approved (paid) account.
func (u *User) IsApproved() bool {
	return u.Status == STATUS_APPROVED
}
