package user

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/pkg/id"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent || r == RoleAdmin
}

// IsReviewer reports whether the role may decide pending transactions.
func (r Role) IsReviewer() bool {
	return r == RoleAgent || r == RoleAdmin
}

type User struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string          `gorm:"not null" json:"name"`
	Email          string          `gorm:"uniqueIndex;not null" json:"email"`
	Phone          string          `json:"phone,omitempty"`
	PasswordHash   string          `json:"-"`
	GoogleID       *string         `gorm:"uniqueIndex" json:"-"`
	Role           Role            `gorm:"not null;index" json:"role"`
	ReferralCode   string          `gorm:"uniqueIndex;not null" json:"referralCode"`
	ReferrerID     *uuid.UUID      `gorm:"type:uuid;index" json:"referrerId,omitempty"`
	ReferralCount  int             `gorm:"not null" json:"referralCount"`
	ReferralIncome decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"referralIncome"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = id.Generate()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.ReferralCode == "" {
		u.ReferralCode = generateReferralCode()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateReferralCode() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	for i := range b {
		b[i] = referralAlphabet[int(b[i])%len(referralAlphabet)]
	}
	return string(b)
}
