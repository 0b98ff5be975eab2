package key

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/zjoart/go-invest-ledger/pkg/id"
)

type APIKey struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"userId"`
	Key         string         `gorm:"uniqueIndex;not null" json:"-"`
	MaskedKey   string         `json:"maskedKey"`
	Permissions PermissionList `json:"permissions"`
	Name        string         `json:"name"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	IsRevoked   bool           `gorm:"not null" json:"isRevoked"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = id.Generate()
	}
	return nil
}

// PermissionList is stored as a text[] column on PostgreSQL and as its
// array literal elsewhere.
type PermissionList []string

func (p PermissionList) Value() (driver.Value, error) {
	return pq.StringArray(p).Value()
}

func (p *PermissionList) Scan(src interface{}) error {
	return (*pq.StringArray)(p).Scan(src)
}

func (PermissionList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "TEXT"
}

type Permission string

const (
	PermissionRead   Permission = "READ"
	PermissionReview Permission = "REVIEW"
	PermissionAdjust Permission = "ADJUST"
)

func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionReview || p == PermissionAdjust
}

func (l PermissionList) Has(p Permission) bool {
	for _, v := range l {
		if Permission(v) == p {
			return true
		}
	}
	return false
}
