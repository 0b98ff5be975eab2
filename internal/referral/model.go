package referral

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/pkg/id"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request asks Target to accept Requester as their referrer.
type Request struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID uuid.UUID  `gorm:"type:uuid;index;not null" json:"requesterId"`
	TargetID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"targetId"`
	Status      Status     `gorm:"index;not null" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`
}

func (Request) TableName() string {
	return "referral_requests"
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = id.Generate()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

// Member is a referred user as shown to their referrer.
type Member struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joinedAt"`
}
