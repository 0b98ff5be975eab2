package investment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/pkg/id"
)

type Plan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price"`
	DailyProfit  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"dailyProfit"`
	DurationDays int             `gorm:"not null" json:"durationDays"`
	Active       bool            `gorm:"index;not null" json:"active"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = id.Generate()
	}
	return nil
}

// TotalReturn is what the plan pays out over its whole duration.
func (p Plan) TotalReturn() decimal.Decimal {
	return p.DailyProfit.Mul(decimal.NewFromInt(int64(p.DurationDays)))
}

type Status string

const (
	StatusActive  Status = "active"
	StatusMatured Status = "matured"
)

// Investment snapshots the plan terms at purchase so later plan edits do
// not change what an investor is owed.
type Investment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"userId"`
	PlanID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"planId"`
	PlanName      string          `json:"planName"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	DailyProfit   decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"dailyProfit"`
	DurationDays  int             `gorm:"not null" json:"durationDays"`
	ClaimedDays   int             `gorm:"not null" json:"claimedDays"`
	Status        Status          `gorm:"index;not null" json:"status"`
	TransactionID string          `gorm:"size:26" json:"transactionId"`
	StartedAt     time.Time       `gorm:"not null" json:"startedAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = id.Generate()
	}
	if i.Status == "" {
		i.Status = StatusActive
	}
	if i.StartedAt.IsZero() {
		i.StartedAt = time.Now().UTC()
	}
	return nil
}

// DueDays is the number of whole days earned by now and not yet claimed.
func (i Investment) DueDays(now time.Time) int {
	elapsed := int(now.Sub(i.StartedAt) / (24 * time.Hour))
	if elapsed > i.DurationDays {
		elapsed = i.DurationDays
	}
	if due := elapsed - i.ClaimedDays; due > 0 {
		return due
	}
	return 0
}
