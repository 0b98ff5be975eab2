package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/pkg/events"
	"github.com/zjoart/go-invest-ledger/pkg/id"
)

type Notification struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	Event         string    `gorm:"not null" json:"event"`
	Title         string    `gorm:"not null" json:"title"`
	Body          string    `json:"body"`
	TransactionID string    `gorm:"size:26" json:"transactionId,omitempty"`
	Read          bool      `gorm:"column:is_read;index;not null" json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = id.Generate()
	}
	return nil
}

// FromEvent renders the message the affected user sees for a ledger event.
func FromEvent(e events.LedgerEvent) (*Notification, error) {
	userID, err := uuid.Parse(e.UserID)
	if err != nil {
		return nil, fmt.Errorf("event %s has invalid user id %q", e.Event, e.UserID)
	}

	n := &Notification{UserID: userID, Event: e.Event, TransactionID: e.TransactionID}
	switch e.Event {
	case events.EventDepositSubmitted:
		n.Title = "Deposit received"
		n.Body = fmt.Sprintf("Your deposit of %s is awaiting verification.", e.Amount)
	case events.EventWithdrawalSubmitted:
		n.Title = "Withdrawal requested"
		n.Body = fmt.Sprintf("Your withdrawal of %s is being processed.", e.Amount)
	case events.EventTransactionApproved:
		n.Title = "Transaction approved"
		n.Body = fmt.Sprintf("Your %s of %s has been approved.", e.Type, e.Amount)
	case events.EventTransactionRejected:
		n.Title = "Transaction rejected"
		n.Body = fmt.Sprintf("Your %s of %s was rejected.", e.Type, e.Amount)
	case events.EventTransactionRevoked:
		n.Title = "Deposit revoked"
		n.Body = fmt.Sprintf("Your deposit of %s was revoked and deducted from your balance.", e.Amount)
	case events.EventTransactionEdited:
		n.Title = "Transaction updated"
		n.Body = fmt.Sprintf("An administrator corrected your %s to %s (%s).", e.Type, e.Amount, e.Status)
	case events.EventTransactionDeleted:
		n.Title = "Transaction removed"
		n.Body = fmt.Sprintf("Your %s of %s was removed from your history.", e.Type, e.Amount)
	case events.EventBalanceAdjusted:
		n.Title = "Account updated"
		n.Body = fmt.Sprintf("Your %s was set to %s.", e.Note, e.Amount)
	case events.EventReferralIncome:
		n.Title = "Referral commission"
		n.Body = fmt.Sprintf("You earned %s from %s's deposit.", e.Amount, e.Note)
	case events.EventReferralRequested:
		n.Title = "Referral request"
		n.Body = fmt.Sprintf("%s wants to become your referrer.", e.Note)
	case events.EventReferralApproved:
		n.Title = "Referral accepted"
		n.Body = "Your referral request was accepted."
	case events.EventReferralRejected:
		n.Title = "Referral declined"
		n.Body = "Your referral request was declined."
	case events.EventInvestmentPurchased:
		n.Title = "Investment started"
		n.Body = fmt.Sprintf("You invested %s in %s.", e.Amount, e.Note)
	case events.EventInvestmentClaimed:
		n.Title = "Profit credited"
		n.Body = fmt.Sprintf("%s profit from %s was added to your balance.", e.Amount, e.Note)
	default:
		return nil, fmt.Errorf("unknown event %q", e.Event)
	}
	return n, nil
}
