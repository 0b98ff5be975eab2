package wallet

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/zjoart/go-invest-ledger/pkg/id"
)

type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance"`
	Currency  string          `gorm:"not null" json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = id.Generate()
	}
	return nil
}

type TransactionType string

const (
	TransactionDeposit        TransactionType = "deposit"
	TransactionWithdrawal     TransactionType = "withdrawal"
	TransactionInvestment     TransactionType = "investment"
	TransactionIncome         TransactionType = "income"
	TransactionReferralIncome TransactionType = "referral_income"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdrawal, TransactionInvestment, TransactionIncome, TransactionReferralIncome:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRevoked   TransactionStatus = "revoked"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionFailed, TransactionRevoked:
		return true
	}
	return false
}

// Detail keys with meaning to the ledger itself.
const (
	DetailTID                  = "tid"
	DetailReason               = "reason"
	DetailReviewedBy           = "reviewedBy"
	DetailReviewedAt           = "reviewedAt"
	DetailRevokedTransactionID = "revokedTransactionId"
	DetailKind                 = "kind"
	DetailAccountID            = "accountId"
	DetailSourceTransactionID  = "sourceTransactionId"
	DetailFromUserID           = "fromUserId"
)

const KindAdjustment = "adjustment"

type Transaction struct {
	ID       string            `gorm:"primaryKey;size:26" json:"id"`
	WalletID uuid.UUID         `gorm:"type:uuid;index;not null" json:"walletId"`
	UserID   uuid.UUID         `gorm:"type:uuid;index;not null" json:"userId"`
	Type     TransactionType   `gorm:"index;not null" json:"type"`
	Amount   decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"amount"`
	Status   TransactionStatus `gorm:"index;not null" json:"status"`
	// Reference mirrors details.tid; at most one completed record may carry a given value.
	Reference *string   `gorm:"uniqueIndex:idx_transactions_completed_reference,where:status = 'completed'" json:"-"`
	Details   Details   `json:"details"`
	Date      time.Time `gorm:"index;not null" json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = id.NewULID()
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	if t.Details == nil {
		t.Details = Details{}
	}
	t.syncReference()
	return nil
}

func (t *Transaction) syncReference() {
	if tid := t.Details.String(DetailTID); tid != "" {
		t.Reference = &tid
		return
	}
	t.Reference = nil
}

// InRevocation reports whether t is either half of a revocation: the revoked
// original or its compensating withdrawal. Both stay as recorded.
func (t *Transaction) InRevocation() bool {
	return t.Status == TransactionRevoked || t.Details.String(DetailRevokedTransactionID) != ""
}

// TID is the external payment reference supplied by the depositor.
func (t *Transaction) TID() string {
	return t.Details.String(DetailTID)
}

// Details is the free-form attribute map stored with every transaction.
type Details datatypes.JSONMap

func (d Details) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Value stores a nil map as an empty object so the column stays non-null.
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return datatypes.JSONMap(d).Value()
}

func (d *Details) Scan(value interface{}) error {
	var m datatypes.JSONMap
	if err := m.Scan(value); err != nil {
		return fmt.Errorf("decode details: %w", err)
	}
	*d = Details(m)
	return nil
}

func (Details) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSONMap{}.GormDBDataType(db, field)
}

// Summary holds the wallet balance with totals derived from history.
type Summary struct {
	Balance           decimal.Decimal `json:"balance"`
	Currency          string          `json:"currency"`
	TotalDeposit      decimal.Decimal `json:"totalDeposit"`
	TotalWithdrawal   decimal.Decimal `json:"totalWithdrawal"`
	TotalInvestment   decimal.Decimal `json:"totalInvestment"`
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	ReferralIncome    decimal.Decimal `json:"referralIncome"`
	PendingDeposit    decimal.Decimal `json:"pendingDeposit"`
	PendingWithdrawal decimal.Decimal `json:"pendingWithdrawal"`
}

// TransactionFilter narrows a transaction listing. Zero values match all.
type TransactionFilter struct {
	UserID *uuid.UUID
	Status TransactionStatus
	Type   TransactionType
	Limit  int
	Offset int
}
