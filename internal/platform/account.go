package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/id"
)

var ErrAccountNotFound = fmt.Errorf("payment account %w", wallet.ErrNotFound)

// PaymentAccount is a destination users transfer deposits to off-platform.
type PaymentAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Method        string    `gorm:"not null" json:"method"`
	Title         string    `gorm:"not null" json:"title"`
	AccountName   string    `gorm:"not null" json:"accountName"`
	AccountNumber string    `gorm:"not null" json:"accountNumber"`
	Active        bool      `gorm:"index;not null" json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (a *PaymentAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = id.Generate()
	}
	return nil
}

func (a PaymentAccount) validate() error {
	if strings.TrimSpace(a.Method) == "" || strings.TrimSpace(a.AccountName) == "" || strings.TrimSpace(a.AccountNumber) == "" {
		return fmt.Errorf("%w: method, account name and account number are required", wallet.ErrValidationFailed)
	}
	return nil
}

type Repository interface {
	Create(ctx context.Context, account *PaymentAccount) error
	Save(ctx context.Context, account *PaymentAccount) error
	Get(ctx context.Context, id uuid.UUID) (*PaymentAccount, error)
	List(ctx context.Context, activeOnly bool) ([]PaymentAccount, error)
	IsActive(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, account *PaymentAccount) error {
	if err := account.validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) Save(ctx context.Context, account *PaymentAccount) error {
	if err := account.validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*PaymentAccount, error) {
	var account PaymentAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]PaymentAccount, error) {
	var accounts []PaymentAccount
	query := r.db.WithContext(ctx).Order("created_at asc")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Find(&accounts).Error
	return accounts, err
}

// IsActive reports whether id names an account currently accepting deposits.
// Malformed ids are simply not active.
func (r *repository) IsActive(ctx context.Context, id string) (bool, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}

	var count int64
	err = r.db.WithContext(ctx).Model(&PaymentAccount{}).
		Where("id = ? AND active = ?", accountID, true).
		Count(&count).Error
	return count > 0, err
}
