package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zjoart/go-invest-ledger/pkg/database"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateWallet(ctx context.Context, wallet *Wallet) error
	GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	LockWalletByID(ctx context.Context, walletID uuid.UUID) (*Wallet, error)
	LockWalletByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error

	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	LockTransaction(ctx context.Context, id string) (*Transaction, error)
	TransitionStatus(ctx context.Context, tx *Transaction, from TransactionStatus) error
	SaveTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	CompletedReferenceExists(ctx context.Context, reference, excludeID string) (bool, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, int64, error)
	Totals(ctx context.Context, userID uuid.UUID) (Summary, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateWallet(ctx context.Context, wallet *Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var wallet Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, mapNotFound(err, ErrWalletNotFound)
	}
	return &wallet, nil
}

func (r *repository) LockWalletByID(ctx context.Context, walletID uuid.UUID) (*Wallet, error) {
	return r.lockWallet(ctx, "id = ?", walletID)
}

func (r *repository) LockWalletByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return r.lockWallet(ctx, "user_id = ?", userID)
}

func (r *repository) lockWallet(ctx context.Context, query string, arg interface{}) (*Wallet, error) {
	var wallet Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(query, arg).
		First(&wallet).Error
	if err != nil {
		return nil, mapNotFound(err, ErrWalletNotFound)
	}
	return &wallet, nil
}

func (r *repository) SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&Wallet{}).
		Where("id = ?", walletID).
		Update("balance", balance)
	if res.Error != nil {
		return fmt.Errorf("set balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return mapDuplicate(err)
	}
	return nil
}

func (r *repository) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	var tx Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}

func (r *repository) LockTransaction(ctx context.Context, id string) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&tx).Error
	if err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}

// TransitionStatus writes tx.Status and tx.Details only if the stored status
// is still from.
func (r *repository) TransitionStatus(ctx context.Context, tx *Transaction, from TransactionStatus) error {
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND status = ?", tx.ID, from).
		Updates(map[string]interface{}{
			"status":  tx.Status,
			"details": tx.Details,
		})
	if res.Error != nil {
		return mapDuplicate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s is no longer %s", ErrPreconditionFailed, tx.ID, from)
	}
	return nil
}

func (r *repository) SaveTransaction(ctx context.Context, tx *Transaction) error {
	tx.syncReference()
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ?", tx.ID).
		Updates(map[string]interface{}{
			"type":      tx.Type,
			"amount":    tx.Amount,
			"status":    tx.Status,
			"reference": tx.Reference,
			"details":   tx.Details,
		})
	if res.Error != nil {
		return mapDuplicate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repository) DeleteTransaction(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repository) CompletedReferenceExists(ctx context.Context, reference, excludeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("reference = ? AND status = ? AND id <> ?", reference, TransactionCompleted, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&Transaction{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var txs []Transaction
	query = query.Order("date desc").Order("id desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	err := query.Find(&txs).Error
	return txs, count, err
}

type totalRow struct {
	Type   TransactionType
	Status TransactionStatus
	Total  decimal.Decimal
}

// Totals derives the per-type sums of a user's history. Balance is left zero.
func (r *repository) Totals(ctx context.Context, userID uuid.UUID) (Summary, error) {
	var rows []totalRow
	err := r.db.WithContext(ctx).Model(&Transaction{}).
		Select("type, status, SUM(amount) AS total").
		Where("user_id = ? AND status IN ?", userID, []TransactionStatus{TransactionCompleted, TransactionPending}).
		Group("type, status").
		Scan(&rows).Error
	if err != nil {
		return Summary{}, fmt.Errorf("sum transactions: %w", err)
	}

	var s Summary
	for _, row := range rows {
		if row.Status == TransactionPending {
			switch row.Type {
			case TransactionDeposit:
				s.PendingDeposit = s.PendingDeposit.Add(row.Total)
			case TransactionWithdrawal:
				s.PendingWithdrawal = s.PendingWithdrawal.Add(row.Total)
			}
			continue
		}

		switch row.Type {
		case TransactionDeposit:
			s.TotalDeposit = s.TotalDeposit.Add(row.Total)
		case TransactionWithdrawal:
			s.TotalWithdrawal = s.TotalWithdrawal.Add(row.Total)
		case TransactionInvestment:
			s.TotalInvestment = s.TotalInvestment.Add(row.Total)
		case TransactionIncome:
			s.TotalIncome = s.TotalIncome.Add(row.Total)
		case TransactionReferralIncome:
			s.ReferralIncome = s.ReferralIncome.Add(row.Total)
			s.TotalIncome = s.TotalIncome.Add(row.Total)
		}
	}
	return s, nil
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func mapDuplicate(err error) error {
	if database.IsDuplicateKey(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateReference, err)
	}
	return err
}
