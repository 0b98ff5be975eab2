package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/events"
)

// Ledger applies balance changes within one database transaction. It is only
// valid inside the callback passed to Service.InTx.
type Ledger struct {
	tx      *gorm.DB
	repo    Repository
	users   user.Repository
	options Options
	events  []events.LedgerEvent
}

// Tx is the transaction the ledger writes through, for callers that need to
// persist their own records in the same unit of work.
func (l *Ledger) Tx() *gorm.DB {
	return l.tx
}

func (l *Ledger) Users() user.Repository {
	return l.users
}

// Emit queues an event for publication once the unit of work commits.
func (l *Ledger) Emit(event events.LedgerEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	l.events = append(l.events, event)
}

// OpenWallet creates the wallet of a new user and credits the welcome bonus
// as its first income record.
func (l *Ledger) OpenWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	w := &Wallet{UserID: userID, Balance: decimal.Zero, Currency: l.options.Currency}
	if err := l.repo.CreateWallet(ctx, w); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	if l.options.WelcomeBonus.IsPositive() {
		bonus := &Transaction{
			Type:    TransactionIncome,
			Amount:  l.options.WelcomeBonus,
			Status:  TransactionCompleted,
			Details: Details{DetailKind: "welcome_bonus"},
		}
		if err := l.record(ctx, w, bonus); err != nil {
			return nil, fmt.Errorf("welcome bonus: %w", err)
		}
	}
	return w, nil
}

// LockWallet reads the user's wallet and holds its row until commit.
func (l *Ledger) LockWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return l.repo.LockWalletByUserID(ctx, userID)
}

// Post records a completed transaction for userID and applies its effect.
// Debits require the locked balance to cover the amount.
func (l *Ledger) Post(ctx context.Context, userID uuid.UUID, txType TransactionType, amount decimal.Decimal, details Details) (*Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrValidationFailed, txType)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrValidationFailed)
	}

	w, err := l.LockWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	effect := SignedEffect(txType, amount)
	if effect.IsNegative() && w.Balance.Add(effect).IsNegative() {
		return nil, ErrInsufficientFunds
	}

	t := &Transaction{Type: txType, Amount: amount, Status: TransactionCompleted, Details: details}
	if err := l.record(ctx, w, t); err != nil {
		return nil, err
	}
	return t, nil
}

// record inserts t for w and applies whatever t contributes to the balance.
func (l *Ledger) record(ctx context.Context, w *Wallet, t *Transaction) error {
	t.WalletID = w.ID
	t.UserID = w.UserID
	if err := l.repo.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return l.apply(ctx, w, LedgerEffect(*t))
}

// apply adds delta to the locked wallet w and persists the new balance.
func (l *Ledger) apply(ctx context.Context, w *Wallet, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	w.Balance = w.Balance.Add(delta)
	if err := l.repo.SetBalance(ctx, w.ID, w.Balance); err != nil {
		return fmt.Errorf("apply delta %s: %w", delta, err)
	}
	return nil
}

// checkReference fails when another completed record already carries t's tid.
func (l *Ledger) checkReference(ctx context.Context, t *Transaction) error {
	if t.Type != TransactionDeposit || t.Status != TransactionCompleted {
		return nil
	}
	tid := t.TID()
	if tid == "" {
		return nil
	}

	exists, err := l.repo.CompletedReferenceExists(ctx, tid, t.ID)
	if err != nil {
		return fmt.Errorf("check reference: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: tid %s already completed", ErrDuplicateReference, tid)
	}
	return nil
}

// lockForUpdate locks a transaction and then its wallet, always in that order.
func (l *Ledger) lockForUpdate(ctx context.Context, txID string) (*Transaction, *Wallet, error) {
	t, err := l.repo.LockTransaction(ctx, txID)
	if err != nil {
		return nil, nil, err
	}
	w, err := l.repo.LockWalletByID(ctx, t.WalletID)
	if err != nil {
		return nil, nil, err
	}
	return t, w, nil
}

// payCommission credits the depositor's referrer with their share of a
// completed deposit.
func (l *Ledger) payCommission(ctx context.Context, deposit *Transaction) error {
	percent := l.options.ReferralCommissionPercent
	if !percent.IsPositive() {
		return nil
	}

	depositor, err := l.users.FindByID(ctx, deposit.UserID.String())
	if err != nil {
		return fmt.Errorf("load depositor: %w", err)
	}
	if depositor.ReferrerID == nil {
		return nil
	}

	commission := deposit.Amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
	if !commission.IsPositive() {
		return nil
	}

	t, err := l.Post(ctx, *depositor.ReferrerID, TransactionReferralIncome, commission, Details{
		DetailFromUserID:          depositor.ID.String(),
		DetailSourceTransactionID: deposit.ID,
		"percent":                 percent.String(),
	})
	if err != nil {
		return fmt.Errorf("post commission: %w", err)
	}
	if err := l.users.AddReferralIncome(ctx, *depositor.ReferrerID, commission); err != nil {
		return fmt.Errorf("add referral income: %w", err)
	}

	l.Emit(events.LedgerEvent{
		Event:         events.EventReferralIncome,
		UserID:        depositor.ReferrerID.String(),
		TransactionID: t.ID,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Amount:        commission.String(),
		Note:          depositor.Name,
	})
	return nil
}
