package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/database"
	"github.com/zjoart/go-invest-ledger/pkg/events"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/metrics"
)

type Options struct {
	Currency                  string
	Deposit                   AmountLimits
	Withdrawal                AmountLimits
	WelcomeBonus              decimal.Decimal
	ReferralCommissionPercent decimal.Decimal
	TxRetries                 int
}

// Statistic fields an administrator may set on a user.
const (
	StatTotalIncome    = "totalIncome"
	StatTotalDeposit   = "totalDeposit"
	StatBalance        = "balance"
	StatReferralCount  = "referralCount"
	StatReferralIncome = "referralIncome"
)

type Service struct {
	db        *gorm.DB
	repo      Repository
	users     user.Repository
	publisher events.Publisher
	options   Options
}

func NewService(db *gorm.DB, repo Repository, users user.Repository, publisher events.Publisher, options Options) *Service {
	if options.Currency == "" {
		options.Currency = "PKR"
	}
	return &Service{db: db, repo: repo, users: users, publisher: publisher, options: options}
}

// InTx runs fn as one atomic unit of work and publishes the events it emitted
// once the transaction has committed.
func (s *Service) InTx(ctx context.Context, fn func(l *Ledger) error) error {
	var led *Ledger
	err := database.WithTx(ctx, s.db, s.options.TxRetries, func(tx *gorm.DB) error {
		led = &Ledger{
			tx:      tx,
			repo:    s.repo.WithTx(tx),
			users:   s.users.WithTx(tx),
			options: s.options,
		}
		return fn(led)
	})
	if err != nil {
		return err
	}

	for _, event := range led.events {
		events.Publish(ctx, s.publisher, event)
	}
	return nil
}

func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetWalletByUserID(ctx, userID)
}

func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	summary, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	summary.Balance = w.Balance
	summary.Currency = w.Currency
	return summary, nil
}

func (s *Service) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, txID)
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]Transaction, int64, error) {
	filter.UserID = &userID
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) ListAll(ctx context.Context, filter TransactionFilter) ([]Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// SubmitDeposit records a pending deposit the user claims to have paid
// off-platform under the external reference tid.
func (s *Service) SubmitDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, tid string, details Details) (tx *Transaction, err error) {
	defer func() { metrics.ObserveLedger("submit_deposit", err) }()

	if err := ValidateAmount(amount, s.options.Deposit); err != nil {
		return nil, err
	}
	tid = strings.TrimSpace(tid)
	if tid == "" {
		return nil, fmt.Errorf("%w: transaction id (tid) is required", ErrValidationFailed)
	}

	d := Details{}
	for k, v := range details {
		d[k] = v
	}
	d[DetailTID] = tid

	err = s.InTx(ctx, func(l *Ledger) error {
		w, err := l.repo.GetWalletByUserID(ctx, userID)
		if err != nil {
			return err
		}

		// a tid that already completed can never be approved again
		if err := l.checkReference(ctx, &Transaction{Type: TransactionDeposit, Status: TransactionCompleted, Details: d}); err != nil {
			return err
		}

		tx = &Transaction{Type: TransactionDeposit, Amount: amount, Status: TransactionPending, Details: d}
		if err := l.record(ctx, w, tx); err != nil {
			return err
		}

		l.Emit(txEvent(events.EventDepositSubmitted, tx))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deposit submitted", logger.Fields{logger.TransactionIDKey: tx.ID, logger.UserIdKey: userID.String(), "amount": amount.String()})
	return tx, nil
}

// SubmitWithdrawal debits the requested amount immediately and records a
// pending withdrawal; rejection refunds it.
func (s *Service) SubmitWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, details Details) (tx *Transaction, err error) {
	defer func() { metrics.ObserveLedger("submit_withdrawal", err) }()

	if err := ValidateAmount(amount, s.options.Withdrawal); err != nil {
		return nil, err
	}

	err = s.InTx(ctx, func(l *Ledger) error {
		w, err := l.LockWallet(ctx, userID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		tx = &Transaction{Type: TransactionWithdrawal, Amount: amount, Status: TransactionPending, Details: details}
		if err := l.record(ctx, w, tx); err != nil {
			return err
		}

		l.Emit(txEvent(events.EventWithdrawalSubmitted, tx))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Withdrawal submitted", logger.Fields{logger.TransactionIDKey: tx.ID, logger.UserIdKey: userID.String(), "amount": amount.String()})
	return tx, nil
}

// Approve completes a pending deposit or withdrawal.
func (s *Service) Approve(ctx context.Context, txID string, reviewerID uuid.UUID) (*Transaction, error) {
	tx, err := s.decide(ctx, txID, reviewerID, TransactionCompleted, "")
	metrics.ObserveLedger("approve", err)
	return tx, err
}

// Reject fails a pending deposit or withdrawal, refunding a withdrawal.
func (s *Service) Reject(ctx context.Context, txID string, reviewerID uuid.UUID, reason string) (*Transaction, error) {
	tx, err := s.decide(ctx, txID, reviewerID, TransactionFailed, reason)
	metrics.ObserveLedger("reject", err)
	return tx, err
}

func (s *Service) decide(ctx context.Context, txID string, reviewerID uuid.UUID, to TransactionStatus, reason string) (*Transaction, error) {
	var (
		tx    *Transaction
		delta decimal.Decimal
	)

	err := s.InTx(ctx, func(l *Ledger) error {
		t, w, err := l.lockForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if t.Status != TransactionPending {
			return fmt.Errorf("%w: transaction %s is already %s", ErrPreconditionFailed, t.ID, t.Status)
		}
		if t.Type != TransactionDeposit && t.Type != TransactionWithdrawal {
			return fmt.Errorf("%w: %s transactions are not reviewed", ErrPreconditionFailed, t.Type)
		}

		before := *t
		t.Status = to
		t.Details = withReview(t.Details, reviewerID, reason)

		if err := l.checkReference(ctx, t); err != nil {
			return err
		}
		if err := l.repo.TransitionStatus(ctx, t, TransactionPending); err != nil {
			return err
		}

		delta = Delta(before, *t)
		if err := l.apply(ctx, w, delta); err != nil {
			return err
		}

		if t.Type == TransactionDeposit && t.Status == TransactionCompleted {
			if err := l.payCommission(ctx, t); err != nil {
				return err
			}
		}

		event := events.EventTransactionApproved
		if to == TransactionFailed {
			event = events.EventTransactionRejected
		}
		l.Emit(txEvent(event, t))

		tx = t
		return nil
	})
	if err != nil {
		logger.Warn("Transaction review failed", logger.Merge(logger.WithError(err), logger.Fields{
			logger.TransactionIDKey: txID,
			"to":                    string(to),
		}))
		return nil, err
	}

	logger.Info("Transaction reviewed", logger.Fields{
		logger.TransactionIDKey: tx.ID,
		logger.UserIdKey:        tx.UserID.String(),
		"status":                string(tx.Status),
		"delta":                 delta.String(),
		"reviewer":              reviewerID.String(),
	})
	return tx, nil
}

// Revoke reverses a completed deposit. The original is kept as a revoked
// record and a completed withdrawal of the same amount carries the debit.
func (s *Service) Revoke(ctx context.Context, txID string, reviewerID uuid.UUID, reason string) (original, compensation *Transaction, err error) {
	defer func() { metrics.ObserveLedger("revoke", err) }()

	err = s.InTx(ctx, func(l *Ledger) error {
		t, w, err := l.lockForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if t.Type != TransactionDeposit || t.Status != TransactionCompleted {
			return fmt.Errorf("%w: only completed deposits can be revoked, transaction is a %s %s", ErrPreconditionFailed, t.Status, t.Type)
		}

		before := *t
		t.Status = TransactionRevoked
		t.Details = withReview(t.Details, reviewerID, reason)
		if err := l.repo.TransitionStatus(ctx, t, TransactionCompleted); err != nil {
			return err
		}
		if err := l.apply(ctx, w, Delta(before, *t)); err != nil {
			return err
		}

		note := fmt.Sprintf("Revoked deposit %s", t.TID())
		if reason != "" {
			note += ": " + reason
		}
		comp := &Transaction{
			Type:   TransactionWithdrawal,
			Amount: t.Amount,
			Status: TransactionCompleted,
			Details: Details{
				DetailReason:               note,
				DetailRevokedTransactionID: t.ID,
				DetailReviewedBy:           reviewerID.String(),
			},
		}
		if err := l.record(ctx, w, comp); err != nil {
			return err
		}

		l.Emit(txEvent(events.EventTransactionRevoked, t))
		original, compensation = t, comp
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Deposit revoked", logger.Fields{
		logger.TransactionIDKey: original.ID,
		logger.UserIdKey:        original.UserID.String(),
		"compensation":          compensation.ID,
		"amount":                original.Amount.String(),
	})
	return original, compensation, nil
}

// EditInput carries an administrative correction. Nil fields keep their value.
type EditInput struct {
	Amount *decimal.Decimal
	Type   *TransactionType
	Status *TransactionStatus
}

// Edit rewrites amount, type or status and moves the balance by the
// difference between what the record contributed before and after.
func (s *Service) Edit(ctx context.Context, txID string, in EditInput) (tx *Transaction, err error) {
	defer func() { metrics.ObserveLedger("edit", err) }()

	if in.Amount != nil && (in.Amount.IsNegative() || !in.Amount.Equal(in.Amount.Round(2))) {
		return nil, fmt.Errorf("%w: amount must be a non-negative value with at most two decimals", ErrValidationFailed)
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrValidationFailed, *in.Type)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction status %q", ErrValidationFailed, *in.Status)
	}
	if in.Status != nil && *in.Status == TransactionRevoked {
		return nil, fmt.Errorf("%w: deposits are revoked through revoke, not edit", ErrValidationFailed)
	}

	var delta decimal.Decimal
	err = s.InTx(ctx, func(l *Ledger) error {
		t, w, err := l.lockForUpdate(ctx, txID)
		if err != nil {
			return err
		}

		if t.InRevocation() {
			return fmt.Errorf("%w: transaction %s belongs to a revocation and cannot be edited", ErrPreconditionFailed, t.ID)
		}

		before := *t
		if in.Amount != nil {
			t.Amount = *in.Amount
		}
		if in.Type != nil {
			t.Type = *in.Type
		}
		if in.Status != nil {
			t.Status = *in.Status
		}

		if err := l.checkReference(ctx, t); err != nil {
			return err
		}
		if err := l.repo.SaveTransaction(ctx, t); err != nil {
			return err
		}

		delta = Delta(before, *t)
		if err := l.apply(ctx, w, delta); err != nil {
			return err
		}

		l.Emit(txEvent(events.EventTransactionEdited, t))
		tx = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Transaction edited", logger.Fields{logger.TransactionIDKey: tx.ID, "delta": delta.String()})
	return tx, nil
}

// Delete removes a record and takes back whatever it contributed. A pending
// withdrawal is refunded, since its amount was held on submit.
func (s *Service) Delete(ctx context.Context, txID string) (err error) {
	defer func() { metrics.ObserveLedger("delete", err) }()

	var delta decimal.Decimal
	err = s.InTx(ctx, func(l *Ledger) error {
		t, w, err := l.lockForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if t.InRevocation() {
			return fmt.Errorf("%w: transaction %s belongs to a revocation and cannot be deleted", ErrPreconditionFailed, t.ID)
		}

		if err := l.repo.DeleteTransaction(ctx, t.ID); err != nil {
			return err
		}
		delta = LedgerEffect(*t).Neg()
		if err := l.apply(ctx, w, delta); err != nil {
			return err
		}

		l.Emit(txEvent(events.EventTransactionDeleted, t))
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Transaction deleted", logger.Fields{logger.TransactionIDKey: txID, "delta": delta.String()})
	return nil
}

// AdjustStatistic sets a displayed figure for a user. Derived totals cannot
// rewrite history, so they get a synthetic completed record worth the
// difference; stored fields are overwritten.
func (s *Service) AdjustStatistic(ctx context.Context, userID uuid.UUID, field string, value decimal.Decimal) (adjustment *Transaction, err error) {
	defer func() { metrics.ObserveLedger("adjust_statistic", err) }()

	if !value.Equal(value.Round(2)) {
		return nil, fmt.Errorf("%w: value has more than two decimal places", ErrValidationFailed)
	}

	err = s.InTx(ctx, func(l *Ledger) error {
		w, err := l.LockWallet(ctx, userID)
		if err != nil {
			return err
		}

		switch field {
		case StatTotalIncome, StatTotalDeposit:
			totals, err := l.repo.Totals(ctx, userID)
			if err != nil {
				return err
			}
			current, txType := totals.TotalIncome, TransactionIncome
			if field == StatTotalDeposit {
				current, txType = totals.TotalDeposit, TransactionDeposit
			}

			diff := value.Sub(current)
			if diff.IsZero() {
				return nil
			}
			adjustment = &Transaction{
				Type:   txType,
				Amount: diff,
				Status: TransactionCompleted,
				Details: Details{
					DetailKind:      KindAdjustment,
					"field":         field,
					"previousValue": current.String(),
					"newValue":      value.String(),
				},
			}
			if err := l.record(ctx, w, adjustment); err != nil {
				return err
			}

		case StatBalance:
			if err := l.repo.SetBalance(ctx, w.ID, value); err != nil {
				return err
			}

		case StatReferralCount:
			if value.IsNegative() || !value.IsInteger() {
				return fmt.Errorf("%w: referral count must be a non-negative integer", ErrValidationFailed)
			}
			if err := l.users.SetReferralCount(ctx, userID, int(value.IntPart())); err != nil {
				return err
			}

		case StatReferralIncome:
			if value.IsNegative() {
				return fmt.Errorf("%w: referral income must not be negative", ErrValidationFailed)
			}
			if err := l.users.SetReferralIncome(ctx, userID, value); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unknown statistic %q", ErrValidationFailed, field)
		}

		l.Emit(events.LedgerEvent{
			Event:  events.EventBalanceAdjusted,
			UserID: userID.String(),
			Amount: value.String(),
			Note:   field,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Statistic adjusted", logger.Fields{logger.UserIdKey: userID.String(), "field": field, "value": value.String()})
	return adjustment, nil
}

func withReview(d Details, reviewerID uuid.UUID, reason string) Details {
	out := Details{}
	for k, v := range d {
		out[k] = v
	}
	out[DetailReviewedBy] = reviewerID.String()
	out[DetailReviewedAt] = time.Now().UTC().Format(time.RFC3339)
	if reason != "" {
		out[DetailReason] = reason
	}
	return out
}

func txEvent(name string, t *Transaction) events.LedgerEvent {
	return events.LedgerEvent{
		Event:         name,
		UserID:        t.UserID.String(),
		TransactionID: t.ID,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Amount:        t.Amount.String(),
	}
}
