package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/internal/testutil"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerEvent
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, event events.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Event)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	svc       *Service
	users     user.Repository
	publisher *recordingPublisher
	reviewer  uuid.UUID
}

func testOptions() Options {
	return Options{
		Currency:   "PKR",
		Deposit:    AmountLimits{Min: decimal.NewFromInt(1)},
		Withdrawal: AmountLimits{Min: decimal.NewFromInt(1)},
		TxRetries:  3,
	}
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &user.User{}, &Wallet{}, &Transaction{})
	users := user.NewRepository(db)
	pub := &recordingPublisher{}
	svc := NewService(db, NewRepository(db), users, pub, opts)

	f := &fixture{db: db, svc: svc, users: users, publisher: pub}
	f.reviewer = f.newUser(t, "Agent", nil).ID
	return f
}

// newUser registers a user with a fresh wallet, optionally referred by referrer.
func (f *fixture) newUser(t *testing.T, name string, referrer *uuid.UUID) *user.User {
	t.Helper()
	usr := &user.User{Name: name, Email: uuid.NewString() + "@example.com", ReferrerID: referrer}
	err := f.svc.InTx(context.Background(), func(l *Ledger) error {
		if err := l.Users().Create(context.Background(), usr); err != nil {
			return err
		}
		_, err := l.OpenWallet(context.Background(), usr.ID)
		return err
	})
	require.NoError(t, err)
	return usr
}

// fund credits amount through a reviewed deposit.
func (f *fixture) fund(t *testing.T, userID uuid.UUID, amount int64) {
	t.Helper()
	tx, err := f.svc.SubmitDeposit(context.Background(), userID, decimal.NewFromInt(amount), uuid.NewString(), nil)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), tx.ID, f.reviewer)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := f.svc.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) requireBalance(t *testing.T, userID uuid.UUID, want int64) {
	t.Helper()
	got := f.balance(t, userID)
	require.True(t, got.Equal(decimal.NewFromInt(want)), "balance: want %d, got %s", want, got)
}

// requireConsistent checks that the balance equals what the history contributes.
func (f *fixture) requireConsistent(t *testing.T, userID uuid.UUID) {
	t.Helper()
	txs, _, err := f.svc.ListForUser(context.Background(), userID, TransactionFilter{})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(LedgerEffect(tx))
	}
	got := f.balance(t, userID)
	require.True(t, got.Equal(sum), "balance %s drifted from ledger sum %s", got, sum)
}
