package investment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-invest-ledger/internal/testutil"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
)

type setup struct {
	svc    *Service
	ledger *wallet.Service
	users  user.Repository
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	db := testutil.NewTestDB(t, &user.User{}, &wallet.Wallet{}, &wallet.Transaction{}, &Plan{}, &Investment{})
	users := user.NewRepository(db)
	ledger := wallet.NewService(db, wallet.NewRepository(db), users, nil, wallet.Options{
		TxRetries: 3,
		Deposit:   wallet.AmountLimits{Min: decimal.NewFromInt(1)},
	})
	return &setup{svc: NewService(ledger, NewRepository(db)), ledger: ledger, users: users}
}

func (s *setup) investor(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	u := &user.User{Name: "Investor", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, s.ledger.InTx(ctx, func(l *wallet.Ledger) error {
		if err := l.Users().Create(ctx, u); err != nil {
			return err
		}
		_, err := l.OpenWallet(ctx, u.ID)
		return err
	}))

	if balance > 0 {
		tx, err := s.ledger.SubmitDeposit(ctx, u.ID, decimal.NewFromInt(balance), uuid.NewString(), nil)
		require.NoError(t, err)
		_, err = s.ledger.Approve(ctx, tx.ID, uuid.New())
		require.NoError(t, err)
	}
	return u.ID
}

func (s *setup) plan(t *testing.T, price, daily int64, days int) *Plan {
	t.Helper()
	name := "Gold"
	p, d := decimal.NewFromInt(price), decimal.NewFromInt(daily)
	plan, err := s.svc.CreatePlan(context.Background(), PlanInput{Name: &name, Price: &p, DailyProfit: &d, DurationDays: &days})
	require.NoError(t, err)
	return plan
}

func balanceOf(t *testing.T, s *setup, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := s.ledger.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func TestPurchaseDebitsBalance(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	userID := s.investor(t, 5000)
	plan := s.plan(t, 3000, 150, 30)

	inv, err := s.svc.Purchase(ctx, userID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, inv.Status)
	assert.NotEmpty(t, inv.TransactionID)
	assert.True(t, balanceOf(t, s, userID).Equal(decimal.NewFromInt(2000)))

	_, err = s.svc.Purchase(ctx, userID, plan.ID)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	invs, err := s.svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, invs, 1, "a failed purchase leaves no investment behind")

	summary, err := s.ledger.Summary(ctx, userID)
	require.NoError(t, err)
	assert.True(t, summary.TotalInvestment.Equal(decimal.NewFromInt(3000)))
}

func TestPurchaseInactivePlan(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	userID := s.investor(t, 5000)
	plan := s.plan(t, 1000, 10, 10)

	inactive := false
	_, err := s.svc.UpdatePlan(ctx, plan.ID, PlanInput{Active: &inactive})
	require.NoError(t, err)

	_, err = s.svc.Purchase(ctx, userID, plan.ID)
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed)

	_, err = s.svc.Purchase(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrPlanNotFound)

	plans, err := s.svc.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestClaimProfit(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	userID := s.investor(t, 1000)
	plan := s.plan(t, 1000, 50, 5)

	inv, err := s.svc.Purchase(ctx, userID, plan.ID)
	require.NoError(t, err)
	start := inv.StartedAt

	_, _, err = s.svc.Claim(ctx, userID, inv.ID, start.Add(12*time.Hour))
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed)

	claimed, income, err := s.svc.Claim(ctx, userID, inv.ID, start.Add(3*24*time.Hour+time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, claimed.ClaimedDays)
	require.NotNil(t, income)
	assert.True(t, income.Amount.Equal(decimal.NewFromInt(150)))
	assert.True(t, balanceOf(t, s, userID).Equal(decimal.NewFromInt(150)))

	claimed, _, err = s.svc.Claim(ctx, userID, inv.ID, start.Add(40*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, claimed.ClaimedDays)
	assert.Equal(t, StatusMatured, claimed.Status)
	assert.True(t, balanceOf(t, s, userID).Equal(decimal.NewFromInt(250)))

	_, _, err = s.svc.Claim(ctx, userID, inv.ID, start.Add(50*24*time.Hour))
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed)

	_, _, err = s.svc.Claim(ctx, uuid.New(), inv.ID, start.Add(50*24*time.Hour))
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
}

func TestCreatePlanValidation(t *testing.T) {
	s := newSetup(t)
	name := "Bad"
	zero := decimal.Zero
	days := 10

	_, err := s.svc.CreatePlan(context.Background(), PlanInput{Name: &name, Price: &zero, DailyProfit: &zero, DurationDays: &days})
	assert.ErrorIs(t, err, wallet.ErrValidationFailed)

	price := decimal.NewFromInt(100)
	noDays := 0
	_, err = s.svc.CreatePlan(context.Background(), PlanInput{Name: &name, Price: &price, DailyProfit: &zero, DurationDays: &noDays})
	assert.ErrorIs(t, err, wallet.ErrValidationFailed)
}

func TestDueDays(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := Investment{StartedAt: start, DurationDays: 10, ClaimedDays: 2}

	assert.Equal(t, 0, inv.DueDays(start.Add(47*time.Hour)))
	assert.Equal(t, 1, inv.DueDays(start.Add(72*time.Hour)))
	assert.Equal(t, 8, inv.DueDays(start.Add(1000*time.Hour)))
	assert.Equal(t, 0, inv.DueDays(start.Add(-time.Hour)))
}
