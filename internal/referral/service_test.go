package referral

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-invest-ledger/internal/testutil"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
)

type setup struct {
	svc   *Service
	users user.Repository
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	db := testutil.NewTestDB(t, &user.User{}, &wallet.Wallet{}, &wallet.Transaction{}, &Request{})
	users := user.NewRepository(db)
	ledger := wallet.NewService(db, wallet.NewRepository(db), users, nil, wallet.Options{
		TxRetries:                 3,
		Deposit:                   wallet.AmountLimits{Min: decimal.NewFromInt(1)},
		ReferralCommissionPercent: decimal.NewFromInt(10),
	})
	return &setup{svc: NewService(ledger, NewRepository(db), users), users: users}
}

func (s *setup) user(t *testing.T, name string) user.User {
	t.Helper()
	u := &user.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, s.users.Create(context.Background(), u))
	return *u
}

func TestRequestAndApprove(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")

	req, err := s.svc.Request(ctx, alice.ID, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)

	_, err = s.svc.Request(ctx, alice.ID, "bob@example.com")
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed)

	_, err = s.svc.Approve(ctx, req.ID, alice)
	assert.ErrorIs(t, err, wallet.ErrForbidden)

	approved, err := s.svc.Approve(ctx, req.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.NotNil(t, approved.DecidedAt)

	storedBob, err := s.users.FindByID(ctx, bob.ID.String())
	require.NoError(t, err)
	require.NotNil(t, storedBob.ReferrerID)
	assert.Equal(t, alice.ID, *storedBob.ReferrerID)

	storedAlice, err := s.users.FindByID(ctx, alice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, storedAlice.ReferralCount)

	_, err = s.svc.Approve(ctx, req.ID, bob)
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed)

	team, err := s.svc.Team(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, bob.ID, team[0].ID)
}

func TestRequestPreconditions(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")
	carol := s.user(t, "carol")

	_, err := s.svc.Request(ctx, alice.ID, "alice@example.com")
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed)

	_, err = s.svc.Request(ctx, alice.ID, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	req, err := s.svc.Request(ctx, alice.ID, "bob@example.com")
	require.NoError(t, err)

	_, err = s.svc.Request(ctx, bob.ID, "alice@example.com")
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed, "reverse request while one is pending")

	_, err = s.svc.Approve(ctx, req.ID, bob)
	require.NoError(t, err)

	_, err = s.svc.Request(ctx, carol.ID, "bob@example.com")
	assert.ErrorIs(t, err, user.ErrAlreadyReferred)

	_, err = s.svc.Request(ctx, bob.ID, "alice@example.com")
	assert.ErrorIs(t, err, wallet.ErrPreconditionFailed, "referrer cannot be referred back")
}

func TestRejectAndAdminDecision(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")
	admin := user.User{ID: uuid.New(), Role: user.RoleAdmin}

	req, err := s.svc.Request(ctx, alice.ID, "bob@example.com")
	require.NoError(t, err)

	rejected, err := s.svc.Reject(ctx, req.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	storedBob, err := s.users.FindByID(ctx, bob.ID.String())
	require.NoError(t, err)
	assert.Nil(t, storedBob.ReferrerID)

	again, err := s.svc.Request(ctx, alice.ID, "bob@example.com")
	require.NoError(t, err)
	_, err = s.svc.Approve(ctx, again.ID, admin)
	require.NoError(t, err)

	reqs, err := s.svc.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	_, err = s.svc.Approve(ctx, uuid.New(), admin)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
