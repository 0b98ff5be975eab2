package user

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-invest-ledger/internal/testutil"
)

func TestRepository_CreateAndFind(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	repo := NewRepository(db)
	ctx := context.Background()

	usr := &User{Name: "Ayesha", Email: " Ayesha@Example.com "}
	require.NoError(t, repo.Create(ctx, usr))

	assert.Equal(t, RoleUser, usr.Role)
	assert.Len(t, usr.ReferralCode, 8)

	found, err := repo.FindByEmail(ctx, "AYESHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, found.ID)

	found, err = repo.FindByReferralCode(ctx, usr.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, found.ID)

	_, err = repo.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_SetReferrerOnlyOnce(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	repo := NewRepository(db)
	ctx := context.Background()

	a := &User{Name: "A", Email: "a@example.com"}
	b := &User{Name: "B", Email: "b@example.com"}
	c := &User{Name: "C", Email: "c@example.com"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.SetReferrer(ctx, b.ID, a.ID))
	assert.ErrorIs(t, repo.SetReferrer(ctx, b.ID, c.ID), ErrAlreadyReferred)

	team, err := repo.ListReferrals(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, b.ID, team[0].ID)
}

func TestRepository_ReferralCounters(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	repo := NewRepository(db)
	ctx := context.Background()

	usr := &User{Name: "A", Email: "a@example.com"}
	require.NoError(t, repo.Create(ctx, usr))

	require.NoError(t, repo.IncrementReferralCount(ctx, usr.ID))
	require.NoError(t, repo.IncrementReferralCount(ctx, usr.ID))
	require.NoError(t, repo.AddReferralIncome(ctx, usr.ID, decimal.NewFromInt(75)))
	require.NoError(t, repo.AddReferralIncome(ctx, usr.ID, decimal.NewFromInt(25)))

	got, err := repo.FindByID(ctx, usr.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, got.ReferralCount)
	assert.True(t, got.ReferralIncome.Equal(decimal.NewFromInt(100)), got.ReferralIncome.String())

	require.NoError(t, repo.SetReferralCount(ctx, usr.ID, 9))
	require.NoError(t, repo.UpdateRole(ctx, usr.ID, RoleAgent))
	got, err = repo.FindByID(ctx, usr.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 9, got.ReferralCount)
	assert.Equal(t, RoleAgent, got.Role)
}
