package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrAlreadyReferred = errors.New("user already has a referrer")
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	FindByReferralCode(ctx context.Context, code string) (*User, error)
	LockByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, int64, error)
	ListReferrals(ctx context.Context, referrerID uuid.UUID) ([]User, error)

	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
	LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
	SetReferrer(ctx context.Context, id, referrerID uuid.UUID) error
	IncrementReferralCount(ctx context.Context, id uuid.UUID) error
	AddReferralIncome(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	SetReferralCount(ctx context.Context, id uuid.UUID, count int) error
	SetReferralIncome(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
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

func (r *repository) Create(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *repository) FindByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return r.first(ctx, "google_id = ?", googleID)
}

func (r *repository) FindByReferralCode(ctx context.Context, code string) (*User, error) {
	return r.first(ctx, "referral_code = ?", strings.ToUpper(strings.TrimSpace(code)))
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]User, int64, error) {
	var users []User
	var count int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at desc").Limit(limit).Offset(offset).Find(&users).Error
	return users, count, err
}

func (r *repository) ListReferrals(ctx context.Context, referrerID uuid.UUID) ([]User, error) {
	var users []User
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at desc").
		Find(&users).Error
	return users, err
}

func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	return r.updateColumn(ctx, id, "role", role)
}

func (r *repository) LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	return r.updateColumn(ctx, id, "google_id", googleID)
}

func (r *repository) SetReferrer(ctx context.Context, id, referrerID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND referrer_id IS NULL", id).
		UpdateColumn("referrer_id", referrerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyReferred
	}
	return nil
}

func (r *repository) IncrementReferralCount(ctx context.Context, id uuid.UUID) error {
	return r.updateColumn(ctx, id, "referral_count", gorm.Expr("referral_count + ?", 1))
}

func (r *repository) AddReferralIncome(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.updateColumn(ctx, id, "referral_income", gorm.Expr("referral_income + ?", amount))
}

func (r *repository) SetReferralCount(ctx context.Context, id uuid.UUID, count int) error {
	return r.updateColumn(ctx, id, "referral_count", count)
}

func (r *repository) SetReferralIncome(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.updateColumn(ctx, id, "referral_income", amount)
}

func (r *repository) updateColumn(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).UpdateColumn(column, value)
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) first(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
