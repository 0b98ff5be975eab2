package investment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zjoart/go-invest-ledger/internal/wallet"
)

var (
	ErrPlanNotFound       = fmt.Errorf("plan %w", wallet.ErrNotFound)
	ErrInvestmentNotFound = fmt.Errorf("investment %w", wallet.ErrNotFound)
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePlan(ctx context.Context, plan *Plan) error
	SavePlan(ctx context.Context, plan *Plan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error)

	CreateInvestment(ctx context.Context, inv *Investment) error
	LockInvestment(ctx context.Context, id, userID uuid.UUID) (*Investment, error)
	UpdateClaim(ctx context.Context, inv *Investment) error
	ListInvestments(ctx context.Context, userID uuid.UUID) ([]Investment, error)
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

func (r *repository) CreatePlan(ctx context.Context, plan *Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) SavePlan(ctx context.Context, plan *Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	var plan Plan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	var plans []Plan
	query := r.db.WithContext(ctx).Order("price asc")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Find(&plans).Error
	return plans, err
}

func (r *repository) CreateInvestment(ctx context.Context, inv *Investment) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) LockInvestment(ctx context.Context, id, userID uuid.UUID) (*Investment, error) {
	var inv Investment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) UpdateClaim(ctx context.Context, inv *Investment) error {
	return r.db.WithContext(ctx).Model(&Investment{}).
		Where("id = ?", inv.ID).
		Updates(map[string]interface{}{
			"claimed_days": inv.ClaimedDays,
			"status":       inv.Status,
		}).Error
}

func (r *repository) ListInvestments(ctx context.Context, userID uuid.UUID) ([]Investment, error) {
	var invs []Investment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at desc").
		Find(&invs).Error
	return invs, err
}
