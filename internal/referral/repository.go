package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zjoart/go-invest-ledger/internal/wallet"
)

var ErrRequestNotFound = fmt.Errorf("referral request %w", wallet.ErrNotFound)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, req *Request) error
	LockByID(ctx context.Context, id uuid.UUID) (*Request, error)
	PendingBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Request, error)
	Decide(ctx context.Context, id uuid.UUID, status Status, at time.Time) error
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

func (r *repository) Create(ctx context.Context, req *Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	var req Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) PendingBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Request{}).
		Where("status = ?", StatusPending).
		Where("(requester_id = ? AND target_id = ?) OR (requester_id = ? AND target_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Request, error) {
	var reqs []Request
	err := r.db.WithContext(ctx).
		Where("requester_id = ? OR target_id = ?", userID, userID).
		Order("created_at desc").
		Find(&reqs).Error
	return reqs, err
}

// Decide moves a pending request to status. Decided requests are left untouched.
func (r *repository) Decide(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Request{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{"status": status, "decided_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: referral request %s was already decided", wallet.ErrPreconditionFailed, id)
	}
	return nil
}
