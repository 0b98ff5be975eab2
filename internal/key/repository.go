package key

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/internal/wallet"
)

var ErrKeyNotFound = fmt.Errorf("api key %w", wallet.ErrNotFound)

type Repository interface {
	CountActiveKeys(ctx context.Context, userID uuid.UUID) (int64, error)
	CreateKey(ctx context.Context, key *APIKey) error
	GetKey(ctx context.Context, keyID string, userID uuid.UUID) (*APIKey, error)
	GetKeyByValue(ctx context.Context, keyValue string, userID uuid.UUID) (*APIKey, error)
	FindByKey(ctx context.Context, keyValue string) (*APIKey, error)
	GetKeysByUserID(ctx context.Context, userID uuid.UUID) ([]APIKey, error)
	RevokeKey(ctx context.Context, keyID string, userID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountActiveKeys(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&APIKey{}).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateKey(ctx context.Context, key *APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *repository) GetKey(ctx context.Context, keyID string, userID uuid.UUID) (*APIKey, error) {
	keyUUID, err := uuid.Parse(keyID)
	if err != nil {
		return nil, ErrKeyNotFound
	}
	return r.first(ctx, "id = ? AND user_id = ?", keyUUID, userID)
}

func (r *repository) GetKeyByValue(ctx context.Context, keyValue string, userID uuid.UUID) (*APIKey, error) {
	return r.first(ctx, "key = ? AND user_id = ?", hashKey(keyValue), userID)
}

func (r *repository) FindByKey(ctx context.Context, keyValue string) (*APIKey, error) {
	return r.first(ctx, "key = ?", hashKey(keyValue))
}

func (r *repository) GetKeysByUserID(ctx context.Context, userID uuid.UUID) ([]APIKey, error) {
	var keys []APIKey
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&keys).Error
	return keys, err
}

func (r *repository) RevokeKey(ctx context.Context, keyID string, userID uuid.UUID) error {
	keyUUID, err := uuid.Parse(keyID)
	if err != nil {
		return ErrKeyNotFound
	}

	res := r.db.WithContext(ctx).Model(&APIKey{}).
		Where("id = ? AND user_id = ?", keyUUID, userID).
		Update("is_revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (r *repository) first(ctx context.Context, query string, args ...interface{}) (*APIKey, error) {
	var key APIKey
	if err := r.db.WithContext(ctx).Where(query, args...).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func hashKey(key string) string {
	h := sha256.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}
