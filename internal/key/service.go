package key

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
)

const keyPrefix = "ik_live_"

var (
	ErrInvalidPermission = fmt.Errorf("%w: unknown permission", wallet.ErrValidationFailed)
	ErrInvalidExpiry     = fmt.Errorf("%w: expiry must be one of 1H, 1D, 1M, 1Y", wallet.ErrValidationFailed)
	ErrKeyLimitReached   = fmt.Errorf("%w: active key limit reached", wallet.ErrForbidden)
	ErrAdjustAdminOnly   = fmt.Errorf("%w: only admins can hold the ADJUST permission", wallet.ErrForbidden)
	ErrKeyRevoked        = fmt.Errorf("%w: key has been revoked", wallet.ErrPreconditionFailed)
	ErrKeyNotExpired     = fmt.Errorf("%w: key is not expired yet", wallet.ErrPreconditionFailed)
)

var expiries = map[string]time.Duration{
	"1H": time.Hour,
	"1D": 24 * time.Hour,
	"1M": 30 * 24 * time.Hour,
	"1Y": 365 * 24 * time.Hour,
}

// Issued carries the plaintext key, which is never stored and only returned
// once.
type Issued struct {
	APIKey    string    `json:"apiKey"`
	MaskedKey string    `json:"maskedKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	Repo          Repository
	MaxActiveKeys int
	Now           func() time.Time
}

func NewService(repo Repository, maxActiveKeys int) *Service {
	return &Service{Repo: repo, MaxActiveKeys: maxActiveKeys, Now: time.Now}
}

// Issue creates a key for owner. Without explicit permissions the key may
// only read.
func (s *Service) Issue(ctx context.Context, owner user.User, name string, perms []string, expiry string) (*Issued, error) {
	if len(perms) == 0 {
		perms = []string{string(PermissionRead)}
	}
	granted, err := normalizePermissions(perms)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, owner, name, granted, expiry)
}

// Rollover replaces an expired key with a fresh one carrying the same name
// and permissions. The old key is identified by its id or its plaintext.
func (s *Service) Rollover(ctx context.Context, owner user.User, expiredKey, expiry string) (*Issued, error) {
	old, err := s.Repo.GetKeyByValue(ctx, expiredKey, owner.ID)
	if err != nil {
		old, err = s.Repo.GetKey(ctx, expiredKey, owner.ID)
		if err != nil {
			return nil, err
		}
	}

	if old.IsRevoked {
		return nil, ErrKeyRevoked
	}
	if s.Now().Before(old.ExpiresAt) {
		return nil, ErrKeyNotExpired
	}
	return s.issue(ctx, owner, old.Name, old.Permissions, expiry)
}

func (s *Service) Revoke(ctx context.Context, owner user.User, keyID string) error {
	if err := s.Repo.RevokeKey(ctx, keyID, owner.ID); err != nil {
		return err
	}
	logger.Info("API key revoked", logger.Fields{logger.UserIdKey: owner.ID.String(), "key_id": keyID})
	return nil
}

func (s *Service) List(ctx context.Context, owner user.User) ([]APIKey, error) {
	return s.Repo.GetKeysByUserID(ctx, owner.ID)
}

// issue re-checks role and quota on every call so a demoted agent cannot
// roll an ADJUST key forward.
func (s *Service) issue(ctx context.Context, owner user.User, name string, perms PermissionList, expiry string) (*Issued, error) {
	if perms.Has(PermissionAdjust) && owner.Role != user.RoleAdmin {
		return nil, ErrAdjustAdminOnly
	}

	ttl, ok := expiries[strings.ToUpper(strings.TrimSpace(expiry))]
	if !ok {
		return nil, ErrInvalidExpiry
	}

	count, err := s.Repo.CountActiveKeys(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}
	if count >= int64(s.MaxActiveKeys) {
		return nil, fmt.Errorf("%w (%d)", ErrKeyLimitReached, s.MaxActiveKeys)
	}

	plain, err := generateSecureKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	k := &APIKey{
		UserID:      owner.ID,
		Name:        name,
		Key:         hashKey(plain),
		MaskedKey:   maskKey(plain),
		Permissions: perms,
		ExpiresAt:   s.Now().Add(ttl),
	}
	if err := s.Repo.CreateKey(ctx, k); err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}

	logger.Info("API key issued", logger.Fields{
		logger.UserIdKey: owner.ID.String(),
		"key_id":         k.ID.String(),
		"permissions":    strings.Join(perms, ","),
	})
	return &Issued{APIKey: plain, MaskedKey: k.MaskedKey, ExpiresAt: k.ExpiresAt}, nil
}

func normalizePermissions(requested []string) (PermissionList, error) {
	seen := make(map[Permission]bool, len(requested))
	var out PermissionList
	for _, raw := range requested {
		p := Permission(strings.ToUpper(strings.TrimSpace(raw)))
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPermission, raw)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, string(p))
		}
	}
	return out, nil
}

func generateSecureKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(b), nil
}

func maskKey(key string) string {
	if len(key) <= len(keyPrefix)+4 {
		return "****"
	}
	return key[:len(keyPrefix)] + "..." + key[len(key)-4:]
}
