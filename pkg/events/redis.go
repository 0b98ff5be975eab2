package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zjoart/go-invest-ledger/pkg/config"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
)

const (
	LedgerQueue = "ledger_events"
	FailedQueue = "failed_ledger_events"
)

const (
	EventDepositSubmitted    = "deposit.submitted"
	EventWithdrawalSubmitted = "withdrawal.submitted"
	EventTransactionApproved = "transaction.approved"
	EventTransactionRejected = "transaction.rejected"
	EventTransactionRevoked  = "transaction.revoked"
	EventTransactionEdited   = "transaction.edited"
	EventTransactionDeleted  = "transaction.deleted"
	EventBalanceAdjusted     = "balance.adjusted"
	EventReferralIncome      = "referral.income"
	EventReferralRequested   = "referral.requested"
	EventReferralApproved    = "referral.approved"
	EventReferralRejected    = "referral.rejected"
	EventInvestmentPurchased = "investment.purchased"
	EventInvestmentClaimed   = "investment.claimed"
)

// LedgerEvent is published after a unit of work commits.
type LedgerEvent struct {
	Event         string    `json:"event"`
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId,omitempty"`
	Type          string    `json:"type,omitempty"`
	Status        string    `json:"status,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Note          string    `json:"note,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher delivers events to whoever reacts to them.
type Publisher interface {
	PublishEvent(ctx context.Context, event LedgerEvent) error
}

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg config.Config) *RedisClient {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis url", logger.Fields{"error": err.Error(), "url": cfg.RedisURL})
		opt = &redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		}
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("Failed to connect to Redis", logger.Fields{"error": err.Error(), "url": cfg.RedisURL})
	} else {
		logger.Info("Connected to Redis", logger.Fields{"url": cfg.RedisURL})
	}

	return &RedisClient{Client: rdb}
}

func (r *RedisClient) PublishEvent(ctx context.Context, event LedgerEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.Client.RPush(ctx, LedgerQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to push event to redis: %w", err)
	}

	return nil
}

// Pop blocks up to timeout for the next queued event payload.
func (r *RedisClient) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := r.Client.BLPop(ctx, timeout, LedgerQueue).Result()
	if err != nil {
		return nil, err
	}
	return []byte(result[1]), nil
}

func (r *RedisClient) PushToDLQ(ctx context.Context, data []byte) error {
	if err := r.Client.RPush(ctx, FailedQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to push event to DLQ: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// Publish sends event and only logs delivery failures; the unit of work it
// describes has already committed.
func Publish(ctx context.Context, p Publisher, event LedgerEvent) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish event", logger.Merge(logger.WithError(err), logger.Fields{
			"event":   event.Event,
			"user_id": event.UserID,
		}))
	}
}
