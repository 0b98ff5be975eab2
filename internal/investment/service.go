package investment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/events"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/metrics"
)

const KindInvestmentProfit = "investment_profit"

type Service struct {
	ledger *wallet.Service
	repo   Repository
}

func NewService(ledger *wallet.Service, repo Repository) *Service {
	return &Service{ledger: ledger, repo: repo}
}

// PlanInput carries plan fields for create and update. Nil fields are left
// unchanged on update.
type PlanInput struct {
	Name         *string          `json:"name"`
	Price        *decimal.Decimal `json:"price"`
	DailyProfit  *decimal.Decimal `json:"dailyProfit"`
	DurationDays *int             `json:"durationDays"`
	Active       *bool            `json:"active"`
}

func (in PlanInput) apply(p *Plan) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.DailyProfit != nil {
		p.DailyProfit = *in.DailyProfit
	}
	if in.DurationDays != nil {
		p.DurationDays = *in.DurationDays
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
}

func validatePlan(p Plan) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: plan name is required", wallet.ErrValidationFailed)
	case p.DurationDays <= 0:
		return fmt.Errorf("%w: duration must be at least one day", wallet.ErrValidationFailed)
	case p.DailyProfit.IsNegative() || !p.DailyProfit.Equal(p.DailyProfit.Round(2)):
		return fmt.Errorf("%w: daily profit must be a non-negative amount", wallet.ErrValidationFailed)
	}
	return wallet.ValidateAmount(p.Price, wallet.AmountLimits{})
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*Plan, error) {
	plan := &Plan{Active: true}
	in.apply(plan)
	if err := validatePlan(*plan); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}

	logger.Info("Plan created", logger.Fields{"plan_id": plan.ID.String(), "name": plan.Name})
	return plan, nil
}

func (s *Service) UpdatePlan(ctx context.Context, planID uuid.UUID, in PlanInput) (*Plan, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	in.apply(plan)
	if err := validatePlan(*plan); err != nil {
		return nil, err
	}
	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	return s.repo.ListPlans(ctx, activeOnly)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Investment, error) {
	return s.repo.ListInvestments(ctx, userID)
}

// Purchase pays the plan price from the user's balance and opens the
// investment in the same unit of work.
func (s *Service) Purchase(ctx context.Context, userID, planID uuid.UUID) (inv *Investment, err error) {
	defer func() { metrics.ObserveLedger("purchase", err) }()

	err = s.ledger.InTx(ctx, func(l *wallet.Ledger) error {
		repo := s.repo.WithTx(l.Tx())

		plan, err := repo.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if !plan.Active {
			return fmt.Errorf("%w: plan %s is not available", wallet.ErrPreconditionFailed, plan.Name)
		}

		tx, err := l.Post(ctx, userID, wallet.TransactionInvestment, plan.Price, wallet.Details{
			"planId":   plan.ID.String(),
			"planName": plan.Name,
		})
		if err != nil {
			return err
		}

		inv = &Investment{
			UserID:        userID,
			PlanID:        plan.ID,
			PlanName:      plan.Name,
			Amount:        plan.Price,
			DailyProfit:   plan.DailyProfit,
			DurationDays:  plan.DurationDays,
			TransactionID: tx.ID,
		}
		if err := repo.CreateInvestment(ctx, inv); err != nil {
			return err
		}

		l.Emit(events.LedgerEvent{
			Event:         events.EventInvestmentPurchased,
			UserID:        userID.String(),
			TransactionID: tx.ID,
			Type:          string(tx.Type),
			Status:        string(tx.Status),
			Amount:        plan.Price.String(),
			Note:          plan.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Investment purchased", logger.Fields{logger.UserIdKey: userID.String(), "investment_id": inv.ID.String()})
	return inv, nil
}

// Claim credits the profit for every whole day elapsed since the last claim.
func (s *Service) Claim(ctx context.Context, userID, investmentID uuid.UUID, now time.Time) (inv *Investment, income *wallet.Transaction, err error) {
	defer func() { metrics.ObserveLedger("claim", err) }()

	err = s.ledger.InTx(ctx, func(l *wallet.Ledger) error {
		repo := s.repo.WithTx(l.Tx())

		locked, err := repo.LockInvestment(ctx, investmentID, userID)
		if err != nil {
			return err
		}
		if locked.Status == StatusMatured {
			return fmt.Errorf("%w: investment has matured", wallet.ErrPreconditionFailed)
		}

		days := locked.DueDays(now)
		if days == 0 {
			return fmt.Errorf("%w: no profit is due yet", wallet.ErrPreconditionFailed)
		}

		amount := locked.DailyProfit.Mul(decimal.NewFromInt(int64(days)))
		locked.ClaimedDays += days
		if locked.ClaimedDays >= locked.DurationDays {
			locked.Status = StatusMatured
		}
		if err := repo.UpdateClaim(ctx, locked); err != nil {
			return err
		}

		if amount.IsPositive() {
			income, err = l.Post(ctx, userID, wallet.TransactionIncome, amount, wallet.Details{
				wallet.DetailKind: KindInvestmentProfit,
				"investmentId":    locked.ID.String(),
				"planName":        locked.PlanName,
				"days":            strconv.Itoa(days),
			})
			if err != nil {
				return err
			}
		}

		l.Emit(events.LedgerEvent{
			Event:  events.EventInvestmentClaimed,
			UserID: userID.String(),
			Amount: amount.String(),
			Note:   locked.PlanName,
		})
		inv = locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Investment profit claimed", logger.Fields{logger.UserIdKey: userID.String(), "investment_id": investmentID.String(), "claimed_days": inv.ClaimedDays})
	return inv, income, nil
}
