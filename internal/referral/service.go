package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/events"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
)

type Service struct {
	ledger *wallet.Service
	repo   Repository
	users  user.Repository
}

func NewService(ledger *wallet.Service, repo Repository, users user.Repository) *Service {
	return &Service{ledger: ledger, repo: repo, users: users}
}

// Request asks the owner of targetEmail to accept requesterID as referrer.
func (s *Service) Request(ctx context.Context, requesterID uuid.UUID, targetEmail string) (*Request, error) {
	var req *Request
	err := s.ledger.InTx(ctx, func(l *wallet.Ledger) error {
		users := l.Users()
		repo := s.repo.WithTx(l.Tx())

		requester, err := users.FindByID(ctx, requesterID.String())
		if err != nil {
			return err
		}
		target, err := users.FindByEmail(ctx, targetEmail)
		if err != nil {
			return err
		}

		switch {
		case target.ID == requester.ID:
			return fmt.Errorf("%w: cannot refer yourself", wallet.ErrPreconditionFailed)
		case target.ReferrerID != nil:
			return user.ErrAlreadyReferred
		case requester.ReferrerID != nil && *requester.ReferrerID == target.ID:
			return fmt.Errorf("%w: %s already referred you", wallet.ErrPreconditionFailed, target.Name)
		}

		pending, err := repo.PendingBetween(ctx, requester.ID, target.ID)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: a referral request is already pending", wallet.ErrPreconditionFailed)
		}

		req = &Request{RequesterID: requester.ID, TargetID: target.ID}
		if err := repo.Create(ctx, req); err != nil {
			return err
		}

		l.Emit(events.LedgerEvent{
			Event:  events.EventReferralRequested,
			UserID: target.ID.String(),
			Note:   requester.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Referral requested", logger.Fields{logger.UserIdKey: requesterID.String(), "request_id": req.ID.String()})
	return req, nil
}

// Approve links the target to the requester. Only the target or an admin
// may accept.
func (s *Service) Approve(ctx context.Context, requestID uuid.UUID, actor user.User) (*Request, error) {
	return s.decide(ctx, requestID, actor, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, requestID uuid.UUID, actor user.User) (*Request, error) {
	return s.decide(ctx, requestID, actor, StatusRejected)
}

func (s *Service) decide(ctx context.Context, requestID uuid.UUID, actor user.User, to Status) (*Request, error) {
	var req *Request
	err := s.ledger.InTx(ctx, func(l *wallet.Ledger) error {
		users := l.Users()
		repo := s.repo.WithTx(l.Tx())

		r, err := repo.LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		if actor.ID != r.TargetID && actor.Role != user.RoleAdmin {
			return fmt.Errorf("%w: only the invited user can answer this request", wallet.ErrForbidden)
		}
		if r.Status != StatusPending {
			return fmt.Errorf("%w: referral request is already %s", wallet.ErrPreconditionFailed, r.Status)
		}

		now := time.Now().UTC()
		if err := repo.Decide(ctx, r.ID, to, now); err != nil {
			return err
		}
		r.Status = to
		r.DecidedAt = &now

		event := events.EventReferralRejected
		if to == StatusApproved {
			if err := users.SetReferrer(ctx, r.TargetID, r.RequesterID); err != nil {
				return err
			}
			if err := users.IncrementReferralCount(ctx, r.RequesterID); err != nil {
				return err
			}
			event = events.EventReferralApproved
		}

		l.Emit(events.LedgerEvent{Event: event, UserID: r.RequesterID.String(), Status: string(to)})
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Referral request decided", logger.Fields{"request_id": requestID.String(), "status": string(to)})
	return req, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Request, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Team lists the users userID has referred.
func (s *Service) Team(ctx context.Context, userID uuid.UUID) ([]Member, error) {
	referred, err := s.users.ListReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(referred))
	for _, u := range referred {
		members = append(members, Member{ID: u.ID, Name: u.Name, Email: u.Email, JoinedAt: u.CreatedAt})
	}
	return members, nil
}
