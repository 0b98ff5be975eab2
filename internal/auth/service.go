package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/config"
	"github.com/zjoart/go-invest-ledger/pkg/database"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

const tokenTTL = 72 * time.Hour

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = fmt.Errorf("%w: email is already registered", wallet.ErrPreconditionFailed)
	ErrInvalidReferralCode = fmt.Errorf("%w: referral code does not exist", wallet.ErrValidationFailed)
)

type Service struct {
	Config config.Config
	Ledger *wallet.Service
	Users  user.Repository
}

func NewService(cfg config.Config, ledger *wallet.Service, users user.Repository) *Service {
	return &Service{Config: cfg, Ledger: ledger, Users: users}
}

type RegisterInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referralCode"`
}

func (in RegisterInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", wallet.ErrValidationFailed)
	case !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: a valid email is required", wallet.ErrValidationFailed)
	case len(in.Password) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters", wallet.ErrValidationFailed)
	}
	return nil
}

// Register creates the account, its wallet and the referral link as one unit.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	usr := &user.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
	}
	if err := s.onboard(ctx, usr, in.ReferralCode); err != nil {
		return nil, err
	}
	return usr, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*user.User, error) {
	usr, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if usr.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return usr, nil
}

// LoginWithGoogle finds the user for a verified Google identity, linking an
// existing email account or onboarding a new one.
func (s *Service) LoginWithGoogle(ctx context.Context, googleID, email, name string) (*user.User, error) {
	usr, err := s.Users.FindByGoogleID(ctx, googleID)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	usr, err = s.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.Users.LinkGoogleID(ctx, usr.ID, googleID); err != nil {
			return nil, err
		}
		usr.GoogleID = &googleID
		return usr, nil
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, err
	}

	usr = &user.User{Name: name, Email: email, GoogleID: &googleID}
	if err := s.onboard(ctx, usr, ""); err != nil {
		return nil, err
	}
	return usr, nil
}

func (s *Service) onboard(ctx context.Context, usr *user.User, referralCode string) error {
	if s.Config.IsAdminEmail(usr.Email) {
		usr.Role = user.RoleAdmin
	}

	err := s.Ledger.InTx(ctx, func(l *wallet.Ledger) error {
		users := l.Users()

		var referrer *user.User
		if code := strings.TrimSpace(referralCode); code != "" {
			ref, err := users.FindByReferralCode(ctx, code)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					return ErrInvalidReferralCode
				}
				return err
			}
			referrer = ref
			usr.ReferrerID = &ref.ID
		}

		if err := users.Create(ctx, usr); err != nil {
			if database.IsDuplicateKey(err) {
				return ErrEmailTaken
			}
			return err
		}
		if _, err := l.OpenWallet(ctx, usr.ID); err != nil {
			return err
		}
		if referrer != nil {
			if err := users.IncrementReferralCount(ctx, referrer.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("User registered", logger.Fields{logger.UserIdKey: usr.ID.String(), "role": string(usr.Role)})
	return nil
}

// IssueToken signs a session token carrying the user id and role.
func (s *Service) IssueToken(usr user.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		utils.UserIDKey: usr.ID.String(),
		utils.RoleKey:   string(usr.Role),
		utils.ExpKey:    expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(s.Config.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}
