package wallet

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/database"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

var (
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	ErrValidationFailed   = errors.New("validation failed")
	ErrStoreConflict      = database.ErrStoreConflict
	ErrForbidden          = errors.New("forbidden")

	ErrNotFound            = fmt.Errorf("%w: not found", ErrPreconditionFailed)
	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrInsufficientFunds   = fmt.Errorf("%w: insufficient balance", ErrValidationFailed)
)

// AmountLimits bound user submitted amounts. A zero Max means unbounded.
type AmountLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// ValidateAmount rejects non-positive, out of range or sub-paisa amounts.
func ValidateAmount(amount decimal.Decimal, limits AmountLimits) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidationFailed)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than two decimal places", ErrValidationFailed)
	}
	if amount.LessThan(limits.Min) {
		return fmt.Errorf("%w: amount must be at least %s", ErrValidationFailed, limits.Min)
	}
	if limits.Max.IsPositive() && amount.GreaterThan(limits.Max) {
		return fmt.Errorf("%w: amount must not exceed %s", ErrValidationFailed, limits.Max)
	}
	return nil
}

// HTTPStatus maps a ledger error onto the response status handlers send.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicateReference), errors.Is(err, ErrPreconditionFailed), errors.Is(err, user.ErrAlreadyReferred):
		return http.StatusConflict
	case errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError sends err in the error envelope. Unclassified errors are logged
// and hidden from the caller.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, logger.WithError(err))
		utils.BuildErrorResponse(w, status, fallback, nil)
		return
	}
	utils.BuildErrorResponse(w, status, err.Error(), nil)
}
