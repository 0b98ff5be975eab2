package wallet

import "github.com/shopspring/decimal"

// SignedEffect is the amount a transaction type adds to a balance once
// completed: credits are positive, debits negative.
func SignedEffect(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionDeposit, TransactionIncome, TransactionReferralIncome:
		return amount
	case TransactionWithdrawal, TransactionInvestment:
		return amount.Neg()
	}
	return decimal.Zero
}

// LedgerEffect is what tx currently contributes to its wallet balance.
//
// Completed records contribute their signed effect. A revoked deposit keeps
// its credit because the reversal is carried by its compensating withdrawal.
// A pending withdrawal holds its amount, since withdrawals are debited when
// requested and refunded if rejected. Everything else contributes nothing.
func LedgerEffect(tx Transaction) decimal.Decimal {
	switch tx.Status {
	case TransactionCompleted, TransactionRevoked:
		return SignedEffect(tx.Type, tx.Amount)
	case TransactionPending:
		if tx.Type == TransactionWithdrawal {
			return tx.Amount.Neg()
		}
	}
	return decimal.Zero
}

// Delta is the balance change that moves a wallet from before to after.
func Delta(before, after Transaction) decimal.Decimal {
	return LedgerEffect(after).Sub(LedgerEffect(before))
}
