package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned by the balance rules when a debit would
// exceed the available funds. Callers translate it into a typed API error.
var ErrInsufficientBalance = errors.New("insufficient balance")

// BalanceChange records a wallet balance before and after a mutation.
type BalanceChange struct {
	Previous decimal.Decimal
	New      decimal.Decimal
}

// ApplyDeposit adds amount to balance unconditionally. A deposit compensates
// a negative balance: -50 plus a 100 deposit yields 50.
func ApplyDeposit(balance, amount decimal.Decimal) BalanceChange {
	return BalanceChange{Previous: balance, New: balance.Add(amount)}
}

// ApplyTransferDebit subtracts amount from balance. Overdraft via transfer is
// not allowed: the balance must cover the full amount.
func ApplyTransferDebit(balance, amount decimal.Decimal) (BalanceChange, error) {
	if balance.LessThan(amount) {
		return BalanceChange{}, ErrInsufficientBalance
	}
	return BalanceChange{Previous: balance, New: balance.Sub(amount)}, nil
}

// ApplyTransferCredit adds amount to balance. Always succeeds.
func ApplyTransferCredit(balance, amount decimal.Decimal) BalanceChange {
	return BalanceChange{Previous: balance, New: balance.Add(amount)}
}

// ApplyDepositReversal subtracts the original deposit amount from the
// destination balance. No sufficiency check is performed: reversing a deposit
// may legitimately drive the wallet negative.
func ApplyDepositReversal(balance, amount decimal.Decimal) BalanceChange {
	return BalanceChange{Previous: balance, New: balance.Sub(amount)}
}

// ApplyTransferReversal moves amount from the original destination back to
// the original source. The destination must currently hold at least amount.
func ApplyTransferReversal(sourceBalance, destinationBalance, amount decimal.Decimal) (source, destination BalanceChange, err error) {
	if destinationBalance.LessThan(amount) {
		return BalanceChange{}, BalanceChange{}, ErrInsufficientBalance
	}
	source = BalanceChange{Previous: sourceBalance, New: sourceBalance.Add(amount)}
	destination = BalanceChange{Previous: destinationBalance, New: destinationBalance.Sub(amount)}
	return source, destination, nil
}

// ValidAmount reports whether amount is a strictly positive fixed-point
// value with at most two fractional digits.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Exponent() >= -2
}
