package core

import "github.com/shopspring/decimal"

// WarningTier classifies a balance for display. The zero value means no
// warning.
type WarningTier string

const (
	TierNone     WarningTier = ""
	TierDanger   WarningTier = "danger"
	TierCritical WarningTier = "critical"
	TierWarning  WarningTier = "warning"
)

var (
	criticalCeiling = decimal.NewFromInt(10)
	warningCeiling  = decimal.NewFromInt(20)
)

// Summary is everything the home view needs for one user.
type Summary struct {
	Entries  []Entry
	Balance  decimal.Decimal
	Income   decimal.Decimal
	Expenses decimal.Decimal // negative or zero
	Tier     WarningTier
}

// ComputeBalance sums the signed amounts. An empty slice sums to zero.
func ComputeBalance(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Classify maps a balance to its warning tier:
//
//	balance < 0        danger
//	0 <= balance <= 10 critical
//	10 < balance <= 20 warning
//	balance > 20       none
func Classify(balance decimal.Decimal) WarningTier {
	switch {
	case balance.IsNegative():
		return TierDanger
	case balance.LessThanOrEqual(criticalCeiling):
		return TierCritical
	case balance.LessThanOrEqual(warningCeiling):
		return TierWarning
	default:
		return TierNone
	}
}

// Summarize computes the balance, income/expense split and tier of entries.
func Summarize(entries []Entry) Summary {
	s := Summary{
		Entries:  entries,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	for _, e := range entries {
		if e.Amount.IsNegative() {
			s.Expenses = s.Expenses.Add(e.Amount)
		} else {
			s.Income = s.Income.Add(e.Amount)
		}
	}
	s.Balance = s.Income.Add(s.Expenses)
	s.Tier = Classify(s.Balance)
	return s
}

// Message is the notice shown next to the balance.
func (t WarningTier) Message() string {
	switch t {
	case TierDanger:
		return "Your balance is negative!"
	case TierCritical:
		return "Your balance is critically low."
	case TierWarning:
		return "Your balance is getting low."
	default:
		return ""
	}
}
