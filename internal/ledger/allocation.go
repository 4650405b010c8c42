package ledger

import (
	"aave-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Repayment branches
const (
	BranchInterest  = "interest"
	BranchPrincipal = "principal"
)

// RepaymentResult describes how a pending repayment was spread across loans
type RepaymentResult struct {
	Branch           string
	InterestRetired  decimal.Decimal
	PrincipalRetired decimal.Decimal
	Overpaid         decimal.Decimal
}

// AllocateRepayment retires repaid against the loans. Interest goes first,
// pro-rata by each loan's share of totalInterest; any excess retires
// principal pro-rata by each loan's share of totalBorrowed. Principal
// retirement is capped at totalBorrowed and the rest is reported as Overpaid.
// The loans are mutated in place and must be ordered deterministically.
func AllocateRepayment(loans []models.Loan, repaid, totalInterest, totalBorrowed decimal.Decimal) RepaymentResult {
	if totalInterest.GreaterThanOrEqual(repaid) {
		if totalInterest.IsPositive() {
			spread(loans, repaid, totalInterest, interestOf, setInterest)
		}
		return RepaymentResult{
			Branch:           BranchInterest,
			InterestRetired:  repaid,
			PrincipalRetired: decimal.Zero,
			Overpaid:         decimal.Zero,
		}
	}

	for i := range loans {
		loans[i].AccruedInterest = decimal.Zero
	}

	excess := repaid.Sub(totalInterest)
	overpaid := decimal.Zero
	if excess.GreaterThan(totalBorrowed) {
		overpaid = excess.Sub(totalBorrowed)
		excess = totalBorrowed
	}
	if totalBorrowed.IsPositive() {
		spread(loans, excess, totalBorrowed, amountOf, setAmount)
	}

	return RepaymentResult{
		Branch:           BranchPrincipal,
		InterestRetired:  totalInterest,
		PrincipalRetired: excess,
		Overpaid:         overpaid,
	}
}

func interestOf(l *models.Loan) decimal.Decimal     { return l.AccruedInterest }
func setInterest(l *models.Loan, v decimal.Decimal) { l.AccruedInterest = v }
func amountOf(l *models.Loan) decimal.Decimal       { return l.Amount }
func setAmount(l *models.Loan, v decimal.Decimal)   { l.Amount = v }

// spread deducts amount from the field selected by get/set, each loan paying
// amount*field/total truncated. The truncation remainder is then taken from
// loans in order, never beyond what a loan still holds. amount <= total.
func spread(loans []models.Loan, amount, total decimal.Decimal, get func(*models.Loan) decimal.Decimal, set func(*models.Loan, decimal.Decimal)) {
	deducted := make([]decimal.Decimal, len(loans))
	sum := decimal.Zero
	for i := range loans {
		deducted[i] = mulDiv(amount, get(&loans[i]), total)
		sum = sum.Add(deducted[i])
	}

	remainder := amount.Sub(sum)
	for i := range loans {
		if !remainder.IsPositive() {
			break
		}
		room := get(&loans[i]).Sub(deducted[i])
		if !room.IsPositive() {
			continue
		}
		extra := minDecimal(room, remainder)
		deducted[i] = deducted[i].Add(extra)
		remainder = remainder.Sub(extra)
	}

	for i := range loans {
		set(&loans[i], get(&loans[i]).Sub(deducted[i]))
	}
}
