// Package fees holds the cash-advance fee table and the simulation math
// built on top of it.
package fees

// Installment count bounds accepted by the product.
const (
	MinInstallments = 1
	MaxInstallments = 18
)

// DefaultFee is the fallback percentage for counts outside the table.
// Validation upstream keeps such counts from occurring; the fallback only
// protects defensive call sites.
const DefaultFee = 55.0

// table maps installment count to the fee percentage charged on a withdrawal.
var table = map[int]float64{
	1: 23.00, 2: 55.00, 3: 55.10, 4: 55.20, 5: 55.30,
	6: 55.40, 7: 55.47, 8: 55.60, 9: 55.70, 10: 55.80,
	11: 55.87, 12: 56.00, 13: 67.05, 14: 67.30, 15: 67.55,
	16: 67.68, 17: 67.79, 18: 67.94,
}

// Fee returns the tabulated fee percentage for the installment count.
func Fee(installments int) float64 {
	if fee, ok := table[installments]; ok {
		return fee
	}
	return DefaultFee
}

// MaxWithdrawal derives the largest principal whose disbursement plus fee
// still fits inside the card limit.
func MaxWithdrawal(limit float64, installments int) float64 {
	return limit / (1 + Fee(installments)/100)
}

// Simulation carries the full-precision outputs of one calculation.
// Rounding happens only when rendering for display.
type Simulation struct {
	Withdrawal     float64
	PerInstallment float64
}

// Simulate computes the maximum withdrawal and the per-installment payment
// for the given limit and installment count.
func Simulate(limit float64, installments int) Simulation {
	withdrawal := MaxWithdrawal(limit, installments)
	return Simulation{
		Withdrawal:     withdrawal,
		PerInstallment: withdrawal / float64(installments),
	}
}

// AffordableInstallments finds the largest installment count in
// [MinInstallments, MaxInstallments] whose withdrawal ceiling still covers
// target. Every count is evaluated; the fee table is not assumed monotonic.
// ok is false when no count can reach the target, in which case the caller
// should report the 1x ceiling via MaxWithdrawal(limit, MinInstallments).
func AffordableInstallments(limit, target float64) (installments int, ok bool) {
	best := 0
	for p := MinInstallments; p <= MaxInstallments; p++ {
		if MaxWithdrawal(limit, p) >= target {
			best = p
		}
	}
	return best, best != 0
}
