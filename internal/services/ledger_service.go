package services

import (
	"math"
	"sort"
	"time"

	"github.com/ledgerbank/backend/internal/models"
)

// interestMinimum suppresses sub-unit interest postings. Each deposit's
// interest contribution is computed independently and dropped when it falls
// below one whole unit; this is a noise filter, not interest-on-balance.
const interestMinimum = 1.0

// LedgerService computes derived financial aggregates from an account's
// movement history and appends new movements together with their timestamps.
// It holds no state of its own; callers serialize access through the session
// controller.
type LedgerService struct{}

func NewLedgerService() *LedgerService {
	return &LedgerService{}
}

// Balance is the sum of all movements. An empty history yields 0.
func (ls *LedgerService) Balance(acc *models.Account) float64 {
	var sum float64
	for _, mov := range acc.Movements {
		sum += mov
	}
	return sum
}

// TotalDeposits sums the positive movements.
func (ls *LedgerService) TotalDeposits(acc *models.Account) float64 {
	var sum float64
	for _, mov := range acc.Movements {
		if mov > 0 {
			sum += mov
		}
	}
	return sum
}

// TotalWithdrawals is the absolute value of the summed negative movements.
func (ls *LedgerService) TotalWithdrawals(acc *models.Account) float64 {
	var sum float64
	for _, mov := range acc.Movements {
		if mov < 0 {
			sum += mov
		}
	}
	return math.Abs(sum)
}

// AccruedInterest computes per-deposit interest at the account's rate and sums
// the contributions that survive the whole-unit minimum.
func (ls *LedgerService) AccruedInterest(acc *models.Account) float64 {
	var sum float64
	for _, mov := range acc.Movements {
		if mov <= 0 {
			continue
		}
		interest := mov * acc.InterestRate / 100
		if interest >= interestMinimum {
			sum += interest
		}
	}
	return sum
}

// RecordMovement appends the amount and its timestamp as a single step, so the
// two sequences grow together or not at all.
func (ls *LedgerService) RecordMovement(acc *models.Account, amount float64, ts time.Time) {
	acc.Movements = append(acc.Movements, amount)
	acc.MovementDates = append(acc.MovementDates, ts)
}

// MovementsView returns a copy of the movement history paired with dates, in
// chronological (insertion) order.
func (ls *LedgerService) MovementsView(acc *models.Account) []models.Movement {
	view := make([]models.Movement, len(acc.Movements))
	for i, mov := range acc.Movements {
		view[i] = models.Movement{Amount: mov, Date: acc.MovementDates[i]}
	}
	return view
}

// SortedView returns the movements in ascending numeric order as a copy. The
// stored chronological order is never touched, so the presentation layer can
// toggle between views freely.
func (ls *LedgerService) SortedView(acc *models.Account) []models.Movement {
	view := ls.MovementsView(acc)
	sort.SliceStable(view, func(i, j int) bool {
		return view[i].Amount < view[j].Amount
	})
	return view
}

// Summarize builds the full computed view rendered after login and after every
// mutating operation.
func (ls *LedgerService) Summarize(acc *models.Account, now time.Time, secondsRemaining int) models.Summary {
	return models.Summary{
		Owner:            acc.Owner,
		WelcomeName:      acc.FirstName(),
		Username:         acc.Username,
		Balance:          ls.Balance(acc),
		TotalDeposits:    ls.TotalDeposits(acc),
		TotalWithdrawals: ls.TotalWithdrawals(acc),
		AccruedInterest:  ls.AccruedInterest(acc),
		Currency:         acc.Currency,
		Locale:           acc.Locale,
		AsOf:             now,
		SecondsRemaining: secondsRemaining,
	}
}
