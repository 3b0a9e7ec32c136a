package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// AccompanyingCharge partitions accompanying persons into fee-liable and
// age-exempt and carries the summed fee for the liable group.
type AccompanyingCharge struct {
	LiableCount int
	ExemptCount int
	Total       decimal.Decimal
}

// CalculateAccompanying computes the accompanying-person fee. A person is
// exempt iff their age is strictly below exemptionAge; everyone else pays
// feePerPerson. The computation is age-only; relationship and dietary
// fields never affect the fee.
func CalculateAccompanying(persons []model.AccompanyingPerson, feePerPerson decimal.Decimal, exemptionAge int) AccompanyingCharge {
	charge := AccompanyingCharge{Total: decimal.Zero}
	for _, p := range persons {
		if p.Age < exemptionAge {
			charge.ExemptCount++
			continue
		}
		charge.LiableCount++
	}
	charge.Total = feePerPerson.Mul(decimal.NewFromInt(int64(charge.LiableCount)))
	return charge
}
