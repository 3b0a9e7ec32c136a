package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// Aggregate composes the per-component charges into one breakdown.
//
// The subtotal is base + workshops + accompanying + accommodation
// subtotal; the discount is applied against that subtotal only. GST is
// computed on the pre-discount accommodation subtotal and added after the
// discount is subtracted, so it appears as its own line after the
// discount line and is never discounted itself. The pre-tax total is
// clamped at zero defensively even though the discount is already
// clamped upstream; a single bug must not be able to produce a negative
// charge.
func Aggregate(base CategoryPrice, workshops WorkshopCharge, accompanying AccompanyingCharge, accommodation AccommodationCharge, discount DiscountResult, tier *model.PricingTier) *model.PriceBreakdown {
	subtotal := base.Amount.
		Add(workshops.Total).
		Add(accompanying.Total).
		Add(accommodation.Subtotal)

	discountAmount := discount.Amount
	if discountAmount.IsNegative() {
		discountAmount = decimal.Zero
	}
	if discountAmount.GreaterThan(subtotal) {
		discountAmount = subtotal
	}

	total := subtotal.Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Add(accommodation.Tax)

	b := &model.PriceBreakdown{
		BaseAmount:                  base.Amount,
		BaseLabel:                   base.Label,
		WorkshopFees:                workshops.Total,
		Workshops:                   workshops.Lines,
		AccompanyingPersonFees:      accompanying.Total,
		AccompanyingPersonCount:     accompanying.LiableCount,
		FreeAccompanyingPersonCount: accompanying.ExemptCount,
		AccommodationFees:           accommodation.Subtotal,
		AccommodationNights:         accommodation.Nights,
		Subtotal:                    subtotal,
		DiscountAmount:              discountAmount,
		Tax:                         accommodation.Tax,
		Total:                       total,
		Currency:                    base.Currency,
		TierID:                      tier.ID,
		TierName:                    tier.Name,
	}
	if discount.Valid {
		b.DiscountCodeApplied = discount.Code
	} else {
		b.DiscountReason = discount.Reason
	}
	return b
}

// Calculate runs the full pricing pipeline for one request against an
// immutable rule snapshot and an explicit "now". It is deterministic and
// side-effect free: a displayed preview and the amount ultimately charged
// come from the same code path and identical inputs yield bit-identical
// breakdowns.
func Calculate(req *model.PriceCalculationRequest, rules *RuleSet, now time.Time) (*model.PriceBreakdown, error) {
	tier, err := ResolveTier(now, rules.Tiers, rules.Settings.FallbackTierName)
	if err != nil {
		return nil, err
	}

	base, err := LookupCategory(tier, req.CategoryKey, req.Age)
	if err != nil {
		return nil, err
	}
	if base.Currency == "" {
		base.Currency = rules.Settings.Currency
	}

	workshops, err := AggregateWorkshops(req.WorkshopIDs, rules)
	if err != nil {
		return nil, err
	}

	exemptionAge := rules.Settings.AccompanyingExemptionAge
	if exemptionAge <= 0 {
		exemptionAge = DefaultAccompanyingExemptionAge
	}
	accompanying := CalculateAccompanying(req.AccompanyingPersons, rules.Settings.AccompanyingPersonFee, exemptionAge)

	accommodation := zeroAccommodation()
	if req.Accommodation != nil {
		accommodation, err = CalculateAccommodation(req.Accommodation, rules.Settings.RoomRates, rules.Settings.GSTPercent)
		if err != nil {
			return nil, err
		}
	}

	subtotal := base.Amount.
		Add(workshops.Total).
		Add(accompanying.Total).
		Add(accommodation.Subtotal)

	var discount DiscountResult
	if req.DiscountCode != "" {
		discount = ResolveDiscount(req.DiscountCode, req.CategoryKey, now, subtotal, rules)
	} else {
		discount = DiscountResult{Amount: decimal.Zero}
	}

	return Aggregate(base, workshops, accompanying, accommodation, discount, tier), nil
}
