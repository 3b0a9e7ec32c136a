package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// Machine-readable ineligibility reasons. These are expected, common
// outcomes rather than errors, and the calling layer renders them as
// field-level messages.
const (
	ReasonNotFound         = "not found"
	ReasonInactive         = "inactive"
	ReasonNotYetValid      = "not yet valid"
	ReasonExpired          = "expired"
	ReasonUsageLimit       = "usage limit reached"
	ReasonCategoryExcluded = "not applicable to category"
)

// DiscountResult is the structured outcome of resolving a discount code.
// An ineligible code sets Valid=false with a Reason and a zero Amount;
// the surrounding calculation still completes without a discount line.
type DiscountResult struct {
	Valid  bool
	Code   string
	Amount decimal.Decimal
	Reason string
}

func ineligible(code, reason string) DiscountResult {
	return DiscountResult{Code: code, Amount: decimal.Zero, Reason: reason}
}

// ResolveDiscount validates a discount code and computes its amount
// against the supplied subtotal. Checks short-circuit in a fixed order
// (existence, active flag, date window, usage cap, category restriction)
// so the first failing rule names the reason.
//
// The amount is always clamped to [0, subtotal]: a discount can never
// drive the subtotal negative. Resolution reads UsesSoFar but never
// mutates it; callers re-resolve against a freshly locked row immediately
// before commit to close the last-use race.
func ResolveDiscount(code, categoryKey string, now time.Time, subtotal decimal.Decimal, rules *RuleSet) DiscountResult {
	d, ok := rules.DiscountByCode(code)
	if !ok {
		return ineligible(code, ReasonNotFound)
	}
	return ResolveDiscountCode(d, categoryKey, now, subtotal)
}

// ResolveDiscountCode runs the same validation chain against an already
// fetched code. The registration store uses this form for the
// authoritative pre-commit re-check on a row it holds locked.
func ResolveDiscountCode(d model.DiscountCode, categoryKey string, now time.Time, subtotal decimal.Decimal) DiscountResult {
	if !d.Active {
		return ineligible(d.Code, ReasonInactive)
	}
	if now.Before(d.ValidFrom) {
		return ineligible(d.Code, ReasonNotYetValid)
	}
	if now.After(d.ValidTo) {
		return ineligible(d.Code, ReasonExpired)
	}
	if d.MaxUses != nil && d.UsesSoFar >= *d.MaxUses {
		return ineligible(d.Code, ReasonUsageLimit)
	}
	if len(d.ApplicableCategoryKeys) > 0 {
		matched := false
		for _, key := range d.ApplicableCategoryKeys {
			if key == categoryKey {
				matched = true
				break
			}
		}
		if !matched {
			return ineligible(d.Code, ReasonCategoryExcluded)
		}
	}

	var amount decimal.Decimal
	if d.Kind == model.DiscountPercentage {
		amount = subtotal.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	} else {
		amount = d.Value
	}

	// Clamp to [0, subtotal].
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}

	return DiscountResult{Valid: true, Code: d.Code, Amount: amount}
}
