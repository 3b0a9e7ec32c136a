// Package pricing implements the registration pricing and eligibility
// engine: a pure, stateless calculation over an immutable rule-table
// snapshot and an explicit "now". It performs no I/O and holds no global
// state, so repeated calls with identical inputs produce identical
// breakdowns.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// DefaultFallbackTierName is the tier used when no window matches "now".
const DefaultFallbackTierName = "regular"

// DefaultAccompanyingExemptionAge is the age below which an accompanying
// person attends free.
const DefaultAccompanyingExemptionAge = 10

// Settings carries the scalar pricing configuration that is not part of
// any tier: accompanying-person fee, room rates and GST for
// accommodation, and the fallback tier name.
type Settings struct {
	FallbackTierName         string
	Currency                 string
	AccompanyingPersonFee    decimal.Decimal
	AccompanyingExemptionAge int
	RoomRates                map[model.RoomType]decimal.Decimal
	GSTPercent               decimal.Decimal
}

// RuleSet is an immutable snapshot of the rule tables a single
// calculation runs against. Callers load it once per request (or reuse a
// cached snapshot); the engine never mutates it.
type RuleSet struct {
	Tiers     []model.PricingTier
	Workshops map[string]model.Workshop
	Discounts map[string]model.DiscountCode
	Settings  Settings
}

// WorkshopByID returns the catalog entry for id.
func (rs *RuleSet) WorkshopByID(id string) (model.Workshop, bool) {
	w, ok := rs.Workshops[id]
	return w, ok
}

// DiscountByCode returns the registered discount code, case-sensitively.
func (rs *RuleSet) DiscountByCode(code string) (model.DiscountCode, bool) {
	d, ok := rs.Discounts[code]
	return d, ok
}
