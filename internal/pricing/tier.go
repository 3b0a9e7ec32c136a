package pricing

import (
	"time"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// ResolveTier selects the active pricing tier for "now".
//
// Tiers are scanned in declaration order and the first active tier whose
// window contains now wins, even if a later tier also matches. When no
// tier matches, the tier named by Settings.FallbackTierName is used
// regardless of its window; its absence is a configuration fault.
func ResolveTier(now time.Time, tiers []model.PricingTier, fallbackName string) (*model.PricingTier, error) {
	for i := range tiers {
		t := &tiers[i]
		if t.Active && t.Contains(now) {
			return t, nil
		}
	}
	if fallbackName == "" {
		fallbackName = DefaultFallbackTierName
	}
	for i := range tiers {
		if tiers[i].Name == fallbackName {
			return &tiers[i], nil
		}
	}
	return nil, ErrNoFallbackTier
}
