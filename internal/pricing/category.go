package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// CategoryPrice is the resolved base fee for a registration category.
type CategoryPrice struct {
	Amount   decimal.Decimal
	Currency string
	Label    string
	// Waived is true when the registrant's own age exemption zeroed the
	// amount. Label and currency are preserved for display.
	Waived bool
}

// LookupCategory resolves the base registration fee within a tier,
// applying the category-level age exemption against the registrant's own
// age. This exemption is distinct from the accompanying-person one: it
// fires only when the rule names the chosen category AND the registrant
// meets the age threshold.
func LookupCategory(tier *model.PricingTier, categoryKey string, age int) (CategoryPrice, error) {
	rule, ok := tier.Categories[categoryKey]
	if !ok {
		return CategoryPrice{}, &UnknownCategoryError{Key: categoryKey}
	}

	price := CategoryPrice{
		Amount:   rule.Amount,
		Currency: rule.Currency,
		Label:    rule.Label,
	}

	if ex := rule.AgeExemption; ex != nil && age >= ex.MinAge {
		for _, key := range ex.ApplicableCategoryKeys {
			if key == categoryKey {
				price.Amount = decimal.Zero
				price.Waived = true
				break
			}
		}
	}
	return price, nil
}
