package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func intPtr(v int) *int { return &v }

// testRuleSet mirrors the observed production configuration: early-bird
// and regular tiers, two workshops, an 18% GST on lodging and a 3000 INR
// accompanying-person fee with the under-10 exemption.
func testRuleSet() *RuleSet {
	return &RuleSet{
		Tiers: []model.PricingTier{
			{
				ID:            "tier-early",
				Name:          "early-bird",
				EffectiveFrom: date(2026, 2, 1),
				EffectiveTo:   date(2026, 4, 20),
				Active:        true,
				Position:      1,
				Categories: map[string]model.CategoryRule{
					"student":      {Key: "student", Label: "Student", Amount: dec(1500), Currency: "INR"},
					"postgraduate": {Key: "postgraduate", Label: "Postgraduate", Amount: dec(2000), Currency: "INR"},
					"consultant":   {Key: "consultant", Label: "Consultant", Amount: dec(4000), Currency: "INR"},
				},
			},
			{
				ID:            "tier-regular",
				Name:          "regular",
				EffectiveFrom: date(2026, 4, 21),
				EffectiveTo:   date(2026, 6, 30),
				Active:        true,
				Position:      2,
				Categories: map[string]model.CategoryRule{
					"student":      {Key: "student", Label: "Student", Amount: dec(2000), Currency: "INR"},
					"postgraduate": {Key: "postgraduate", Label: "Postgraduate", Amount: dec(2500), Currency: "INR"},
					"consultant":   {Key: "consultant", Label: "Consultant", Amount: dec(5000), Currency: "INR"},
					"senior": {
						Key: "senior", Label: "Senior Faculty", Amount: dec(3500), Currency: "INR",
						AgeExemption: &model.AgeExemption{MinAge: 70, ApplicableCategoryKeys: []string{"senior"}},
					},
				},
			},
		},
		Workshops: map[string]model.Workshop{
			"ws-usg": {ID: "ws-usg", Name: "Ultrasound Basics", Amount: dec(1200), Currency: "INR", Capacity: intPtr(40)},
			"ws-sim": {ID: "ws-sim", Name: "Simulation Lab", Amount: dec(1800), Currency: "INR", Capacity: intPtr(25)},
		},
		Discounts: map[string]model.DiscountCode{
			"WELCOME15": {
				Code: "WELCOME15", Kind: model.DiscountPercentage, Value: dec(15),
				ValidFrom: date(2026, 1, 1), ValidTo: date(2026, 6, 30), Active: true,
			},
			"FLAT500": {
				Code: "FLAT500", Kind: model.DiscountFixed, Value: dec(500),
				ValidFrom: date(2026, 1, 1), ValidTo: date(2026, 6, 30), Active: true,
				MaxUses: intPtr(100), ApplicableCategoryKeys: []string{"student", "postgraduate"},
			},
		},
		Settings: Settings{
			FallbackTierName:         "regular",
			Currency:                 "INR",
			AccompanyingPersonFee:    dec(3000),
			AccompanyingExemptionAge: 10,
			RoomRates: map[model.RoomType]decimal.Decimal{
				model.RoomTypeSingle:  dec(10000),
				model.RoomTypeSharing: dec(6000),
			},
			GSTPercent: dec(18),
		},
	}
}
