package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
	"github.com/sympose/conf-reg-pricing/internal/pricing"
)

// RuleRepository loads the declarative rule tables (tiers, workshops,
// discount codes) as an immutable snapshot for the pricing engine.
type RuleRepository struct {
	db *pgxpool.Pool
}

// NewRuleRepository constructs a RuleRepository.
func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

// LoadRuleSet reads all rule tables in one pass. The returned snapshot
// has empty Settings; the service layer injects the configured scalar
// settings before handing it to the engine.
func (r *RuleRepository) LoadRuleSet(ctx context.Context) (*pricing.RuleSet, error) {
	tiers, err := r.loadTiers(ctx)
	if err != nil {
		return nil, err
	}
	workshops, err := r.loadWorkshops(ctx)
	if err != nil {
		return nil, err
	}
	discounts, err := r.loadDiscounts(ctx)
	if err != nil {
		return nil, err
	}
	return &pricing.RuleSet{
		Tiers:     tiers,
		Workshops: workshops,
		Discounts: discounts,
	}, nil
}

// loadTiers returns tiers in declaration (position) order, with their
// category rules attached. Declaration order is load-bearing: the engine
// takes the first matching tier.
func (r *RuleRepository) loadTiers(ctx context.Context) ([]model.PricingTier, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, effective_from, effective_to, active, position
		 FROM pricing_tiers
		 ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []model.PricingTier
	index := make(map[string]int)
	for rows.Next() {
		var t model.PricingTier
		if err := rows.Scan(&t.ID, &t.Name, &t.EffectiveFrom, &t.EffectiveTo, &t.Active, &t.Position); err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		t.Categories = make(map[string]model.CategoryRule)
		index[t.ID] = len(tiers)
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catRows, err := r.db.Query(ctx,
		`SELECT tier_id, key, label, amount::text, currency,
		        exemption_min_age, exemption_category_keys
		 FROM tier_categories`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tier categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var (
			tierID       string
			rule         model.CategoryRule
			amountText   string
			exemptMinAge *int
			exemptKeys   []string
		)
		if err := catRows.Scan(&tierID, &rule.Key, &rule.Label, &amountText, &rule.Currency, &exemptMinAge, &exemptKeys); err != nil {
			return nil, fmt.Errorf("scan tier category: %w", err)
		}
		rule.Amount, err = decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("parse category amount %q: %w", amountText, err)
		}
		if exemptMinAge != nil {
			rule.AgeExemption = &model.AgeExemption{
				MinAge:                 *exemptMinAge,
				ApplicableCategoryKeys: exemptKeys,
			}
		}
		if i, ok := index[tierID]; ok {
			tiers[i].Categories[rule.Key] = rule
		}
	}
	return tiers, catRows.Err()
}

func (r *RuleRepository) loadWorkshops(ctx context.Context) (map[string]model.Workshop, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, amount::text, currency, capacity, seats_taken
		 FROM workshops`,
	)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	defer rows.Close()

	workshops := make(map[string]model.Workshop)
	for rows.Next() {
		var (
			w          model.Workshop
			amountText string
		)
		if err := rows.Scan(&w.ID, &w.Name, &amountText, &w.Currency, &w.Capacity, &w.SeatsTaken); err != nil {
			return nil, fmt.Errorf("scan workshop: %w", err)
		}
		w.Amount, err = decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("parse workshop amount %q: %w", amountText, err)
		}
		workshops[w.ID] = w
	}
	return workshops, rows.Err()
}

func (r *RuleRepository) loadDiscounts(ctx context.Context) (map[string]model.DiscountCode, error) {
	rows, err := r.db.Query(ctx,
		`SELECT code, kind, value::text, valid_from, valid_to, active,
		        max_uses, uses_so_far, applicable_category_keys
		 FROM discount_codes`,
	)
	if err != nil {
		return nil, fmt.Errorf("list discount codes: %w", err)
	}
	defer rows.Close()

	discounts := make(map[string]model.DiscountCode)
	for rows.Next() {
		var (
			d         model.DiscountCode
			valueText string
			kind      string
		)
		if err := rows.Scan(&d.Code, &kind, &valueText, &d.ValidFrom, &d.ValidTo, &d.Active, &d.MaxUses, &d.UsesSoFar, &d.ApplicableCategoryKeys); err != nil {
			return nil, fmt.Errorf("scan discount code: %w", err)
		}
		d.Kind = model.DiscountKind(kind)
		d.Value, err = decimal.NewFromString(valueText)
		if err != nil {
			return nil, fmt.Errorf("parse discount value %q: %w", valueText, err)
		}
		discounts[d.Code] = d
	}
	return discounts, rows.Err()
}

// CreateDiscount inserts a new discount code.
func (r *RuleRepository) CreateDiscount(ctx context.Context, d model.DiscountCode) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO discount_codes
		   (code, kind, value, valid_from, valid_to, active, max_uses, uses_so_far, applicable_category_keys)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)`,
		d.Code, string(d.Kind), d.Value.String(), d.ValidFrom, d.ValidTo, d.Active, d.MaxUses, d.ApplicableCategoryKeys,
	)
	if err != nil {
		return fmt.Errorf("insert discount code: %w", err)
	}
	return nil
}
