// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the pricing engine and stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sympose/conf-reg-pricing/internal/model"
	"github.com/sympose/conf-reg-pricing/internal/pricing"
	"github.com/sympose/conf-reg-pricing/internal/repository"
)

// ErrAmountMismatch is returned when a reported bank-transfer amount does
// not exactly match the registration's frozen total.
var ErrAmountMismatch = errors.New("paid amount does not match amount due")

// ErrValidation marks request-level input failures so the transport
// layer can answer 400 instead of 500.
var ErrValidation = errors.New("invalid request")

// RuleStore loads rule-table snapshots and accepts admin writes.
// (Interfaces here allow the service to be tested with fakes.)
type RuleStore interface {
	LoadRuleSet(ctx context.Context) (*pricing.RuleSet, error)
	CreateDiscount(ctx context.Context, d model.DiscountCode) error
}

// RegistrationStore persists registrations and their payment state.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration, now time.Time) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	MarkPaid(ctx context.Context, id, utr string) error
}

// RegisterRequest is the payload for creating a registration: contact
// details plus the same inputs a quote takes.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	model.PriceCalculationRequest
}

// PricingService orchestrates quoting, registration, and payment
// verification.
type PricingService struct {
	rules    RuleStore
	regs     RegistrationStore
	settings pricing.Settings
	clock    func() time.Time
	log      *zap.SugaredLogger
}

// NewPricingService constructs a PricingService with its dependencies.
func NewPricingService(rules RuleStore, regs RegistrationStore, settings pricing.Settings, log *zap.SugaredLogger) *PricingService {
	return &PricingService{
		rules:    rules,
		regs:     regs,
		settings: settings,
		clock:    func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// WithClock overrides the wall-clock source. Tests use it to pin "now".
func (s *PricingService) WithClock(clock func() time.Time) *PricingService {
	s.clock = clock
	return s
}

// dateOf truncates an instant to its UTC calendar date. Tier and
// discount windows are dates with inclusive endpoints, so eligibility is
// decided at date granularity: 23:59 on a window's last day still falls
// inside it.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *PricingService) snapshot(ctx context.Context) (*pricing.RuleSet, error) {
	rs, err := s.rules.LoadRuleSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rule tables: %w", err)
	}
	rs.Settings = s.settings
	return rs, nil
}

// Quote computes a price breakdown for a prospective registration. A
// non-nil asOf overrides "now", which makes tier-boundary previews
// deterministic; the rule tables are always the current snapshot.
func (s *PricingService) Quote(ctx context.Context, req *model.PriceCalculationRequest, asOf *time.Time) (*model.PriceBreakdown, error) {
	rs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := dateOf(s.clock())
	if asOf != nil {
		now = dateOf(*asOf)
	}

	b, err := pricing.Calculate(req, rs, now)
	if err != nil {
		return nil, err
	}

	s.log.Debugw("quote computed",
		"category", req.CategoryKey,
		"tier", b.TierName,
		"total", b.Total,
	)
	return b, nil
}

// Register computes the authoritative breakdown and persists the
// registration, consuming workshop seats and the discount use inside the
// store's transaction. The breakdown frozen here is the amount every
// later payment attempt must match.
func (s *PricingService) Register(ctx context.Context, req *RegisterRequest) (*model.Registration, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !isValidEmail(req.Email) {
		return nil, fmt.Errorf("%w: email is not a valid email address", ErrValidation)
	}
	if req.FullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrValidation)
	}

	rs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	createdAt := s.clock()
	now := dateOf(createdAt)
	b, err := pricing.Calculate(&req.PriceCalculationRequest, rs, now)
	if err != nil {
		return nil, err
	}

	// An ineligible code at registration time is a hard stop: silently
	// registering without the discount the registrant typed would charge
	// more than the preview showed.
	discountCode := ""
	if req.DiscountCode != "" {
		if b.DiscountCodeApplied == "" {
			return nil, fmt.Errorf("%w: discount code %q: %s", ErrValidation, req.DiscountCode, b.DiscountReason)
		}
		discountCode = b.DiscountCodeApplied
	}

	// Duplicate workshop selections are one billable line, so the stored
	// ids match the lines the breakdown charged for.
	reg := &model.Registration{
		ID:                  uuid.New().String(),
		Email:               req.Email,
		FullName:            req.FullName,
		CategoryKey:         req.CategoryKey,
		Age:                 req.Age,
		WorkshopIDs:         lo.Uniq(req.WorkshopIDs),
		AccompanyingPersons: req.AccompanyingPersons,
		Accommodation:       req.Accommodation,
		DiscountCode:        discountCode,
		Breakdown:           *b,
		Status:              model.StatusPending,
		CreatedAt:           createdAt,
	}

	if err := s.regs.Create(ctx, reg, now); err != nil {
		return nil, err
	}

	s.log.Infow("registration created",
		"registration_id", reg.ID,
		"category", reg.CategoryKey,
		"total", reg.Breakdown.Total,
	)
	return reg, nil
}

// GetRegistration returns a persisted registration by id.
func (s *PricingService) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: registration id is required", ErrValidation)
	}
	return s.regs.GetByID(ctx, id)
}

// VerifyPayment checks a reported bank-transfer amount against the
// frozen total and, on an exact match, records the UTR and marks the
// registration paid.
func (s *PricingService) VerifyPayment(ctx context.Context, id string, amount decimal.Decimal, utr string) (*model.Registration, error) {
	utr = strings.TrimSpace(utr)
	if utr == "" {
		return nil, fmt.Errorf("%w: payment UTR is required", ErrValidation)
	}

	reg, err := s.regs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Only registrations awaiting payment can transition to paid.
	switch reg.Status {
	case model.StatusPending, model.StatusPendingPayment:
	case model.StatusPaid:
		return nil, repository.ErrAlreadyPaid
	default:
		return nil, fmt.Errorf("%w: %s", repository.ErrNotPayable, reg.Status)
	}
	if !amount.Equal(reg.AmountDue()) {
		s.log.Warnw("payment amount mismatch",
			"registration_id", id,
			"reported", amount,
			"due", reg.AmountDue(),
		)
		return nil, fmt.Errorf("%w: got %s, want %s", ErrAmountMismatch, amount, reg.AmountDue())
	}

	if err := s.regs.MarkPaid(ctx, id, utr); err != nil {
		return nil, err
	}
	reg.Status = model.StatusPaid
	reg.PaymentUTR = utr

	s.log.Infow("payment verified", "registration_id", id, "utr", utr)
	return reg, nil
}

// ListTiers returns the configured tiers in declaration order.
func (s *PricingService) ListTiers(ctx context.Context) ([]model.PricingTier, error) {
	rs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return rs.Tiers, nil
}

// ListWorkshops returns the workshop catalog sorted by name.
func (s *PricingService) ListWorkshops(ctx context.Context) ([]model.Workshop, error) {
	rs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	workshops := make([]model.Workshop, 0, len(rs.Workshops))
	for _, w := range rs.Workshops {
		workshops = append(workshops, w)
	}
	sort.Slice(workshops, func(i, j int) bool { return workshops[i].Name < workshops[j].Name })
	return workshops, nil
}

// CreateDiscount validates and stores a new discount code.
func (s *PricingService) CreateDiscount(ctx context.Context, d model.DiscountCode) error {
	d.Code = strings.TrimSpace(d.Code)
	if d.Code == "" {
		return fmt.Errorf("code is required")
	}
	if d.Kind != model.DiscountPercentage && d.Kind != model.DiscountFixed {
		return fmt.Errorf("kind must be %q or %q", model.DiscountPercentage, model.DiscountFixed)
	}
	if d.Value.IsNegative() {
		return fmt.Errorf("value must be non-negative")
	}
	if d.Kind == model.DiscountPercentage && d.Value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("percentage value cannot exceed 100")
	}
	if !d.ValidTo.After(d.ValidFrom) {
		return fmt.Errorf("valid_to must be after valid_from")
	}
	if d.MaxUses != nil && *d.MaxUses <= 0 {
		return fmt.Errorf("max_uses must be positive when set")
	}
	return s.rules.CreateDiscount(ctx, d)
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
