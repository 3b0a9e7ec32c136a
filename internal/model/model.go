// Package model defines the core domain types for the registration
// pricing system: the declarative rule tables (tiers, workshops,
// discount codes) and the registrations priced against them.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRule is the fee charged for one registration category within a
// pricing tier.
type CategoryRule struct {
	Key          string          `json:"key"`
	Label        string          `json:"label"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	AgeExemption *AgeExemption   `json:"age_exemption,omitempty"`
}

// AgeExemption waives a category fee for registrants at or above MinAge,
// but only when the chosen category is one of ApplicableCategoryKeys.
type AgeExemption struct {
	MinAge                 int      `json:"min_age"`
	ApplicableCategoryKeys []string `json:"applicable_category_keys"`
}

// PricingTier is a named, date-windowed fee schedule. Tiers are evaluated
// in Position order and the first active tier whose window contains "now"
// wins; the tier named by the fallback setting is used when none match.
type PricingTier struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	EffectiveFrom time.Time               `json:"effective_from"`
	EffectiveTo   time.Time               `json:"effective_to"`
	Active        bool                    `json:"active"`
	Position      int                     `json:"position"`
	Categories    map[string]CategoryRule `json:"categories"`
}

// Contains reports whether the tier's date window includes the given
// instant. Both endpoints are inclusive.
func (t *PricingTier) Contains(now time.Time) bool {
	return !now.Before(t.EffectiveFrom) && !now.After(t.EffectiveTo)
}

// Workshop is an optional paid add-on. Capacity is enforced at
// registration time, not during price calculation; a nil Capacity means
// unlimited seats.
type Workshop struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Capacity   *int            `json:"capacity,omitempty"`
	SeatsTaken int             `json:"seats_taken"`
}

// Remaining returns the number of open seats, or -1 when unlimited.
func (w *Workshop) Remaining() int {
	if w.Capacity == nil {
		return -1
	}
	return *w.Capacity - w.SeatsTaken
}

// AccompanyingPerson is a guest attached to a registration. Fee liability
// is derived from age alone; relationship and dietary requirements are
// display fields with no pricing effect.
type AccompanyingPerson struct {
	Name                string `json:"name"`
	Age                 int    `json:"age"`
	Relationship        string `json:"relationship,omitempty"`
	DietaryRequirements string `json:"dietary_requirements,omitempty"`
}

// RoomType is the lodging room category for an accommodation add-on.
type RoomType string

const (
	RoomTypeSingle  RoomType = "single"
	RoomTypeSharing RoomType = "sharing"
)

// AccommodationSelection is a multi-night lodging add-on.
type AccommodationSelection struct {
	RoomType RoomType  `json:"room_type"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// DiscountKind distinguishes percentage codes from fixed-amount codes.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// DiscountCode is a time- and usage-bounded modifier that reduces a
// subtotal. UsesSoFar is read here for eligibility only; it is consumed
// (incremented) by the registration store at commit time.
type DiscountCode struct {
	Code                   string          `json:"code"`
	Kind                   DiscountKind    `json:"kind"`
	Value                  decimal.Decimal `json:"value"`
	ValidFrom              time.Time       `json:"valid_from"`
	ValidTo                time.Time       `json:"valid_to"`
	Active                 bool            `json:"active"`
	MaxUses                *int            `json:"max_uses,omitempty"`
	UsesSoFar              int             `json:"uses_so_far"`
	ApplicableCategoryKeys []string        `json:"applicable_category_keys,omitempty"`
}

// PriceCalculationRequest is the immutable input to a single price
// calculation. It never mutates the rule tables it is priced against.
type PriceCalculationRequest struct {
	CategoryKey         string                  `json:"category_key"`
	Age                 int                     `json:"age"`
	WorkshopIDs         []string                `json:"workshop_ids,omitempty"`
	AccompanyingPersons []AccompanyingPerson    `json:"accompanying_persons,omitempty"`
	DiscountCode        string                  `json:"discount_code,omitempty"`
	Accommodation       *AccommodationSelection `json:"accommodation,omitempty"`
}

// WorkshopLine is one itemized workshop charge within a breakdown.
type WorkshopLine struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PriceBreakdown is the itemized, auditable output of one price
// calculation. It is produced fresh per request and never mutated after
// construction; downstream consumers copy it into the registration and
// payment records.
type PriceBreakdown struct {
	BaseAmount                  decimal.Decimal `json:"base_amount"`
	BaseLabel                   string          `json:"base_label"`
	WorkshopFees                decimal.Decimal `json:"workshop_fees"`
	Workshops                   []WorkshopLine  `json:"workshops,omitempty"`
	AccompanyingPersonFees      decimal.Decimal `json:"accompanying_person_fees"`
	AccompanyingPersonCount     int             `json:"accompanying_person_count"`
	FreeAccompanyingPersonCount int             `json:"free_accompanying_person_count"`
	AccommodationFees           decimal.Decimal `json:"accommodation_fees"`
	AccommodationNights         int             `json:"accommodation_nights"`
	Subtotal                    decimal.Decimal `json:"subtotal"`
	DiscountAmount              decimal.Decimal `json:"discount_amount"`
	DiscountCodeApplied         string          `json:"discount_code_applied,omitempty"`
	DiscountReason              string          `json:"discount_reason,omitempty"`
	Tax                         decimal.Decimal `json:"tax"`
	Total                       decimal.Decimal `json:"total"`
	Currency                    string          `json:"currency"`
	TierID                      string          `json:"tier_id"`
	TierName                    string          `json:"tier_name"`
}

// RegistrationStatus is the payment lifecycle of a persisted
// registration. Only the pending → paid transition happens in this
// service (on payment verification); other states are written by
// external collaborators.
type RegistrationStatus string

const (
	StatusPending        RegistrationStatus = "pending"
	StatusPendingPayment RegistrationStatus = "pending-payment"
	StatusPaid           RegistrationStatus = "paid"
	StatusCancelled      RegistrationStatus = "cancelled"
	StatusRefunded       RegistrationStatus = "refunded"
)

// Registration is a persisted registrant with the frozen breakdown that
// gates payment verification.
type Registration struct {
	ID                  string                  `json:"id"`
	Email               string                  `json:"email"`
	FullName            string                  `json:"full_name"`
	CategoryKey         string                  `json:"category_key"`
	Age                 int                     `json:"age"`
	WorkshopIDs         []string                `json:"workshop_ids,omitempty"`
	AccompanyingPersons []AccompanyingPerson    `json:"accompanying_persons,omitempty"`
	Accommodation       *AccommodationSelection `json:"accommodation,omitempty"`
	DiscountCode        string                  `json:"discount_code,omitempty"`
	Breakdown           PriceBreakdown          `json:"breakdown"`
	Status              RegistrationStatus      `json:"status"`
	PaymentUTR          string                  `json:"payment_utr,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
}

// AmountDue is the frozen amount a payment attempt must match exactly.
func (r *Registration) AmountDue() decimal.Decimal {
	return r.Breakdown.Total
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
