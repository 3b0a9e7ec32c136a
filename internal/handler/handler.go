// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sympose/conf-reg-pricing/internal/model"
	"github.com/sympose/conf-reg-pricing/internal/pricing"
	"github.com/sympose/conf-reg-pricing/internal/repository"
	"github.com/sympose/conf-reg-pricing/internal/service"
)

const dateLayout = "2006-01-02"

// PricingHandler holds all HTTP handlers for the pricing API.
type PricingHandler struct {
	svc      *service.PricingService
	validate *validator.Validate
	log      *zap.SugaredLogger
}

// NewPricingHandler constructs a PricingHandler.
func NewPricingHandler(svc *service.PricingService, log *zap.SugaredLogger) *PricingHandler {
	return &PricingHandler{
		svc:      svc,
		validate: validator.New(),
		log:      log,
	}
}

// ─── Request DTOs ─────────────────────────────────────────────────────────────

type accompanyingPersonDTO struct {
	Name                string `json:"name" validate:"required"`
	Age                 int    `json:"age" validate:"gte=0,lte=120"`
	Relationship        string `json:"relationship"`
	DietaryRequirements string `json:"dietary_requirements"`
}

type accommodationDTO struct {
	RoomType string `json:"room_type" validate:"required,oneof=single sharing"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

type quoteRequest struct {
	CategoryKey         string                  `json:"category_key" validate:"required"`
	Age                 int                     `json:"age" validate:"gte=0,lte=120"`
	WorkshopIDs         []string                `json:"workshop_ids" validate:"omitempty,dive,required"`
	AccompanyingPersons []accompanyingPersonDTO `json:"accompanying_persons" validate:"omitempty,dive"`
	DiscountCode        string                  `json:"discount_code"`
	Accommodation       *accommodationDTO       `json:"accommodation"`
	// AsOf previews the price as of a given date (tier boundaries are
	// date-sensitive); empty means the current wall-clock date.
	AsOf string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

func (q *quoteRequest) toModel() (*model.PriceCalculationRequest, *time.Time, error) {
	req := &model.PriceCalculationRequest{
		CategoryKey:  q.CategoryKey,
		Age:          q.Age,
		WorkshopIDs:  q.WorkshopIDs,
		DiscountCode: q.DiscountCode,
	}
	for _, p := range q.AccompanyingPersons {
		req.AccompanyingPersons = append(req.AccompanyingPersons, model.AccompanyingPerson{
			Name:                p.Name,
			Age:                 p.Age,
			Relationship:        p.Relationship,
			DietaryRequirements: p.DietaryRequirements,
		})
	}
	if q.Accommodation != nil {
		checkIn, err := time.Parse(dateLayout, q.Accommodation.CheckIn)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid check_in: %w", err)
		}
		checkOut, err := time.Parse(dateLayout, q.Accommodation.CheckOut)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid check_out: %w", err)
		}
		req.Accommodation = &model.AccommodationSelection{
			RoomType: model.RoomType(q.Accommodation.RoomType),
			CheckIn:  checkIn,
			CheckOut: checkOut,
		}
	}
	var asOf *time.Time
	if q.AsOf != "" {
		t, err := time.Parse(dateLayout, q.AsOf)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid as_of: %w", err)
		}
		asOf = &t
	}
	return req, asOf, nil
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	quoteRequest
}

type verifyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	UTR    string          `json:"utr" validate:"required"`
}

type createDiscountRequest struct {
	Code                   string          `json:"code" validate:"required"`
	Kind                   string          `json:"kind" validate:"required,oneof=percentage fixed"`
	Value                  decimal.Decimal `json:"value" validate:"required"`
	ValidFrom              string          `json:"valid_from" validate:"required,datetime=2006-01-02"`
	ValidTo                string          `json:"valid_to" validate:"required,datetime=2006-01-02"`
	Active                 bool            `json:"active"`
	MaxUses                *int            `json:"max_uses" validate:"omitempty,gt=0"`
	ApplicableCategoryKeys []string        `json:"applicable_category_keys"`
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *PricingHandler) decodeAndValidate(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed validation (%s)", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// writeServiceError maps domain errors to HTTP statuses. Identifier and
// date errors are the caller's fault (422); exhausted seats or codes are
// conflicts; a broken tier configuration is surfaced as a generic
// temporary failure.
func (h *PricingHandler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		unknownCategory *pricing.UnknownCategoryError
		unknownWorkshop *pricing.UnknownWorkshopError
	)
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unknownCategory), errors.As(err, &unknownWorkshop):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pricing.ErrInvalidDateRange):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pricing.ErrNoFallbackTier):
		h.log.Errorw("tier configuration broken", "error", err)
		writeError(w, http.StatusServiceUnavailable, "pricing temporarily unavailable")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "registration not found")
	case errors.Is(err, repository.ErrWorkshopFull),
		errors.Is(err, repository.ErrDiscountNotAvailable),
		errors.Is(err, repository.ErrAlreadyRegistered),
		errors.Is(err, repository.ErrAlreadyPaid),
		errors.Is(err, repository.ErrNotPayable),
		errors.Is(err, service.ErrAmountMismatch):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// Quote handles POST /pricing/quote
// Computes a full price breakdown without persisting anything.
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	calcReq, asOf, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.svc.Quote(r.Context(), calcReq, asOf)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// Register handles POST /registrations
// Computes the authoritative breakdown and persists the registration.
func (h *PricingHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	calcReq, _, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), &service.RegisterRequest{
		Email:                   req.Email,
		FullName:                req.FullName,
		PriceCalculationRequest: *calcReq,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// GetRegistration handles GET /registrations/{id}
func (h *PricingHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reg, err := h.svc.GetRegistration(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// VerifyPayment handles POST /registrations/{id}/verify-payment
// Matches a reported bank-transfer amount against the frozen total.
func (h *PricingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req verifyPaymentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := h.svc.VerifyPayment(r.Context(), id, req.Amount, req.UTR)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// ListTiers handles GET /pricing/tiers
func (h *PricingHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.svc.ListTiers(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if tiers == nil {
		tiers = []model.PricingTier{}
	}
	writeJSON(w, http.StatusOK, tiers)
}

// ListWorkshops handles GET /pricing/workshops
func (h *PricingHandler) ListWorkshops(w http.ResponseWriter, r *http.Request) {
	workshops, err := h.svc.ListWorkshops(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if workshops == nil {
		workshops = []model.Workshop{}
	}
	writeJSON(w, http.StatusOK, workshops)
}

// CreateDiscount handles POST /admin/discounts
func (h *PricingHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req createDiscountRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	validFrom, err := time.Parse(dateLayout, req.ValidFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid valid_from")
		return
	}
	validTo, err := time.Parse(dateLayout, req.ValidTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid valid_to")
		return
	}

	d := model.DiscountCode{
		Code:                   req.Code,
		Kind:                   model.DiscountKind(req.Kind),
		Value:                  req.Value,
		ValidFrom:              validFrom,
		ValidTo:                validTo,
		Active:                 req.Active,
		MaxUses:                req.MaxUses,
		ApplicableCategoryKeys: req.ApplicableCategoryKeys,
	}
	if err := h.svc.CreateDiscount(r.Context(), d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
