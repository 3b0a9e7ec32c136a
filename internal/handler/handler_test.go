package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sympose/conf-reg-pricing/internal/model"
	"github.com/sympose/conf-reg-pricing/internal/pricing"
	"github.com/sympose/conf-reg-pricing/internal/service"
)

type stubRuleStore struct {
	rules *pricing.RuleSet
}

func (s *stubRuleStore) LoadRuleSet(ctx context.Context) (*pricing.RuleSet, error) {
	rs := *s.rules
	return &rs, nil
}

func (s *stubRuleStore) CreateDiscount(ctx context.Context, d model.DiscountCode) error {
	return nil
}

type stubRegistrationStore struct{}

func (s *stubRegistrationStore) Create(ctx context.Context, reg *model.Registration, now time.Time) error {
	return nil
}

func (s *stubRegistrationStore) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	return nil, assert.AnError
}

func (s *stubRegistrationStore) MarkPaid(ctx context.Context, id, utr string) error {
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	rules := &pricing.RuleSet{
		Tiers: []model.PricingTier{
			{
				ID: "tier-regular", Name: "regular", Active: true, Position: 1,
				EffectiveFrom: date(2026, 1, 1), EffectiveTo: date(2026, 12, 31),
				Categories: map[string]model.CategoryRule{
					"postgraduate": {Key: "postgraduate", Label: "Postgraduate", Amount: dec(2500), Currency: "INR"},
				},
			},
		},
		Workshops: map[string]model.Workshop{
			"ws-usg": {ID: "ws-usg", Name: "Ultrasound Basics", Amount: dec(1200), Currency: "INR"},
		},
		Discounts: map[string]model.DiscountCode{},
	}
	settings := pricing.Settings{
		FallbackTierName:         "regular",
		Currency:                 "INR",
		AccompanyingPersonFee:    dec(3000),
		AccompanyingExemptionAge: 10,
		RoomRates: map[model.RoomType]decimal.Decimal{
			model.RoomTypeSingle:  dec(10000),
			model.RoomTypeSharing: dec(6000),
		},
		GSTPercent: dec(18),
	}

	svc := service.NewPricingService(&stubRuleStore{rules: rules}, &stubRegistrationStore{}, settings, zap.NewNop().Sugar()).
		WithClock(func() time.Time { return date(2026, 5, 10) })
	h := NewPricingHandler(svc, zap.NewNop().Sugar())

	r := chi.NewRouter()
	r.Post("/pricing/quote", h.Quote)
	r.Get("/pricing/workshops", h.ListWorkshops)
	r.Post("/registrations", h.Register)
	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestQuoteEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := postJSON(t, router, "/pricing/quote", `{
		"category_key": "postgraduate",
		"age": 28,
		"accompanying_persons": [{"name": "Meera", "age": 25}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var b model.PriceBreakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.True(t, dec(5500).Equal(b.Total), "total = %s", b.Total)
	assert.Equal(t, "regular", b.TierName)
}

func TestQuoteEndpointValidation(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"missing category", `{"age": 28}`, http.StatusBadRequest},
		{"negative age", `{"category_key": "postgraduate", "age": -1}`, http.StatusBadRequest},
		{"malformed json", `{`, http.StatusBadRequest},
		{
			"unknown workshop",
			`{"category_key": "postgraduate", "age": 28, "workshop_ids": ["nope"]}`,
			http.StatusUnprocessableEntity,
		},
		{
			"unknown category",
			`{"category_key": "exhibitor", "age": 28}`,
			http.StatusUnprocessableEntity,
		},
		{
			"inverted accommodation dates",
			`{"category_key": "postgraduate", "age": 28,
			  "accommodation": {"room_type": "single", "check_in": "2026-04-25", "check_out": "2026-04-23"}}`,
			http.StatusUnprocessableEntity,
		},
		{
			"bad room type",
			`{"category_key": "postgraduate", "age": 28,
			  "accommodation": {"room_type": "suite", "check_in": "2026-04-23", "check_out": "2026-04-25"}}`,
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/pricing/quote", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestQuoteEndpointDiscountIneligibleIsNotAnError(t *testing.T) {
	router := testRouter(t)

	rec := postJSON(t, router, "/pricing/quote", `{
		"category_key": "postgraduate",
		"age": 28,
		"discount_code": "GHOST"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var b model.PriceBreakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Empty(t, b.DiscountCodeApplied)
	assert.Equal(t, pricing.ReasonNotFound, b.DiscountReason)
	assert.True(t, dec(2500).Equal(b.Total))
}

func TestRegisterEndpointServiceValidationIsBadRequest(t *testing.T) {
	// "asha@localhost" slips past the DTO's email tag but fails the
	// service's structural check; that is the caller's fault, not a
	// server error.
	router := testRouter(t)

	rec := postJSON(t, router, "/registrations", `{
		"email": "asha@localhost",
		"full_name": "Asha Verma",
		"category_key": "postgraduate",
		"age": 28
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestListWorkshopsEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/pricing/workshops", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var workshops []model.Workshop
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workshops))
	require.Len(t, workshops, 1)
	assert.Equal(t, "ws-usg", workshops[0].ID)
}
