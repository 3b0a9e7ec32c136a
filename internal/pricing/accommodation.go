package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// AccommodationCharge is the lodging cost for a stay: nightly-rate
// subtotal plus GST. Tax is computed on the pre-discount subtotal and is
// added to the final total after the discount (see Aggregate).
type AccommodationCharge struct {
	Nights   int
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

func zeroAccommodation() AccommodationCharge {
	return AccommodationCharge{
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
}

// Nights derives the chargeable night count from a check-in/check-out
// pair, rounding partial days up. Non-positive counts are clamped to 0.
func Nights(sel *model.AccommodationSelection) int {
	days := sel.CheckOut.Sub(sel.CheckIn).Hours() / 24
	nights := int(math.Ceil(days))
	if nights < 0 {
		return 0
	}
	return nights
}

// CalculateAccommodation prices a lodging selection. A non-positive night
// count yields a zeroed charge together with ErrInvalidDateRange; the
// caller decides whether that rejects the whole request or just the
// accommodation line. An unconfigured room type is likewise signalled as
// an invalid selection rather than priced at zero.
func CalculateAccommodation(sel *model.AccommodationSelection, rates map[model.RoomType]decimal.Decimal, gstPercent decimal.Decimal) (AccommodationCharge, error) {
	nights := Nights(sel)
	if nights <= 0 {
		return zeroAccommodation(), ErrInvalidDateRange
	}

	rate, ok := rates[sel.RoomType]
	if !ok {
		return zeroAccommodation(), ErrInvalidDateRange
	}

	subtotal := rate.Mul(decimal.NewFromInt(int64(nights))).Round(2)
	tax := subtotal.Mul(gstPercent).Div(decimal.NewFromInt(100)).Round(2)

	return AccommodationCharge{
		Nights:   nights,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}, nil
}
