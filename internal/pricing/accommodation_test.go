package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

func testRates() map[model.RoomType]decimal.Decimal {
	return map[model.RoomType]decimal.Decimal{
		model.RoomTypeSingle:  dec(10000),
		model.RoomTypeSharing: dec(6000),
	}
}

func TestCalculateAccommodation(t *testing.T) {
	t.Run("two nights single with GST", func(t *testing.T) {
		sel := &model.AccommodationSelection{
			RoomType: model.RoomTypeSingle,
			CheckIn:  date(2026, 4, 23),
			CheckOut: date(2026, 4, 25),
		}
		charge, err := CalculateAccommodation(sel, testRates(), dec(18))
		require.NoError(t, err)
		assert.Equal(t, 2, charge.Nights)
		assert.True(t, dec(20000).Equal(charge.Subtotal))
		assert.True(t, dec(3600).Equal(charge.Tax))
		assert.True(t, dec(23600).Equal(charge.Total))
	})

	t.Run("sharing room uses its own rate", func(t *testing.T) {
		sel := &model.AccommodationSelection{
			RoomType: model.RoomTypeSharing,
			CheckIn:  date(2026, 4, 23),
			CheckOut: date(2026, 4, 24),
		}
		charge, err := CalculateAccommodation(sel, testRates(), dec(18))
		require.NoError(t, err)
		assert.Equal(t, 1, charge.Nights)
		assert.True(t, dec(6000).Equal(charge.Subtotal))
		assert.True(t, dec(1080).Equal(charge.Tax))
	})

	t.Run("partial day rounds up to a full night", func(t *testing.T) {
		sel := &model.AccommodationSelection{
			RoomType: model.RoomTypeSingle,
			CheckIn:  date(2026, 4, 23),
			CheckOut: date(2026, 4, 24).Add(6 * time.Hour), // 06:00 next day
		}
		charge, err := CalculateAccommodation(sel, testRates(), dec(18))
		require.NoError(t, err)
		assert.Equal(t, 2, charge.Nights)
	})

	t.Run("check-out equal to check-in is invalid", func(t *testing.T) {
		sel := &model.AccommodationSelection{
			RoomType: model.RoomTypeSingle,
			CheckIn:  date(2026, 4, 23),
			CheckOut: date(2026, 4, 23),
		}
		charge, err := CalculateAccommodation(sel, testRates(), dec(18))
		assert.ErrorIs(t, err, ErrInvalidDateRange)
		assert.Zero(t, charge.Nights)
		assert.True(t, charge.Total.IsZero())
	})

	t.Run("check-out before check-in is invalid", func(t *testing.T) {
		sel := &model.AccommodationSelection{
			RoomType: model.RoomTypeSingle,
			CheckIn:  date(2026, 4, 25),
			CheckOut: date(2026, 4, 23),
		}
		_, err := CalculateAccommodation(sel, testRates(), dec(18))
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("unconfigured room type is not priced at zero", func(t *testing.T) {
		sel := &model.AccommodationSelection{
			RoomType: model.RoomType("suite"),
			CheckIn:  date(2026, 4, 23),
			CheckOut: date(2026, 4, 25),
		}
		_, err := CalculateAccommodation(sel, testRates(), dec(18))
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})
}
