package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateWorkshops(t *testing.T) {
	rules := testRuleSet()

	t.Run("sums selected workshops", func(t *testing.T) {
		charge, err := AggregateWorkshops([]string{"ws-usg", "ws-sim"}, rules)
		require.NoError(t, err)
		assert.True(t, dec(3000).Equal(charge.Total))
		require.Len(t, charge.Lines, 2)
		assert.Equal(t, "Ultrasound Basics", charge.Lines[0].Name)
	})

	t.Run("empty selection costs nothing", func(t *testing.T) {
		charge, err := AggregateWorkshops(nil, rules)
		require.NoError(t, err)
		assert.True(t, charge.Total.IsZero())
		assert.Empty(t, charge.Lines)
	})

	t.Run("duplicate ids are charged once", func(t *testing.T) {
		charge, err := AggregateWorkshops([]string{"ws-usg", "ws-usg", "ws-usg"}, rules)
		require.NoError(t, err)
		assert.True(t, dec(1200).Equal(charge.Total))
		assert.Len(t, charge.Lines, 1)
	})

	t.Run("unknown id rejects the whole aggregation", func(t *testing.T) {
		charge, err := AggregateWorkshops([]string{"ws-usg", "does-not-exist"}, rules)
		var unknown *UnknownWorkshopError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "does-not-exist", unknown.ID)
		// No partial result leaks out.
		assert.True(t, charge.Total.IsZero())
		assert.Empty(t, charge.Lines)
	})
}
