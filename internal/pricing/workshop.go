package pricing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
)

// WorkshopCharge is the aggregated workshop add-on cost.
type WorkshopCharge struct {
	Total decimal.Decimal
	Lines []model.WorkshopLine
}

// AggregateWorkshops sums the fees of the selected workshops. Duplicate
// ids are coalesced to a single line, since a registrant cannot be
// charged twice for the same workshop. Any id absent from the catalog
// rejects the whole aggregation; partial results are never returned.
func AggregateWorkshops(workshopIDs []string, rules *RuleSet) (WorkshopCharge, error) {
	charge := WorkshopCharge{Total: decimal.Zero}

	for _, id := range lo.Uniq(workshopIDs) {
		w, ok := rules.WorkshopByID(id)
		if !ok {
			return WorkshopCharge{Total: decimal.Zero}, &UnknownWorkshopError{ID: id}
		}
		charge.Lines = append(charge.Lines, model.WorkshopLine{
			ID:     w.ID,
			Name:   w.Name,
			Amount: w.Amount,
		})
		charge.Total = charge.Total.Add(w.Amount)
	}
	return charge, nil
}
