package pricing

import (
	"errors"
	"fmt"
)

// ErrNoFallbackTier is returned when no tier window matches "now" and the
// configured fallback tier is missing from the rule set. This is a
// configuration fault; the calculation cannot proceed.
var ErrNoFallbackTier = errors.New("no pricing tier matches and fallback tier is missing")

// ErrInvalidDateRange is returned when an accommodation selection has
// check-out on or before check-in. The accommodation result is zeroed but
// the error must not be swallowed: a malformed date pair must never be
// silently priced at zero.
var ErrInvalidDateRange = errors.New("accommodation check-out must be after check-in")

// UnknownCategoryError reports a registration category absent from the
// resolved tier.
type UnknownCategoryError struct {
	Key string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown registration category %q", e.Key)
}

// UnknownWorkshopError reports a workshop id absent from the catalog. The
// whole calculation is rejected; no partial aggregation is returned.
type UnknownWorkshopError struct {
	ID string
}

func (e *UnknownWorkshopError) Error() string {
	return fmt.Sprintf("unknown workshop %q", e.ID)
}
