package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/slotsale/internal/domain"
)

var (
	ErrInvalidPackage    = errors.New("invalid package")
	ErrSlotCountMismatch = errors.New("slot count does not match package")
)

const (
	Single     = "SINGLE"
	HalfYearly = "HALF_YEARLY"
	Annual     = "ANNUAL"
)

var packages = map[string]domain.Package{
	Single:     {ID: Single, Label: "Regular Box", SlotsRequired: 1, UnitsGranted: 3, Price: 600},
	HalfYearly: {ID: HalfYearly, Label: "Half-Yearly Pack", SlotsRequired: 1, UnitsGranted: 6, Price: 900},
	Annual:     {ID: Annual, Label: "Annual Pack", SlotsRequired: 2, UnitsGranted: 12, Price: 1188},
}

// identifiers used by the first storefront release
var aliases = map[string]string{
	"regular": Single,
	"half":    HalfYearly,
	"annual":  Annual,
}

// Lookup returns the package registered under id or one of its aliases.
func Lookup(id string) (domain.Package, bool) {
	id = strings.TrimSpace(id)
	if canonical, ok := aliases[strings.ToLower(id)]; ok {
		id = canonical
	}

	p, ok := packages[strings.ToUpper(id)]
	return p, ok
}

// Resolve maps a requested slot set and package id to the package terms.
// It is the only place prices come from.
//
// Returns:
//   - domain.Package: slots required, units granted and price.
//   - error: ErrInvalidPackage if the id is unknown.
//   - error: ErrSlotCountMismatch if len(slotNumbers) differs from the
//     package's slot count.
func Resolve(slotNumbers []int, id string) (domain.Package, error) {
	const op = "catalog.Resolve"

	p, ok := Lookup(id)
	if !ok {
		return domain.Package{}, fmt.Errorf("%s:%w", op, ErrInvalidPackage)
	}

	if len(slotNumbers) != p.SlotsRequired {
		return domain.Package{}, fmt.Errorf(
			"%s: %s needs %d slot(s), got %d:%w",
			op, p.ID, p.SlotsRequired, len(slotNumbers), ErrSlotCountMismatch,
		)
	}

	return p, nil
}

// All returns the catalog ordered by price.
func All() []domain.Package {
	return []domain.Package{packages[Single], packages[HalfYearly], packages[Annual]}
}
