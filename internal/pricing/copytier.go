package pricing

// copyTier maps a minimum sheet count to a discounted per-sheet price.
// Tiers are matched by the highest threshold not exceeding the quantity;
// below the first threshold the product's own sell price applies.
type copyTier struct {
	MinQty int
	Price  Money
}

// Volume discounts for photocopy service, per sheet.
var copyTiers = []copyTier{
	{MinQty: 1000, Price: 260},
	{MinQty: 400, Price: 275},
	{MinQty: 150, Price: 285},
}

// CopyPrice resolves the per-sheet price for a photocopy line. A positive
// custom price overrides the tier lookup entirely. Quantities below the
// first tier use the base price. Returns the unit price and line total.
func CopyPrice(qty int, base Money, custom *Money) (unit Money, total Money) {
	unit = base
	if custom != nil && *custom > 0 {
		unit = *custom
	} else {
		for _, tier := range copyTiers {
			if qty >= tier.MinQty {
				unit = tier.Price
				break
			}
		}
	}
	return unit, unit * Money(qty)
}
