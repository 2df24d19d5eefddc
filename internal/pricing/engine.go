package pricing

// Money represents a monetary value in whole rupiah. The shop's currency
// carries no fractional subunits.
type Money = int64

// Line describes a single receipt line used for totals calculation. The
// product fields are denormalized snapshots so historical receipts stay
// stable when the catalog changes.
type Line struct {
	Qty        int
	SellPrice  Money
	CostPrice  Money
	FinalPrice *Money
	Photocopy  bool
}

// UnitPrice returns the effective per-unit price for the line. A final
// price, when set, is authoritative; otherwise the catalog sell price
// applies.
func (l Line) UnitPrice() Money {
	if l.FinalPrice != nil && *l.FinalPrice > 0 {
		return *l.FinalPrice
	}
	return l.SellPrice
}

// ManualCopyProfit selects how photocopy service lines count towards
// profit on manually authored invoices.
type ManualCopyProfit int

const (
	// ManualCopyProfitZero excludes photocopy lines from manual invoice
	// profit entirely.
	ManualCopyProfitZero ManualCopyProfit = iota
	// ManualCopyProfitRevenue counts the full sale price of photocopy
	// lines as profit on manual invoices.
	ManualCopyProfitRevenue
)

// Policy tunes the business rules that are not pure arithmetic.
type Policy struct {
	ManualCopyProfit ManualCopyProfit
}

// Summary aggregates the computed components of a transaction.
type Summary struct {
	Subtotal Money
	Discount Money
	Total    Money
	Profit   Money
}

// PercentDiscount resolves a percentage discount against a subtotal,
// rounding half away from zero.
func PercentDiscount(subtotal Money, pct float64) Money {
	if pct <= 0 || subtotal <= 0 {
		return 0
	}
	raw := float64(subtotal) * pct / 100
	return Money(raw + 0.5)
}

// Compute derives subtotal, clamped discount, total, and profit for the
// given lines. The discount is an absolute amount; percentage discounts
// are resolved by the caller via PercentDiscount first. Lines with a
// non-positive quantity are skipped; input validation belongs to the
// caller.
func Compute(lines []Line, discount Money, manual bool, policy Policy) Summary {
	var subtotal, profit Money
	for _, ln := range lines {
		if ln.Qty <= 0 {
			continue
		}
		price := ln.UnitPrice()
		subtotal += price * Money(ln.Qty)
		profit += lineProfit(ln, price, manual, policy)
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
		Profit:   profit,
	}
}

// lineProfit applies the profit rules. Ordinary lines yield margin over
// cost. Photocopy and other zero-cost service lines have no cost basis,
// so their full sale price counts as profit, except on manual invoices
// where the policy decides.
func lineProfit(ln Line, price Money, manual bool, policy Policy) Money {
	if ln.Photocopy {
		if manual && policy.ManualCopyProfit == ManualCopyProfitZero {
			return 0
		}
		return price * Money(ln.Qty)
	}
	return (price - ln.CostPrice) * Money(ln.Qty)
}
