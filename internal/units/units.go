// Package units converts flat quantities into the packaging units used on
// the shop floor: pcs/lusin/kodi/gros for general goods, rim/karton for
// paper.
package units

import "fmt"

// CategoryPaper is the catalog category whose stock is counted in reams.
const CategoryPaper = "Kertas"

// SheetsPerRim is the sheet count of one ream of paper.
const SheetsPerRim = 500

// Breakdown is one way of expressing a quantity in a packaging unit.
type Breakdown struct {
	Unit      string `json:"unit"`
	Count     int    `json:"count"`
	Remainder int    `json:"remainder"`
	Display   string `json:"display"`
}

// Option describes a unit selectable for stock intake.
type Option struct {
	Unit       string `json:"unit"`
	Label      string `json:"label"`
	Multiplier int    `json:"multiplier"`
}

type unitDef struct {
	name string
	size int
}

var pieceUnits = []unitDef{
	{name: "lusin", size: 12},
	{name: "kodi", size: 20},
	{name: "gros", size: 144},
}

// Decompose expresses a flat quantity as the applicable packaging units
// for the category: the base unit first, then each larger unit the
// quantity reaches, with the remainder shown in the base unit. It is
// total over all inputs; an unrecognized category uses the piece table.
func Decompose(qty int, category string) []Breakdown {
	if category == CategoryPaper {
		out := []Breakdown{{
			Unit:    "rim",
			Count:   qty,
			Display: fmt.Sprintf("%d rim (%d lembar)", qty, qty*SheetsPerRim),
		}}
		if qty >= 5 {
			out = append(out, breakdown("karton", "rim", qty, 5))
		}
		return out
	}

	out := []Breakdown{{
		Unit:    "pcs",
		Count:   qty,
		Display: fmt.Sprintf("%d pcs", qty),
	}}
	for _, u := range pieceUnits {
		if qty >= u.size {
			out = append(out, breakdown(u.name, "pcs", qty, u.size))
		}
	}
	return out
}

func breakdown(unit, baseUnit string, qty, size int) Breakdown {
	count := qty / size
	rem := qty % size
	display := fmt.Sprintf("%d %s", count, unit)
	if rem > 0 {
		display = fmt.Sprintf("%d %s + %d %s", count, unit, rem, baseUnit)
	}
	return Breakdown{Unit: unit, Count: count, Remainder: rem, Display: display}
}

// Display renders the quantity the way stock is read out at the counter.
// An exact multiple wins over a larger unit with a remainder: 24 pcs is
// "2 lusin", not "1 kodi + 4 pcs"; 25 pcs falls back to "1 kodi + 5 pcs".
func Display(qty int, category string) string {
	parts := Decompose(qty, category)
	for i := len(parts) - 1; i > 0; i-- {
		if parts[i].Remainder == 0 {
			return parts[i].Display
		}
	}
	return parts[len(parts)-1].Display
}

// Multiplier returns the factor converting a count in the given unit to
// the category's base unit. Unknown units convert one-to-one.
func Multiplier(unit, category string) int {
	switch unit {
	case "lusin":
		return 12
	case "kodi":
		return 20
	case "gros":
		return 144
	case "karton":
		if category == CategoryPaper {
			return 5
		}
		return 1
	default:
		return 1
	}
}

// Options lists the units offered for stock intake in the category.
func Options(category string) []Option {
	if category == CategoryPaper {
		return []Option{
			{Unit: "rim", Label: "Rim (500 lembar)", Multiplier: 1},
			{Unit: "karton", Label: "Karton (5 rim)", Multiplier: 5},
		}
	}
	return []Option{
		{Unit: "pcs", Label: "Pcs", Multiplier: 1},
		{Unit: "lusin", Label: "Lusin (12 pcs)", Multiplier: 12},
		{Unit: "kodi", Label: "Kodi (20 pcs)", Multiplier: 20},
		{Unit: "gros", Label: "Gros (144 pcs)", Multiplier: 144},
	}
}
