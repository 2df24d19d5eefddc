package units_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/units"
)

func TestDecomposePieces(t *testing.T) {
	parts := units.Decompose(7, "ATK")
	require.Len(t, parts, 1)
	require.Equal(t, "pcs", parts[0].Unit)
	require.Equal(t, "7 pcs", parts[0].Display)

	parts = units.Decompose(24, "ATK")
	require.Len(t, parts, 3)
	require.Equal(t, "lusin", parts[1].Unit)
	require.Equal(t, 2, parts[1].Count)
	require.Equal(t, 0, parts[1].Remainder)
	require.Equal(t, "2 lusin", parts[1].Display)
	require.Equal(t, "kodi", parts[2].Unit)
	require.Equal(t, "1 kodi + 4 pcs", parts[2].Display)

	parts = units.Decompose(150, "ATK")
	require.Len(t, parts, 4)
	require.Equal(t, "gros", parts[3].Unit)
	require.Equal(t, "1 gros + 6 pcs", parts[3].Display)
}

func TestDecomposePaper(t *testing.T) {
	parts := units.Decompose(3, units.CategoryPaper)
	require.Len(t, parts, 1)
	require.Equal(t, "rim", parts[0].Unit)
	require.Equal(t, "3 rim (1500 lembar)", parts[0].Display)

	parts = units.Decompose(11, units.CategoryPaper)
	require.Len(t, parts, 2)
	require.Equal(t, "karton", parts[1].Unit)
	require.Equal(t, 2, parts[1].Count)
	require.Equal(t, "2 karton + 1 rim", parts[1].Display)
}

func TestDisplayPicksLargestUnit(t *testing.T) {
	require.Equal(t, "7 pcs", units.Display(7, "ATK"))
	require.Equal(t, "1 lusin + 2 pcs", units.Display(14, "ATK"))
	require.Equal(t, "1 kodi + 5 pcs", units.Display(25, "ATK"))
	require.Equal(t, "1 gros", units.Display(144, "ATK"))
	require.Equal(t, "2 rim (1000 lembar)", units.Display(2, units.CategoryPaper))
	require.Equal(t, "1 karton", units.Display(5, units.CategoryPaper))
}

func TestDisplayPrefersExactMultiple(t *testing.T) {
	require.Equal(t, "2 lusin", units.Display(24, "ATK"))
	require.Equal(t, "3 lusin", units.Display(36, "ATK"))
	require.Equal(t, "2 kodi", units.Display(40, "ATK"))
	require.Equal(t, "2 karton", units.Display(10, units.CategoryPaper))
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		unit     string
		category string
		want     int
	}{
		{"pcs", "ATK", 1},
		{"lusin", "ATK", 12},
		{"kodi", "ATK", 20},
		{"gros", "ATK", 144},
		{"rim", units.CategoryPaper, 1},
		{"karton", units.CategoryPaper, 5},
		{"karton", "ATK", 1},
		{"dus", "ATK", 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, units.Multiplier(tt.unit, tt.category), "%s/%s", tt.unit, tt.category)
	}
}

func TestOptions(t *testing.T) {
	paper := units.Options(units.CategoryPaper)
	require.Len(t, paper, 2)
	require.Equal(t, "rim", paper[0].Unit)
	require.Equal(t, 5, paper[1].Multiplier)

	pieces := units.Options("Alat Tulis")
	require.Len(t, pieces, 4)
	require.Equal(t, "pcs", pieces[0].Unit)
	require.Equal(t, 144, pieces[3].Multiplier)
}
