package layout

import "github.com/menuscan/menu-layout-service/internal/models"

// Units describes the coordinate convention shared by all words of one analysis
type Units struct {
	Normalized bool
	// MinHeight is the floor used for degenerate zero-height boxes
	MinHeight float64
	// RowEpsilon is the Y0 window inside which words count as one reading row
	RowEpsilon float64
}

// DetectUnits reports normalized units when every word ends inside the unit
// square. pixelEpsilon is the reading-order row window for pixel input; for
// normalized input a hundredth of the page is used.
func DetectUnits(words []models.Word, pixelEpsilon float64) Units {
	if pixelEpsilon <= 0 {
		pixelEpsilon = 10
	}
	normalized := len(words) > 0
	for _, w := range words {
		if w.BBox.X1 > 1 || w.BBox.Y1 > 1 {
			normalized = false
			break
		}
	}
	if normalized {
		return Units{Normalized: true, MinHeight: 0.001, RowEpsilon: 0.01}
	}
	return Units{Normalized: false, MinHeight: 1, RowEpsilon: pixelEpsilon}
}
