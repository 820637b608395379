package layout

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/menuscan/menu-layout-service/internal/models"
)

// Segmenter partitions the classified word stream into menu items
type Segmenter struct {
	// RowEpsilon is the Y0 window inside which words are read left to right
	RowEpsilon float64
	// NewID assigns item identifiers (default: uuid.New)
	NewID func() uuid.UUID
}

// NewSegmenter creates a segmenter for the given units
func NewSegmenter(units Units) *Segmenter {
	return &Segmenter{RowEpsilon: units.RowEpsilon, NewID: uuid.New}
}

// ReadingOrder sorts words top to bottom, then left to right within rows.
// A row starts at the highest unplaced word and takes every following word
// whose Y0 is within eps of it.
func ReadingOrder(words []models.Word, eps float64) []models.Word {
	sorted := make([]models.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BBox.Y0 != sorted[j].BBox.Y0 {
			return sorted[i].BBox.Y0 < sorted[j].BBox.Y0
		}
		return sorted[i].ID < sorted[j].ID
	})

	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && math.Abs(sorted[end].BBox.Y0-sorted[start].BBox.Y0) < eps {
			end++
		}
		row := sorted[start:end]
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].BBox.X0 < row[j].BBox.X0
		})
		start = end
	}
	return sorted
}

// Segment runs the item state machine over the words in reading order.
// Items are returned in the order their first anchor word was read; items
// without a title are discarded.
func (s *Segmenter) Segment(words []models.Word) []models.MenuItem {
	newID := s.NewID
	if newID == nil {
		newID = uuid.New
	}

	var items []models.MenuItem
	var cur *models.MenuItem

	emit := func() {
		if cur != nil {
			items = append(items, *cur)
			cur = nil
		}
	}
	open := func() {
		cur = &models.MenuItem{ID: newID()}
	}

	for _, w := range ReadingOrder(words, s.RowEpsilon) {
		switch w.Category {
		case models.CategoryPriceModifier:
			// consecutive modifiers ("DOUBLE TRIPLE") anchor the same item
			if cur == nil || !modifiersOnly(cur) {
				emit()
				open()
			}
			cur.PriceModifier = append(cur.PriceModifier, w)

		case models.CategoryTitle:
			if cur != nil && len(cur.Description) > 0 {
				emit()
			}
			if cur == nil {
				open()
			}
			cur.Title = append(cur.Title, w)

		case models.CategoryPrice:
			if cur != nil {
				cur.Price = append(cur.Price, w)
			}

		default:
			if cur != nil {
				cur.Description = append(cur.Description, w)
			}
		}
	}
	emit()

	kept := make([]models.MenuItem, 0, len(items))
	for _, it := range items {
		if len(it.Title) > 0 {
			kept = append(kept, it)
		}
	}
	return kept
}

func modifiersOnly(it *models.MenuItem) bool {
	return len(it.PriceModifier) > 0 && len(it.Title) == 0 && len(it.Price) == 0 && len(it.Description) == 0
}
