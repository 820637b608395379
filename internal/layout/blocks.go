package layout

import (
	"strings"

	"github.com/menuscan/menu-layout-service/internal/models"
)

// mergeable reports whether neighbouring words of category c fuse into one
// span. Prices stay separate: a dish may list several prices side by side.
func mergeable(c models.Category) bool {
	switch c {
	case models.CategoryTitle, models.CategoryDescription, models.CategoryPriceModifier:
		return true
	}
	return false
}

// MergeBlocks fuses contiguous same-category words of every line into
// highlight blocks. Words must already be classified; lines keep their
// x-order from ClusterLines.
func MergeBlocks(lines []models.Line) []models.Block {
	var blocks []models.Block
	for _, line := range lines {
		var cur *models.Block
		for _, w := range line.Words {
			if cur != nil && cur.Category == w.Category && mergeable(w.Category) {
				cur.BBox = cur.BBox.Union(w.BBox)
				cur.WordIDs = append(cur.WordIDs, w.ID)
				cur.Text += " " + strings.TrimSpace(w.Text)
				continue
			}
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			cur = &models.Block{
				Category: w.Category,
				BBox:     w.BBox,
				WordIDs:  []int{w.ID},
				Text:     strings.TrimSpace(w.Text),
			}
		}
		if cur != nil {
			blocks = append(blocks, *cur)
		}
	}
	return blocks
}
