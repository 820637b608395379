package layout

import (
	"github.com/google/uuid"

	"github.com/menuscan/menu-layout-service/internal/models"
)

// ItemBounds returns the union of every member box of the item
func ItemBounds(item *models.MenuItem) models.BBox {
	words := item.Words()
	if len(words) == 0 {
		return models.BBox{}
	}
	b := words[0].BBox
	for _, w := range words[1:] {
		b = b.Union(w.BBox)
	}
	return b
}

// ItemFrame returns the item outline on the canvas: its bounds converted to
// canvas pixels, then expanded by padding canvas pixels
func ItemFrame(item *models.MenuItem, vp Viewport, normalized bool, padding float64) models.BBox {
	return vp.ToCanvas(ItemBounds(item), normalized).Expand(padding)
}

// Viewport describes how the analyzed image is shown on a canvas
type Viewport struct {
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	PixelRatio    float64 `json:"pixelRatio"`
}

// Valid reports whether the viewport can be used for conversion
func (v Viewport) Valid() bool {
	return v.NaturalWidth > 0 && v.NaturalHeight > 0 && v.DisplayWidth > 0 && v.DisplayHeight > 0
}

func (v Viewport) ratio() float64 {
	if v.PixelRatio < 1 {
		return 1
	}
	return v.PixelRatio
}

// scale returns the word-space to canvas-space factors
func (v Viewport) scale(normalized bool) (float64, float64) {
	r := v.ratio()
	if normalized {
		return v.DisplayWidth * r, v.DisplayHeight * r
	}
	return v.DisplayWidth / v.NaturalWidth * r, v.DisplayHeight / v.NaturalHeight * r
}

// ToCanvas converts a word-space box to canvas pixels
func (v Viewport) ToCanvas(b models.BBox, normalized bool) models.BBox {
	sx, sy := v.scale(normalized)
	return models.BBox{X0: b.X0 * sx, Y0: b.Y0 * sy, X1: b.X1 * sx, Y1: b.Y1 * sy}
}

// FromCanvas converts a canvas point back to word space
func (v Viewport) FromCanvas(x, y float64, normalized bool) (float64, float64) {
	sx, sy := v.scale(normalized)
	return x / sx, y / sy
}

// Index resolves words back to the menu item that owns them.
// Lookups go through stable word and item ids, so two dishes with the
// same name or price never collide.
type Index struct {
	items   []models.MenuItem
	byID    map[uuid.UUID]int
	byTitle map[int]int // title word id -> item position
	titles  []models.Word
}

// NewIndex builds the lookup tables for the given items
func NewIndex(items []models.MenuItem) *Index {
	idx := &Index{
		items:   items,
		byID:    make(map[uuid.UUID]int, len(items)),
		byTitle: make(map[int]int),
	}
	for i, it := range items {
		idx.byID[it.ID] = i
		for _, w := range it.Title {
			idx.byTitle[w.ID] = i
			idx.titles = append(idx.titles, w)
		}
	}
	return idx
}

// Item returns the item with the given id
func (idx *Index) Item(id uuid.UUID) (*models.MenuItem, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return &idx.items[i], true
}

// ItemForWord returns the item whose title contains the word
func (idx *Index) ItemForWord(wordID int) (*models.MenuItem, bool) {
	i, ok := idx.byTitle[wordID]
	if !ok {
		return nil, false
	}
	return &idx.items[i], true
}

// HitTest finds the item whose title word box contains the word-space point.
// Only title words are tappable; descriptions and prices are not.
func (idx *Index) HitTest(x, y float64) (*models.MenuItem, bool) {
	for _, w := range idx.titles {
		if w.BBox.Contains(x, y) {
			return idx.ItemForWord(w.ID)
		}
	}
	return nil, false
}
