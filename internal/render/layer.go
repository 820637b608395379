// Package render turns an analysis into the highlight layer drawn over the
// menu photo: category-colored word blocks and one outline per dish.
package render

import (
	"fmt"
	"image/color"

	"github.com/google/uuid"

	"github.com/menuscan/menu-layout-service/internal/layout"
	"github.com/menuscan/menu-layout-service/internal/models"
)

// Category fill colors
var (
	TitleColor         = color.NRGBA{R: 255, G: 100, B: 100, A: 102}
	DescriptionColor   = color.NRGBA{R: 255, G: 200, B: 50, A: 102}
	PriceColor         = color.NRGBA{R: 100, G: 255, B: 100, A: 102}
	PriceModifierColor = color.NRGBA{R: 100, G: 200, B: 255, A: 102}
	FrameColor         = color.NRGBA{R: 128, G: 128, B: 128, A: 204}
)

// CategoryColor returns the fill color of a category
func CategoryColor(c models.Category) color.NRGBA {
	switch c {
	case models.CategoryTitle:
		return TitleColor
	case models.CategoryPrice:
		return PriceColor
	case models.CategoryPriceModifier:
		return PriceModifierColor
	default:
		return DescriptionColor
	}
}

// CSS formats a color as a CSS rgba() value
func CSS(c color.NRGBA) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.1f)", c.R, c.G, c.B, float64(c.A)/255)
}

// Rect is an axis-aligned canvas rectangle
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func rectOf(b models.BBox) Rect {
	return Rect{X: b.X0, Y: b.Y0, W: b.Width(), H: b.Height()}
}

// Highlight is one filled block on the canvas
type Highlight struct {
	Rect
	Category models.Category `json:"category"`
	Color    string          `json:"color"`
	WordIDs  []int           `json:"wordIds"`
	Text     string          `json:"text"`
}

// Frame is the outline of one dish
type Frame struct {
	Rect
	ItemID uuid.UUID `json:"itemId"`
	Color  string    `json:"color"`
}

// Layer is everything drawn over the photo, in canvas pixels
type Layer struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Highlights []Highlight `json:"highlights"`
	Frames     []Frame     `json:"frames"`
}

// BuildLayer converts the blocks and item frames of an analysis to canvas
// space. padding is in canvas pixels.
func BuildLayer(a *models.Analysis, vp layout.Viewport, padding float64) *Layer {
	ratio := vp.PixelRatio
	if ratio < 1 {
		ratio = 1
	}
	l := &Layer{
		Width:      int(vp.DisplayWidth*ratio + 0.5),
		Height:     int(vp.DisplayHeight*ratio + 0.5),
		Highlights: []Highlight{},
		Frames:     []Frame{},
	}
	if a == nil || !vp.Valid() {
		return l
	}

	for _, b := range a.Blocks {
		l.Highlights = append(l.Highlights, Highlight{
			Rect:     rectOf(vp.ToCanvas(b.BBox, a.Normalized)),
			Category: b.Category,
			Color:    CSS(CategoryColor(b.Category)),
			WordIDs:  b.WordIDs,
			Text:     b.Text,
		})
	}

	for i := range a.Items {
		it := &a.Items[i]
		box := layout.ItemFrame(it, vp, a.Normalized, padding)
		l.Frames = append(l.Frames, Frame{
			Rect:   rectOf(box),
			ItemID: it.ID,
			Color:  CSS(FrameColor),
		})
	}
	return l
}
