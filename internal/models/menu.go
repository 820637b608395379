package models

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// Category is the semantic role of a recognized word or line on a menu
type Category string

const (
	CategoryTitle         Category = "title"
	CategoryPrice         Category = "price"
	CategoryPriceModifier Category = "price_modifier" // DOUBLE, TRIPLE, 0.3L, ...
	CategoryDescription   Category = "description"
)

// Categories lists the closed set of categories in prompt order
var Categories = []Category{CategoryTitle, CategoryPrice, CategoryPriceModifier, CategoryDescription}

// ParseCategory sanitizes a label coming from a classifier.
// Only the first comma-separated token is used; anything outside the
// closed set becomes description.
func ParseCategory(s string) Category {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), `"'`))
	switch Category(s) {
	case CategoryTitle, CategoryPrice, CategoryPriceModifier, CategoryDescription:
		return Category(s)
	default:
		return CategoryDescription
	}
}

// Valid reports whether c is one of the four known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryTitle, CategoryPrice, CategoryPriceModifier, CategoryDescription:
		return true
	}
	return false
}

// BBox is an axis-aligned rectangle, either normalized to [0,1] or in pixels
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (b BBox) Width() float64  { return b.X1 - b.X0 }
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }
func (b BBox) MidY() float64   { return (b.Y0 + b.Y1) / 2 }

// Union returns the smallest box containing both b and o
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// Expand grows the box by pad on every side. The origin never goes below zero.
func (b BBox) Expand(pad float64) BBox {
	return BBox{
		X0: math.Max(0, b.X0-pad),
		Y0: math.Max(0, b.Y0-pad),
		X1: b.X1 + pad,
		Y1: b.Y1 + pad,
	}
}

// Contains reports whether the point lies inside the box (edges included)
func (b BBox) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Word is a single recognized token
type Word struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	BBox     BBox     `json:"bbox"`
	FontSize float64  `json:"fontSize"`
	Category Category `json:"category,omitempty"` // empty until classified unless pre-tagged
}

// Line is a transient cluster of words sharing a vertical band
type Line struct {
	Index       int
	Words       []Word // sorted by X0
	MinY        float64
	MaxY        float64
	AvgFontSize float64
	Text        string
}

// MenuItem is one dish record produced by the segmenter
type MenuItem struct {
	ID            uuid.UUID `json:"id"`
	PriceModifier []Word    `json:"priceModifier"`
	Title         []Word    `json:"title"`
	Price         []Word    `json:"price"`
	Description   []Word    `json:"description"`
}

// Words returns every member word across the four buckets
func (m *MenuItem) Words() []Word {
	all := make([]Word, 0, len(m.PriceModifier)+len(m.Title)+len(m.Price)+len(m.Description))
	all = append(all, m.PriceModifier...)
	all = append(all, m.Title...)
	all = append(all, m.Price...)
	all = append(all, m.Description...)
	return all
}

// TitleText joins the title words with single spaces
func (m *MenuItem) TitleText() string { return joinText(m.Title) }

// PriceModifierText joins the price modifier words with single spaces
func (m *MenuItem) PriceModifierText() string { return joinText(m.PriceModifier) }

// DescriptionText joins the description words with single spaces
func (m *MenuItem) DescriptionText() string { return joinText(m.Description) }

func joinText(words []Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// Block is a highlightable span: a run of same-category words inside a line
type Block struct {
	Category Category `json:"category"`
	BBox     BBox     `json:"bbox"`
	WordIDs  []int    `json:"wordIds"`
	Text     string   `json:"text"`
}

// OCRWord is a word as delivered by a Word Source
type OCRWord struct {
	BBox     BBox     `json:"bbox"`
	Text     string   `json:"text"`
	FontSize float64  `json:"fontSize"`
	Category Category `json:"category,omitempty"`
}

// OCRResult is the Word Source response contract
type OCRResult struct {
	Text  string    `json:"text"`
	Words []OCRWord `json:"words"`
}
