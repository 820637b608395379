package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dish is the presentation summary of a MenuItem
type Dish struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	PriceModifier string            `json:"priceModifier,omitempty"`
	Prices        []string          `json:"prices"`
	PriceValues   []decimal.Decimal `json:"priceValues,omitempty"` // parseable prices only
	Description   string            `json:"description"`
	Bounds        BBox              `json:"bounds"` // union of member boxes, word space
}

// Warning flags a dish that was recognized but looks incomplete
type Warning struct {
	DishID  uuid.UUID `json:"dishId"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Analysis is the complete output of one pipeline run over one image
type Analysis struct {
	ID         uuid.UUID  `json:"id"`
	Words      []Word     `json:"words"`
	LineCount  int        `json:"lineCount"`
	Items      []MenuItem `json:"items"`
	Dishes     []Dish     `json:"dishes"`
	Blocks     []Block    `json:"blocks"`
	Normalized bool       `json:"normalized"` // word boxes are in [0,1]

	// ImageWidth and ImageHeight are the natural size of the analyzed image,
	// zero when words were submitted without an image
	ImageWidth  int `json:"imageWidth,omitempty"`
	ImageHeight int `json:"imageHeight,omitempty"`

	// Classifier is the name of the classifier whose labels were used
	Classifier string `json:"classifier"`
	// Degraded is set when the remote classifier failed and a fallback ran
	Degraded bool `json:"degraded"`
	// NoText is set when the word source recognized nothing
	NoText bool `json:"noText"`

	NeedsReview bool      `json:"needsReview"`
	Warnings    []Warning `json:"warnings"`

	OCRDuration      float64   `json:"ocrDuration,omitempty"` // seconds
	ClassifyDuration float64   `json:"classifyDuration"`      // seconds
	TotalDuration    float64   `json:"totalDuration"`         // seconds
	ProcessedAt      time.Time `json:"processedAt"`
}
