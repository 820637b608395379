//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/menuscan/menu-layout-service/internal/models"
)

// Enabled reports whether Tesseract support is compiled in
const Enabled = true

// EngineVersion returns the version of the linked Tesseract library
func EngineVersion() string { return gosseract.Version() }

// TesseractSource recognizes words with a local Tesseract installation
type TesseractSource struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractSource creates a Tesseract word source. language uses the
// Tesseract "eng+rus" notation.
func NewTesseractSource(language string) *TesseractSource {
	if language == "" {
		language = "eng"
	}
	return &TesseractSource{
		languages:     strings.Split(language, "+"),
		clientFactory: gosseract.NewClient,
	}
}

func (t *TesseractSource) Name() string { return "tesseract" }

// Recognize returns pixel word boxes. The font size of a word is its box height.
func (t *TesseractSource) Recognize(ctx context.Context, image []byte) (*models.OCRResult, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}

	words := make([]models.OCRWord, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, models.OCRWord{
			Text: text,
			BBox: models.BBox{
				X0: float64(b.Box.Min.X),
				Y0: float64(b.Box.Min.Y),
				X1: float64(b.Box.Max.X),
				Y1: float64(b.Box.Max.Y),
			},
			FontSize: float64(b.Box.Dy()),
		})
	}

	return &models.OCRResult{Text: JoinText(words), Words: words}, nil
}
