// Package ocr is the word source boundary of the pipeline: it turns an image
// into recognized words with bounding boxes.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/menuscan/menu-layout-service/internal/models"
)

var (
	// ErrOCRNotEnabled is returned by the Tesseract source when the binary was
	// built without the "ocr" tag.
	ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

	// ErrNoImage is returned when no image bytes were supplied
	ErrNoImage = errors.New("no image data")

	// ErrUnsupportedImage is returned for bytes that are not a GIF, JPEG,
	// PNG or WebP image
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// WordSource recognizes the words of one image
type WordSource interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (*models.OCRResult, error)
}

// NewWordSource creates the source selected by cfg.Engine.
// "none" returns a nil source: only pre-recognized words can be analyzed.
func NewWordSource(cfg models.OCRConfig, logger *slog.Logger) (WordSource, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", "none":
		return nil, nil
	case "tesseract":
		return NewTesseractSource(cfg.Language), nil
	case "vision", "yandex":
		if cfg.Vision.APIKey == "" || cfg.Vision.FolderID == "" {
			return nil, fmt.Errorf("vision engine selected but api key or folder id missing")
		}
		return NewVisionSource(cfg.Vision, nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine: %s", cfg.Engine)
	}
}

// JoinText rebuilds the plain text of a result from its words
func JoinText(words []models.OCRWord) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
