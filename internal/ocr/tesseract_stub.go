//go:build !ocr

package ocr

import (
	"context"

	"github.com/menuscan/menu-layout-service/internal/models"
)

// Enabled reports whether Tesseract support is compiled in
const Enabled = false

// EngineVersion is empty when Tesseract is not linked
func EngineVersion() string { return "" }

// TesseractSource is the stub used when the "ocr" build tag is not set.
// Recognize always returns ErrOCRNotEnabled.
type TesseractSource struct{}

// NewTesseractSource creates the stub source
func NewTesseractSource(string) *TesseractSource { return &TesseractSource{} }

func (t *TesseractSource) Name() string { return "tesseract" }

func (t *TesseractSource) Recognize(context.Context, []byte) (*models.OCRResult, error) {
	return nil, ErrOCRNotEnabled
}
