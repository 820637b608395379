package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// decodeFactor bounds the accepted side length as a multiple of maxSide
const decodeFactor = 20

// Prepared is an image ready for recognition
type Prepared struct {
	Data   []byte
	Width  int
	Height int
	// Scaled is set when the image was downscaled and re-encoded as PNG
	Scaled bool
}

// Preprocessor bounds the size of uploaded photos before recognition
type Preprocessor struct {
	maxSide int
}

// NewPreprocessor creates a preprocessor limiting the longest side to maxSide pixels
func NewPreprocessor(maxSide int) *Preprocessor {
	if maxSide <= 0 {
		maxSide = 1400
	}
	return &Preprocessor{maxSide: maxSide}
}

// Prepare decodes the image and downscales it when its longest side exceeds
// the limit. Images already within the limit are passed through unchanged.
func (p *Preprocessor) Prepare(data []byte) (*Prepared, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}

	// headers are checked before decoding so a tiny file cannot claim a huge canvas
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}
	if limit := p.maxSide * decodeFactor; cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > limit || cfg.Height > limit {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrUnsupportedImage, cfg.Width, cfg.Height, limit)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if longest <= p.maxSide {
		return &Prepared{Data: data, Width: w, Height: h}, nil
	}

	scale := float64(p.maxSide) / float64(longest)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode scaled image: %w", err)
	}
	return &Prepared{Data: buf.Bytes(), Width: nw, Height: nh, Scaled: true}, nil
}
