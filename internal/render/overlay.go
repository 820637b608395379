package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// frameWidth is the outline thickness in canvas pixels
const frameWidth = 2

// DrawOverlay paints the layer onto a transparent image of the layer's size
func DrawOverlay(l *Layer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, max(l.Width, 1), max(l.Height, 1)))

	for _, h := range l.Highlights {
		fill(img, h.Rect, image.NewUniform(CategoryColor(h.Category)))
	}

	frame := image.NewUniform(FrameColor)
	for _, f := range l.Frames {
		r := toImageRect(f.Rect)
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+frameWidth),
			image.Rect(r.Min.X, r.Max.Y-frameWidth, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y+frameWidth, r.Min.X+frameWidth, r.Max.Y-frameWidth),
			image.Rect(r.Max.X-frameWidth, r.Min.Y+frameWidth, r.Max.X, r.Max.Y-frameWidth),
		}
		for _, e := range edges {
			draw.Draw(img, e.Intersect(img.Bounds()), frame, image.Point{}, draw.Over)
		}
	}
	return img
}

func fill(img *image.NRGBA, r Rect, src image.Image) {
	draw.Draw(img, toImageRect(r).Intersect(img.Bounds()), src, image.Point{}, draw.Over)
}

func toImageRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)),
		int(math.Ceil(r.Y+r.H)),
	)
}

// EncodePNG renders the layer as a PNG
func EncodePNG(l *Layer) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, DrawOverlay(l)); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}
