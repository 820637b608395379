package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/menuscan/menu-layout-service/internal/models"
)

// ClusterConfig holds configuration for line clustering
type ClusterConfig struct {
	// Tolerance is the maximum distance between a word's vertical midpoint and
	// a line's average midpoint, as a fraction of the line's average height
	// (default: 0.6)
	Tolerance float64

	// MinHeight replaces the height of degenerate boxes (default: 1)
	MinHeight float64
}

// DefaultClusterConfig returns the clustering defaults for pixel input
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{Tolerance: 0.6, MinHeight: 1}
}

// lineBucket accumulates words while clustering
type lineBucket struct {
	words     []models.Word
	sumMid    float64
	sumHeight float64
	minY      float64
	maxY      float64
}

func (b *lineBucket) avgMid() float64    { return b.sumMid / float64(len(b.words)) }
func (b *lineBucket) avgHeight() float64 { return b.sumHeight / float64(len(b.words)) }

// ClusterLines groups words into horizontal lines by vertical proximity.
// Lines come back sorted top to bottom with their words sorted left to
// right. The result depends only on the word set, not on input order.
func ClusterLines(words []models.Word, cfg ClusterConfig) []models.Line {
	if len(words) == 0 {
		return nil
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 0.6
	}
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = 1
	}

	sorted := make([]models.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		mi, mj := sorted[i].BBox.MidY(), sorted[j].BBox.MidY()
		if mi != mj {
			return mi < mj
		}
		if sorted[i].BBox.X0 != sorted[j].BBox.X0 {
			return sorted[i].BBox.X0 < sorted[j].BBox.X0
		}
		return sorted[i].ID < sorted[j].ID
	})

	var buckets []*lineBucket
	for _, w := range sorted {
		mid := w.BBox.MidY()
		h := math.Max(w.BBox.Height(), cfg.MinHeight)

		var target *lineBucket
		for _, b := range buckets {
			if math.Abs(mid-b.avgMid()) < cfg.Tolerance*b.avgHeight() {
				target = b
				break
			}
		}
		if target == nil {
			target = &lineBucket{minY: w.BBox.Y0, maxY: w.BBox.Y1}
			buckets = append(buckets, target)
		}
		target.words = append(target.words, w)
		target.sumMid += mid
		target.sumHeight += h
		target.minY = math.Min(target.minY, w.BBox.Y0)
		target.maxY = math.Max(target.maxY, w.BBox.Y1)
	}

	lines := make([]models.Line, 0, len(buckets))
	for _, b := range buckets {
		lines = append(lines, buildLine(b))
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].MinY < lines[j].MinY
	})
	for i := range lines {
		lines[i].Index = i
	}
	return lines
}

func buildLine(b *lineBucket) models.Line {
	ws := b.words
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].BBox.X0 != ws[j].BBox.X0 {
			return ws[i].BBox.X0 < ws[j].BBox.X0
		}
		return ws[i].ID < ws[j].ID
	})

	texts := make([]string, 0, len(ws))
	var fontSum float64
	for _, w := range ws {
		if t := strings.TrimSpace(w.Text); t != "" {
			texts = append(texts, t)
		}
		fontSum += w.FontSize
	}

	return models.Line{
		Words:       ws,
		MinY:        b.minY,
		MaxY:        b.maxY,
		AvgFontSize: fontSum / float64(len(ws)),
		Text:        strings.Join(texts, " "),
	}
}

// LineWords flattens lines back into a word list in line order
func LineWords(lines []models.Line) []models.Word {
	var n int
	for _, l := range lines {
		n += len(l.Words)
	}
	out := make([]models.Word, 0, n)
	for _, l := range lines {
		out = append(out, l.Words...)
	}
	return out
}
