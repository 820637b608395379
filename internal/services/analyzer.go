package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/menuscan/menu-layout-service/internal/ai"
	"github.com/menuscan/menu-layout-service/internal/layout"
	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
	"github.com/menuscan/menu-layout-service/internal/ocr"
)

// Analyzer runs the menu layout pipeline for one image at a time:
// words -> lines -> categories -> blocks -> menu items.
// Each call owns its own data; an Analyzer can be shared between sessions.
type Analyzer struct {
	chain        *ai.FallbackChain
	source       ocr.WordSource
	preprocessor *ocr.Preprocessor
	cfg          models.LayoutConfig
	reporter     observability.Reporter
	logger       *slog.Logger
}

// NewAnalyzer creates an analyzer. source may be nil when only
// pre-recognized words are accepted.
func NewAnalyzer(chain *ai.FallbackChain, source ocr.WordSource, preprocessor *ocr.Preprocessor, cfg models.LayoutConfig, reporter observability.Reporter, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	if preprocessor == nil {
		preprocessor = ocr.NewPreprocessor(0)
	}
	if chain == nil {
		chain = ai.NewFallbackChain(logger, reporter)
	}
	return &Analyzer{
		chain:        chain,
		source:       source,
		preprocessor: preprocessor,
		cfg:          cfg,
		reporter:     reporter,
		logger:       logger,
	}
}

// HasWordSource reports whether images can be analyzed
func (a *Analyzer) HasWordSource() bool { return a.source != nil }

// WordSourceName returns the configured engine name or "none"
func (a *Analyzer) WordSourceName() string {
	if a.source == nil {
		return "none"
	}
	return a.source.Name()
}

// Classifiers returns the classifier chain in the order it is tried
func (a *Analyzer) Classifiers() []string { return a.chain.Names() }

// AnalyzeImage downscales the image, recognizes its words and analyzes them
func (a *Analyzer) AnalyzeImage(ctx context.Context, image []byte) (*models.Analysis, error) {
	if a.source == nil {
		return nil, fmt.Errorf("no word source configured")
	}

	startTime := time.Now()
	prepared, err := a.preprocessor.Prepare(image)
	if err != nil {
		return nil, fmt.Errorf("preprocess image: %w", err)
	}

	result, err := a.source.Recognize(ctx, prepared.Data)
	if err != nil {
		a.reporter.Report(ctx, "ocr:"+a.source.Name(), err)
		return nil, fmt.Errorf("%s recognition failed: %w", a.source.Name(), err)
	}
	ocrDuration := time.Since(startTime).Seconds()

	analysis := a.Analyze(ctx, result.Words)
	analysis.ImageWidth = prepared.Width
	analysis.ImageHeight = prepared.Height
	analysis.OCRDuration = ocrDuration
	analysis.TotalDuration = time.Since(startTime).Seconds()

	a.logger.InfoContext(ctx, "image analyzed",
		"analysis_id", analysis.ID,
		"source", a.source.Name(),
		"scaled", prepared.Scaled,
		"words", len(analysis.Words),
		"dishes", len(analysis.Dishes),
		"ocr_seconds", ocrDuration)
	return analysis, nil
}

// Analyze runs the pipeline over recognized words. It never fails: a failing
// classifier degrades to the heuristic, and zero words yield an empty
// analysis with NoText set.
func (a *Analyzer) Analyze(ctx context.Context, recognized []models.OCRWord) *models.Analysis {
	startTime := time.Now()
	analysis := &models.Analysis{
		ID:          uuid.New(),
		ProcessedAt: startTime,
	}

	words := toWords(recognized)
	if len(words) == 0 {
		analysis.NoText = true
		analysis.Words = []models.Word{}
		analysis.Items = []models.MenuItem{}
		analysis.Dishes = []models.Dish{}
		analysis.Blocks = []models.Block{}
		analysis.Classifier = "none"
		a.logger.InfoContext(ctx, "no text found", "analysis_id", analysis.ID)
		return analysis
	}

	units := layout.DetectUnits(words, a.cfg.ReadingOrderEpsilon)
	lines := layout.ClusterLines(words, layout.ClusterConfig{
		Tolerance: a.cfg.LineTolerance,
		MinHeight: units.MinHeight,
	})

	classifyStart := time.Now()
	outcome := a.chain.Run(ctx, lines)
	analysis.ClassifyDuration = time.Since(classifyStart).Seconds()

	classified := layout.LineWords(outcome.Lines)
	sort.Slice(classified, func(i, j int) bool { return classified[i].ID < classified[j].ID })

	items := layout.NewSegmenter(units).Segment(classified)
	dishes := BuildDishes(items)
	warnings := ReviewDishes(dishes)

	analysis.Words = classified
	analysis.LineCount = len(outcome.Lines)
	analysis.Items = items
	analysis.Dishes = dishes
	analysis.Blocks = layout.MergeBlocks(outcome.Lines)
	analysis.Normalized = units.Normalized
	analysis.Classifier = outcome.Classifier
	analysis.Degraded = outcome.Degraded
	analysis.Warnings = warnings
	analysis.NeedsReview = len(warnings) > 0 || outcome.Degraded
	analysis.TotalDuration = time.Since(startTime).Seconds()

	a.logger.InfoContext(ctx, "menu analyzed",
		"analysis_id", analysis.ID,
		"words", len(words),
		"lines", analysis.LineCount,
		"dishes", len(dishes),
		"classifier", outcome.Classifier,
		"degraded", outcome.Degraded)
	return analysis
}

// toWords assigns stable ids in source order and normalizes text to NFC.
// Words without text are dropped before ids are assigned.
func toWords(recognized []models.OCRWord) []models.Word {
	words := make([]models.Word, 0, len(recognized))
	for _, r := range recognized {
		text := norm.NFC.String(strings.TrimSpace(r.Text))
		if text == "" {
			continue
		}
		box := r.BBox
		if box.X1 < box.X0 {
			box.X0, box.X1 = box.X1, box.X0
		}
		if box.Y1 < box.Y0 {
			box.Y0, box.Y1 = box.Y1, box.Y0
		}
		fontSize := r.FontSize
		if fontSize <= 0 {
			fontSize = box.Height()
		}
		words = append(words, models.Word{
			ID:       len(words),
			Text:     text,
			BBox:     box,
			FontSize: fontSize,
			Category: r.Category,
		})
	}
	return words
}
