package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/menuscan/menu-layout-service/internal/ai"
	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
	"github.com/menuscan/menu-layout-service/internal/ocr"
)

type countingProvider struct {
	response string
	err      error
	calls    int
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Complete(context.Context, string) (string, error) {
	p.calls++
	return p.response, p.err
}

type fakeSource struct {
	result *models.OCRResult
	err    error
	got    []byte
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Recognize(_ context.Context, image []byte) (*models.OCRResult, error) {
	f.got = image
	return f.result, f.err
}

func layoutConfig() models.LayoutConfig {
	return models.LayoutConfig{LineTolerance: 0.6, FramePadding: 8, ReadingOrderEpsilon: 10, DebounceMillis: 10}
}

func ocrWord(text string, x0, y0, x1, y1 float64) models.OCRWord {
	return models.OCRWord{Text: text, BBox: models.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}, FontSize: y1 - y0}
}

func menuPage() []models.OCRWord {
	return []models.OCRWord{
		ocrWord("PIZZA", 10, 10, 90, 34),
		ocrWord("MARGHERITA", 100, 10, 260, 34),
		ocrWord("450", 400, 12, 440, 32),
		ocrWord("fresh", 10, 44, 60, 58),
		ocrWord("basil", 65, 44, 110, 58),
		ocrWord("PIZZA", 10, 80, 90, 104),
		ocrWord("DIAVOLA", 100, 80, 220, 104),
		ocrWord("520", 400, 82, 440, 102),
		ocrWord("spicy", 10, 114, 60, 128),
		ocrWord("salami", 65, 114, 120, 128),
	}
}

func TestAnalyzer_HeuristicPipeline(t *testing.T) {
	provider := &countingProvider{err: errors.New("offline")}
	reporter := observability.NewLogReporter(nil)
	chain := ai.NewFallbackChain(nil, reporter, ai.PretaggedClassifier{}, ai.NewRemoteClassifier(provider, 0, nil))
	a := NewAnalyzer(chain, nil, nil, layoutConfig(), reporter, nil)

	analysis := a.Analyze(context.Background(), menuPage())

	if provider.calls != 1 {
		t.Errorf("expected exactly one classification call, got %d", provider.calls)
	}
	if !analysis.Degraded || analysis.Classifier != "heuristic" {
		t.Errorf("unexpected classifier %s degraded=%v", analysis.Classifier, analysis.Degraded)
	}
	if analysis.LineCount != 4 {
		t.Errorf("expected 4 lines, got %d", analysis.LineCount)
	}
	if len(analysis.Dishes) != 2 {
		t.Fatalf("expected 2 dishes, got %d", len(analysis.Dishes))
	}

	first := analysis.Dishes[0]
	if first.Title != "PIZZA MARGHERITA" || first.Description != "fresh basil" {
		t.Errorf("unexpected first dish %+v", first)
	}
	if len(first.PriceValues) != 1 || first.PriceValues[0].String() != "450" {
		t.Errorf("unexpected price values %v", first.PriceValues)
	}
	if analysis.Dishes[1].Title != "PIZZA DIAVOLA" {
		t.Errorf("unexpected second dish %q", analysis.Dishes[1].Title)
	}
	if analysis.Items[0].ID == analysis.Items[1].ID {
		t.Error("dishes with the same leading word must keep distinct ids")
	}

	for i, w := range analysis.Words {
		if w.ID != i {
			t.Fatalf("word %d has id %d", i, w.ID)
		}
		if !w.Category.Valid() {
			t.Errorf("word %q has invalid category %q", w.Text, w.Category)
		}
	}
	if len(analysis.Blocks) == 0 {
		t.Error("expected highlight blocks")
	}
}

func TestAnalyzer_RemoteLabels(t *testing.T) {
	provider := &countingProvider{response: `[
		{"line":0,"category":"title"},
		{"line":1,"category":"description"},
		{"line":2,"category":"title"},
		{"line":3,"category":"description"}]`}
	chain := ai.NewFallbackChain(nil, nil, ai.NewRemoteClassifier(provider, 0, nil))
	a := NewAnalyzer(chain, nil, nil, layoutConfig(), nil, nil)

	analysis := a.Analyze(context.Background(), menuPage())

	if analysis.Degraded || analysis.Classifier != "remote:counting" {
		t.Errorf("unexpected classifier %s degraded=%v", analysis.Classifier, analysis.Degraded)
	}
	if len(analysis.Dishes) != 2 {
		t.Fatalf("expected 2 dishes, got %d", len(analysis.Dishes))
	}
	// the numeric override turns "450" into a price even on a title line
	if got := analysis.Dishes[0].Prices; len(got) != 1 || got[0] != "450" {
		t.Errorf("unexpected prices %v", got)
	}
}

func TestAnalyzer_NoText(t *testing.T) {
	a := NewAnalyzer(nil, nil, nil, layoutConfig(), nil, nil)

	analysis := a.Analyze(context.Background(), []models.OCRWord{ocrWord("  ", 0, 0, 1, 1)})
	if !analysis.NoText {
		t.Error("expected NoText")
	}
	if len(analysis.Dishes) != 0 || analysis.Dishes == nil {
		t.Errorf("expected an empty, non-nil dish list, got %v", analysis.Dishes)
	}
}

func TestAnalyzer_NormalizedCoordinates(t *testing.T) {
	words := []models.OCRWord{
		ocrWord("SOUP", 0.05, 0.10, 0.30, 0.14),
		ocrWord("300", 0.70, 0.10, 0.80, 0.14),
		ocrWord("tomato", 0.05, 0.16, 0.25, 0.19),
	}
	a := NewAnalyzer(nil, nil, nil, layoutConfig(), nil, nil)

	analysis := a.Analyze(context.Background(), words)
	if !analysis.Normalized {
		t.Fatal("expected normalized coordinates")
	}
	if len(analysis.Dishes) != 1 || analysis.Dishes[0].Title != "SOUP" {
		t.Errorf("unexpected dishes %+v", analysis.Dishes)
	}
}

func TestAnalyzer_AnalyzeImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 300, 150))); err != nil {
		t.Fatal(err)
	}
	source := &fakeSource{result: &models.OCRResult{Words: menuPage()}}
	a := NewAnalyzer(nil, source, ocr.NewPreprocessor(200), layoutConfig(), nil, nil)

	analysis, err := a.AnalyzeImage(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.ImageWidth != 200 || analysis.ImageHeight != 100 {
		t.Errorf("unexpected image size %dx%d", analysis.ImageWidth, analysis.ImageHeight)
	}
	if len(source.got) == 0 {
		t.Error("source did not receive the image")
	}
	if len(analysis.Dishes) != 2 {
		t.Errorf("expected 2 dishes, got %d", len(analysis.Dishes))
	}
}

func TestAnalyzer_AnalyzeImageErrors(t *testing.T) {
	a := NewAnalyzer(nil, nil, nil, layoutConfig(), nil, nil)
	if _, err := a.AnalyzeImage(context.Background(), []byte{1}); err == nil {
		t.Error("expected error without a word source")
	}

	reporter := observability.NewLogReporter(nil)
	source := &fakeSource{err: ocr.ErrOCRNotEnabled}
	a = NewAnalyzer(nil, source, nil, layoutConfig(), reporter, nil)

	var buf bytes.Buffer
	png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 10)))
	if _, err := a.AnalyzeImage(context.Background(), buf.Bytes()); !errors.Is(err, ocr.ErrOCRNotEnabled) {
		t.Errorf("expected ErrOCRNotEnabled, got %v", err)
	}
	if reporter.Counts()["ocr:fake"] != 1 {
		t.Errorf("expected OCR failure to be reported, got %v", reporter.Counts())
	}
}
