package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
)

// Classifier assigns a category to every word of the given lines.
// Implementations return new lines and leave the input untouched.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, lines []models.Line) ([]models.Line, error)
}

// PretaggedClassifier keeps the categories delivered by the word source
type PretaggedClassifier struct{}

func (PretaggedClassifier) Name() string { return "pretagged" }

// Classify succeeds only when every word already carries a label
func (PretaggedClassifier) Classify(_ context.Context, lines []models.Line) ([]models.Line, error) {
	out := cloneLines(lines)
	for i := range out {
		for j := range out[i].Words {
			w := &out[i].Words[j]
			if strings.TrimSpace(string(w.Category)) == "" {
				return nil, ErrNotPretagged
			}
			w.Category = models.ParseCategory(string(w.Category))
		}
	}
	return out, nil
}

// HeuristicClassifier labels words from their shape alone. It never fails.
type HeuristicClassifier struct{}

// NewHeuristicClassifier creates the deterministic fallback classifier
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

func (h *HeuristicClassifier) Name() string { return "heuristic" }

// Classify labels each word independently of its line
func (h *HeuristicClassifier) Classify(_ context.Context, lines []models.Line) ([]models.Line, error) {
	out := cloneLines(lines)
	for i := range out {
		for j := range out[i].Words {
			w := &out[i].Words[j]
			w.Category = h.categorize(w.Text)
		}
	}
	return out, nil
}

func (h *HeuristicClassifier) categorize(text string) models.Category {
	t := strings.TrimSpace(text)
	if IsNumeric(t) {
		return models.CategoryPrice
	}

	letters := 0
	for _, r := range t {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	// a Caser is stateful, so each call gets its own
	if letters > 2 && t == cases.Upper(language.Und).String(t) {
		return models.CategoryTitle
	}
	return models.CategoryDescription
}

// Outcome is the result of running the fallback chain
type Outcome struct {
	Lines []models.Line
	// Classifier is the name of the classifier whose labels were kept
	Classifier string
	// Degraded is set when an earlier classifier failed
	Degraded bool
}

// FallbackChain tries classifiers in order until one succeeds.
// The heuristic classifier always closes the chain, so Run never fails.
type FallbackChain struct {
	classifiers []Classifier
	heuristic   *HeuristicClassifier
	reporter    observability.Reporter
	logger      *slog.Logger
}

// NewFallbackChain creates a chain over the given classifiers. nil entries are skipped.
func NewFallbackChain(logger *slog.Logger, reporter observability.Reporter, classifiers ...Classifier) *FallbackChain {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if reporter == nil {
		reporter = observability.NopReporter{}
	}

	chain := &FallbackChain{
		heuristic: NewHeuristicClassifier(),
		reporter:  reporter,
		logger:    logger,
	}
	for _, c := range classifiers {
		if c != nil {
			chain.classifiers = append(chain.classifiers, c)
		}
	}
	return chain
}

// Names lists the classifiers in the order they are tried
func (c *FallbackChain) Names() []string {
	names := make([]string, 0, len(c.classifiers)+1)
	for _, cl := range c.classifiers {
		names = append(names, cl.Name())
	}
	return append(names, c.heuristic.Name())
}

// Run classifies the lines and applies the correction filters.
// Failures are logged and reported, never returned.
func (c *FallbackChain) Run(ctx context.Context, lines []models.Line) Outcome {
	degraded := false
	for _, cl := range c.classifiers {
		out, err := cl.Classify(ctx, lines)
		if err == nil {
			return Outcome{Lines: ApplyCorrections(out), Classifier: cl.Name(), Degraded: degraded}
		}

		if errors.Is(err, ErrNotPretagged) {
			c.logger.DebugContext(ctx, "skipping classifier", "classifier", cl.Name(), "reason", err)
			continue
		}
		degraded = true
		c.logger.WarnContext(ctx, "classifier failed, falling back", "classifier", cl.Name(), "error", err)
		c.reporter.Report(ctx, "classifier:"+cl.Name(), err)
	}

	out, _ := c.heuristic.Classify(ctx, lines)
	return Outcome{Lines: ApplyCorrections(out), Classifier: c.heuristic.Name(), Degraded: degraded}
}
