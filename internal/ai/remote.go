package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
)

// RemoteClassifier labels whole lines with a language model.
// The page is sent in a single request; every word inherits its line's label.
type RemoteClassifier struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRemoteClassifier creates a classifier backed by provider
func NewRemoteClassifier(provider Provider, timeout time.Duration, logger *slog.Logger) *RemoteClassifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RemoteClassifier{provider: provider, timeout: timeout, logger: logger}
}

func (r *RemoteClassifier) Name() string {
	if r.provider == nil {
		return "remote"
	}
	return "remote:" + r.provider.Name()
}

// Classify issues exactly one provider call for all lines
func (r *RemoteClassifier) Classify(ctx context.Context, lines []models.Line) ([]models.Line, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrProviderUnavailable)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	startTime := time.Now()
	response, err := r.provider.Complete(ctx, BuildPrompt(lines))
	if err != nil {
		if !errors.Is(err, ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return nil, err
	}
	r.logger.DebugContext(ctx, "classification response",
		"provider", r.provider.Name(),
		"duration", time.Since(startTime),
		"length", len(response))

	labels, err := ParseLabels(response)
	if err != nil {
		return nil, err
	}

	out := cloneLines(lines)
	for i := range out {
		cat, ok := labels[out[i].Index]
		if !ok {
			cat = models.CategoryDescription
		}
		for j := range out[i].Words {
			out[i].Words[j].Category = cat
		}
	}
	return out, nil
}

// BuildPrompt serializes the page as one line per row: index, y, average font size, text
func BuildPrompt(lines []models.Line) string {
	var sb strings.Builder
	sb.WriteString(`You are analyzing the text of a photographed restaurant menu.
Each line below is: index | y position | average font size | text.
Lines are ordered top to bottom.

Assign every line exactly one category:
- "title": dish name or menu position heading (often upper case, larger font)
- "price": price or cost (digits, possibly with currency)
- "price_modifier": portion or size variant that selects a price (DOUBLE, TRIPLE, 0.3L, 250g)
- "description": ingredients, composition, any other text

Return ONLY a JSON array, no markdown, no comments:
[{"line": 0, "category": "title"}, {"line": 1, "category": "price"}]

Lines:
`)
	for _, l := range lines {
		fmt.Fprintf(&sb, "%d | %s | %s | %s\n", l.Index, formatNumber(l.MinY), formatNumber(l.AvgFontSize), l.Text)
	}
	return sb.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// rawLabel accepts the line index as a number or a string
type rawLabel struct {
	Line     interface{} `json:"line"`
	Category string      `json:"category"`
}

// ParseLabels reads the line -> category map out of a model response.
// Markdown fences are removed; when the text around the array is not JSON
// the outermost brackets are tried. Unknown categories become description.
func ParseLabels(response string) (map[int]models.Category, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	raw, err := decodeLabels(cleaned)
	if err != nil {
		if inner := extractArray(cleaned); inner != "" {
			raw, err = decodeLabels(inner)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	labels := make(map[int]models.Category, len(raw))
	for _, l := range raw {
		idx, ok := lineIndex(l.Line)
		if !ok {
			continue
		}
		labels[idx] = models.ParseCategory(l.Category)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no line labels in response", ErrParse)
	}
	return labels, nil
}

func decodeLabels(text string) ([]rawLabel, error) {
	var raw []rawLabel
	if err := json.Unmarshal([]byte(text), &raw); err == nil {
		return raw, nil
	}

	// some models wrap the array in an object
	var wrapped struct {
		Lines  []rawLabel `json:"lines"`
		Labels []rawLabel `json:"labels"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.Lines) > 0 {
		return wrapped.Lines, nil
	}
	if len(wrapped.Labels) > 0 {
		return wrapped.Labels, nil
	}
	return nil, fmt.Errorf("no label array found")
}

func extractArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func lineIndex(v interface{}) (int, bool) {
	switch val := v.(type) {
	case float64:
		if val < 0 || val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
