package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
)

// DefaultVisionEndpoint is the Yandex Vision batch analysis URL
const DefaultVisionEndpoint = "https://vision.api.cloud.yandex.net/vision/v1/batchAnalyze"

// VisionSource recognizes words with Yandex Vision TEXT_DETECTION
type VisionSource struct {
	apiKey   string
	folderID string
	endpoint string
	langs    []string
	client   *http.Client
	logger   *slog.Logger
}

// NewVisionSource creates a Yandex Vision word source. A nil client gets a
// 60 second timeout.
func NewVisionSource(cfg models.VisionConfig, client *http.Client, logger *slog.Logger) *VisionSource {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultVisionEndpoint
	}
	langs := cfg.Langs
	if len(langs) == 0 {
		langs = []string{"ru", "en"}
	}
	return &VisionSource{
		apiKey:   cfg.APIKey,
		folderID: cfg.FolderID,
		endpoint: endpoint,
		langs:    langs,
		client:   client,
		logger:   logger,
	}
}

func (v *VisionSource) Name() string { return "vision" }

type visionRequest struct {
	FolderID     string        `json:"folderId"`
	AnalyzeSpecs []analyzeSpec `json:"analyze_specs"`
}

type analyzeSpec struct {
	Content  string          `json:"content"`
	Features []visionFeature `json:"features"`
}

type visionFeature struct {
	Type                string              `json:"type"`
	TextDetectionConfig textDetectionConfig `json:"text_detection_config"`
}

type textDetectionConfig struct {
	LanguageCodes []string `json:"language_codes"`
}

// coord accepts both numbers and the quoted int64 values the API returns
type coord float64

func (c *coord) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %s: %w", b, err)
	}
	*c = coord(f)
	return nil
}

type visionWord struct {
	Text        string `json:"text"`
	BoundingBox struct {
		Vertices []struct {
			X coord `json:"x"`
			Y coord `json:"y"`
		} `json:"vertices"`
	} `json:"boundingBox"`
}

type visionResponse struct {
	Results []struct {
		Results []struct {
			TextDetection *struct {
				Pages []struct {
					Blocks []struct {
						Lines []struct {
							Words []visionWord `json:"words"`
						} `json:"lines"`
					} `json:"blocks"`
				} `json:"pages"`
			} `json:"textDetection"`
			Error *struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		} `json:"results"`
	} `json:"results"`
}

// Recognize sends the image to Yandex Vision and returns pixel word boxes.
// The box of a word spans vertices 0 and 2; its font size is the box height.
func (v *VisionSource) Recognize(ctx context.Context, image []byte) (*models.OCRResult, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}

	body, err := json.Marshal(visionRequest{
		FolderID: v.folderID,
		AnalyzeSpecs: []analyzeSpec{{
			Content: base64.StdEncoding.EncodeToString(image),
			Features: []visionFeature{{
				Type:                "TEXT_DETECTION",
				TextDetectionConfig: textDetectionConfig{LanguageCodes: v.langs},
			}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+v.apiKey)

	startTime := time.Now()
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision API error: status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed visionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}

	var words []models.OCRWord
	for _, r := range parsed.Results {
		for _, rr := range r.Results {
			if rr.Error != nil {
				return nil, fmt.Errorf("vision API error %d: %s", rr.Error.Code, rr.Error.Message)
			}
			if rr.TextDetection == nil {
				continue
			}
			for _, page := range rr.TextDetection.Pages {
				for _, block := range page.Blocks {
					for _, line := range block.Lines {
						for _, w := range line.Words {
							if word, ok := toOCRWord(w); ok {
								words = append(words, word)
							}
						}
					}
				}
			}
		}
	}

	v.logger.DebugContext(ctx, "vision recognized words", "count", len(words), "duration", time.Since(startTime))
	return &models.OCRResult{Text: JoinText(words), Words: words}, nil
}

func toOCRWord(w visionWord) (models.OCRWord, bool) {
	text := strings.TrimSpace(w.Text)
	verts := w.BoundingBox.Vertices
	if text == "" || len(verts) < 3 {
		return models.OCRWord{}, false
	}
	box := models.BBox{
		X0: float64(verts[0].X),
		Y0: float64(verts[0].Y),
		X1: float64(verts[2].X),
		Y1: float64(verts[2].Y),
	}
	// vertices may come counter-clockwise from any corner
	if box.X1 < box.X0 {
		box.X0, box.X1 = box.X1, box.X0
	}
	if box.Y1 < box.Y0 {
		box.Y0, box.Y1 = box.Y1, box.Y0
	}
	return models.OCRWord{Text: text, BBox: box, FontSize: box.Height()}, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
