package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/menuscan/menu-layout-service/internal/auth"
	"github.com/menuscan/menu-layout-service/internal/layout"
	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
	"github.com/menuscan/menu-layout-service/internal/ocr"
	"github.com/menuscan/menu-layout-service/internal/render"
	"github.com/menuscan/menu-layout-service/internal/services"
	"github.com/menuscan/menu-layout-service/internal/session"
)

type stubSource struct {
	words []models.OCRWord
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Recognize(context.Context, []byte) (*models.OCRResult, error) {
	return &models.OCRResult{Words: s.words}, nil
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

func newTestHandler(t *testing.T, source ocr.WordSource, secret string) http.Handler {
	t.Helper()

	config := &models.Config{}
	config.ApplyDefaults()

	reporter := observability.NewLogReporter(nil)
	analyzer := services.NewAnalyzer(nil, source, nil, config.Layout, reporter, nil)
	store := session.NewStore(config.Layout.FramePadding, time.Hour, nil)
	t.Cleanup(store.Close)

	h := NewHandler(config, analyzer, store, auth.NewAuthenticator(secret, time.Hour), reporter, nil)
	return h.SetupRoutes()
}

func doJSON(t *testing.T, h http.Handler, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(auth.SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type scanBody struct {
	Success    bool             `json:"success"`
	Error      string           `json:"error"`
	State      string           `json:"state"`
	Dishes     []models.Dish    `json:"dishes"`
	NoText     bool             `json:"noText"`
	Classifier string           `json:"classifier"`
	Found      bool             `json:"found"`
	Dish       *models.Dish     `json:"dish"`
	Layer      *render.Layer    `json:"layer"`
	Viewport   *layout.Viewport `json:"viewport"`
	Deleted    bool             `json:"deleted"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) scanBody {
	t.Helper()
	var body scanBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" || resp.OCR.Available {
		t.Errorf("expected degraded status without an OCR engine, got %+v", resp)
	}
	if len(resp.AI.Classifiers) == 0 || resp.AI.Classifiers[len(resp.AI.Classifiers)-1] != "heuristic" {
		t.Errorf("heuristic must close the classifier chain, got %v", resp.AI.Classifiers)
	}
}

func TestScanWords_FullFlow(t *testing.T) {
	h := newTestHandler(t, nil, "")
	const sid = "table-1"

	w := doJSON(t, h, "POST", "/api/scan/words", sid, map[string]interface{}{
		"words":       menuPage(),
		"imageWidth":  500,
		"imageHeight": 200,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if len(body.Dishes) != 2 || body.Dishes[1].Title != "PIZZA DIAVOLA" {
		t.Fatalf("unexpected dishes %+v", body.Dishes)
	}

	// tap before the viewport is known
	w = doJSON(t, h, "POST", "/api/scan/tap", sid, TapRequest{X: 1, Y: 1})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 without viewport, got %d", w.Code)
	}

	// photo shown at half size
	w = doJSON(t, h, "PUT", "/api/scan/viewport", sid, map[string]float64{"displayWidth": 250, "displayHeight": 100})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, "GET", "/api/scan/highlights", sid, nil)
	body = decode(t, w)
	if body.Layer == nil || body.Layer.Width != 250 || len(body.Layer.Frames) != 2 {
		t.Fatalf("unexpected layer %+v", body.Layer)
	}
	if body.Viewport == nil || body.Viewport.DisplayWidth != 250 {
		t.Errorf("expected the stored viewport, got %+v", body.Viewport)
	}

	w = doJSON(t, h, "POST", "/api/scan/tap", sid, TapRequest{X: 50, Y: 45})
	body = decode(t, w)
	if !body.Found || body.Dish == nil || body.Dish.Title != "PIZZA DIAVOLA" {
		t.Errorf("expected the second pizza, got %+v", body)
	}

	// price words are not tappable
	w = doJSON(t, h, "POST", "/api/scan/tap", sid, TapRequest{X: 210, Y: 45})
	if body = decode(t, w); body.Found {
		t.Errorf("tap on a price must not find a dish, got %+v", body.Dish)
	}

	w = doJSON(t, h, "GET", "/api/scan/overlay.png", sid, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected a PNG overlay, got %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 250 || img.Bounds().Dy() != 100 {
		t.Errorf("unexpected overlay size %v", img.Bounds())
	}

	w = doJSON(t, h, "DELETE", "/api/scan", sid, nil)
	if body = decode(t, w); !body.Deleted {
		t.Error("expected the session to be deleted")
	}
	w = doJSON(t, h, "GET", "/api/scan", sid, nil)
	if body = decode(t, w); body.State != string(session.StateEmpty) {
		t.Errorf("expected an empty session after delete, got %q", body.State)
	}
}

func TestScanWords_SessionsAreIsolated(t *testing.T) {
	h := newTestHandler(t, nil, "")

	doJSON(t, h, "POST", "/api/scan/words", "a", map[string]interface{}{"words": menuPage()})

	w := doJSON(t, h, "POST", "/api/scan/tap", "b", TapRequest{X: 1, Y: 1})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a session without a scan, got %d", w.Code)
	}
	w = doJSON(t, h, "GET", "/api/scan", "a", nil)
	if body := decode(t, w); len(body.Dishes) != 2 {
		t.Errorf("session a lost its scan: %+v", body)
	}
}

func TestScanWords_NoText(t *testing.T) {
	h := newTestHandler(t, nil, "")

	w := doJSON(t, h, "POST", "/api/scan/words", "", map[string]interface{}{"text": "", "words": []models.OCRWord{}})
	if w.Code != http.StatusOK {
		t.Fatalf("an empty page is not an error, got %d", w.Code)
	}
	body := decode(t, w)
	if !body.NoText || len(body.Dishes) != 0 {
		t.Errorf("expected noText with no dishes, got %+v", body)
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t, nil, "")

	req := httptest.NewRequest("POST", "/api/scan/words", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", w.Code)
	}

	w = doJSON(t, h, "PUT", "/api/scan/viewport", "", map[string]float64{"displayWidth": 0, "displayHeight": 10})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an empty viewport, got %d", w.Code)
	}

	w = doJSON(t, h, "GET", "/api/scan/overlay.png", "", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for an overlay without viewport, got %d", w.Code)
	}
}

func multipartImage(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "menu.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(part, image.NewGray(image.Rect(0, 0, 500, 200))); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestProcessScan(t *testing.T) {
	h := newTestHandler(t, &stubSource{words: menuPage()}, "")

	body, contentType := multipartImage(t, "image")
	req := httptest.NewRequest("POST", "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); len(resp.Dishes) != 2 {
		t.Errorf("expected 2 dishes, got %+v", resp.Dishes)
	}
}

func TestProcessScan_Errors(t *testing.T) {
	h := newTestHandler(t, nil, "")
	body, contentType := multipartImage(t, "file")
	req := httptest.NewRequest("POST", "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without OCR engine, got %d", w.Code)
	}

	h = newTestHandler(t, &stubSource{}, "")
	body, contentType = multipartImage(t, "photo")
	req = httptest.NewRequest("POST", "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing file field, got %d", w.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "menu.txt")
	part.Write([]byte("not an image"))
	mw.Close()
	req = httptest.NewRequest("POST", "/api/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an undecodable image, got %d", w.Code)
	}
}

func TestSessionTokens(t *testing.T) {
	h := newTestHandler(t, nil, "test-secret-key-for-testing-only")

	w := doJSON(t, h, "POST", "/api/scan/words", "", map[string]interface{}{"words": menuPage()})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = doJSON(t, h, "POST", "/api/session", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var created struct {
		SessionID string `json:"sessionId"`
		Token     string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Token == "" || created.SessionID == "" {
		t.Fatalf("expected a token and a session id, got %+v", created)
	}

	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]interface{}{"words": menuPage()})
	req := httptest.NewRequest("POST", "/api/scan/words", &buf)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/scan", nil)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var current struct {
		SessionID string        `json:"sessionId"`
		ExpiresAt time.Time     `json:"expiresAt"`
		Dishes    []models.Dish `json:"dishes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&current); err != nil {
		t.Fatal(err)
	}
	if current.SessionID != created.SessionID || current.ExpiresAt.IsZero() {
		t.Errorf("expected the token's session and expiry, got %+v", current)
	}
	if len(current.Dishes) != 2 {
		t.Errorf("expected the scan bound to the token, got %d dishes", len(current.Dishes))
	}
}
