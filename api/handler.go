package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/menuscan/menu-layout-service/internal/auth"
	"github.com/menuscan/menu-layout-service/internal/layout"
	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
	"github.com/menuscan/menu-layout-service/internal/ocr"
	"github.com/menuscan/menu-layout-service/internal/render"
	"github.com/menuscan/menu-layout-service/internal/services"
	"github.com/menuscan/menu-layout-service/internal/session"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	MaxWordsBody  = 4 * 1024 * 1024
	Version       = "1.0.0"
)

// Handler handles HTTP requests for menu scans
type Handler struct {
	config   *models.Config
	analyzer *services.Analyzer
	sessions *session.Store
	auth     *auth.Authenticator
	reporter observability.Reporter
	logger   *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, analyzer *services.Analyzer, sessions *session.Store, authenticator *auth.Authenticator, reporter observability.Reporter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	if authenticator == nil {
		authenticator = auth.NewAuthenticator("", 0)
	}
	return &Handler{
		config:   config,
		analyzer: analyzer,
		sessions: sessions,
		auth:     authenticator,
		reporter: reporter,
		logger:   logger,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.auth.Middleware)

	// Scan lifecycle
	router.HandleFunc("/api/session", h.NewSession).Methods("POST")
	router.HandleFunc("/api/scan", h.ProcessScan).Methods("POST")
	router.HandleFunc("/api/scan/words", h.ProcessWords).Methods("POST")
	router.HandleFunc("/api/scan", h.GetScan).Methods("GET")
	router.HandleFunc("/api/scan", h.DeleteScan).Methods("DELETE")

	// Highlight layer
	router.HandleFunc("/api/scan/viewport", h.SetViewport).Methods("PUT")
	router.HandleFunc("/api/scan/highlights", h.GetHighlights).Methods("GET")
	router.HandleFunc("/api/scan/overlay.png", h.GetOverlay).Methods("GET")
	router.HandleFunc("/api/scan/tap", h.Tap).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Memory    MemoryStats      `json:"memory"`
	OCR       ServiceStatus    `json:"ocr"`
	AI        AIStatus         `json:"ai"`
	Sessions  int              `json:"sessions"`
	Failures  map[string]int64 `json:"failures,omitempty"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Engine    string `json:"engine"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AIStatus describes the classification chain
type AIStatus struct {
	DefaultProvider string   `json:"defaultProvider"`
	Classifiers     []string `json:"classifiers"`
}

var startTime = time.Now()

// Health endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	ocrStatus := h.checkWordSource()
	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		OCR: ocrStatus,
		AI: AIStatus{
			DefaultProvider: h.config.AI.DefaultProvider,
			Classifiers:     h.analyzer.Classifiers(),
		},
		Sessions: h.sessions.Len(),
	}
	if counter, ok := h.reporter.(interface{ Counts() map[string]int64 }); ok {
		response.Failures = counter.Counts()
	}

	// image scans are unavailable, word submission still works
	if !ocrStatus.Available {
		response.Status = "degraded"
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// checkWordSource reports whether image scans can be served
func (h *Handler) checkWordSource() ServiceStatus {
	status := ServiceStatus{Engine: h.analyzer.WordSourceName()}
	switch {
	case !h.analyzer.HasWordSource():
		status.Error = "no OCR engine configured"
	case status.Engine == "tesseract" && !ocr.Enabled:
		status.Error = ocr.ErrOCRNotEnabled.Error()
	default:
		status.Available = true
		if status.Engine == "tesseract" {
			status.Version = ocr.EngineVersion()
		}
	}
	return status
}

// NewSession starts a session. With authentication enabled it returns a
// bearer token bound to the session.
func (h *Handler) NewSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	sessionID := uuid.NewString()
	response := map[string]interface{}{
		"success":   true,
		"sessionId": sessionID,
	}

	if h.auth.Enabled() {
		token, claims, err := h.auth.GenerateToken(sessionID)
		if err != nil {
			h.sendError(w, http.StatusInternalServerError, "failed to generate token")
			return
		}
		response["token"] = token
		response["expiresAt"] = claims.ExpiresAt.Time
	}

	h.sessions.Get(sessionID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// ProcessScan recognizes an uploaded menu photo and replaces the session's
// current analysis
func (h *Handler) ProcessScan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !h.analyzer.HasWordSource() {
		h.sendError(w, http.StatusServiceUnavailable, "no OCR engine configured; submit words to /api/scan/words")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	// Get file - accept both "file" and "image" field names
	file, _, err := r.FormFile("file")
	if err != nil {
		file, _, err = r.FormFile("image")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "No file provided (use 'file' or 'image' field)")
			return
		}
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	sess := h.sessions.Get(auth.SessionFromContext(r.Context()))
	ctx, gen := sess.Begin(r.Context())

	analysis, err := h.analyzer.AnalyzeImage(ctx, imageData)
	if err != nil {
		sess.Abort(gen)
		h.logger.WarnContext(ctx, "scan failed", "session", sess.Key(), "error", err)
		h.sendError(w, scanErrorStatus(ctx, err), err.Error())
		return
	}

	h.commit(w, sess, gen, analysis)
}

// wordsRequest is the word source contract plus the optional image size
type wordsRequest struct {
	models.OCRResult
	ImageWidth  int `json:"imageWidth"`
	ImageHeight int `json:"imageHeight"`
}

// ProcessWords analyzes words recognized by the client
func (h *Handler) ProcessWords(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	r.Body = http.MaxBytesReader(w, r.Body, MaxWordsBody)
	var req wordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageWidth < 0 || req.ImageHeight < 0 {
		h.sendError(w, http.StatusBadRequest, "image size must not be negative")
		return
	}

	sess := h.sessions.Get(auth.SessionFromContext(r.Context()))
	ctx, gen := sess.Begin(r.Context())

	analysis := h.analyzer.Analyze(ctx, req.Words)
	analysis.ImageWidth = req.ImageWidth
	analysis.ImageHeight = req.ImageHeight

	h.commit(w, sess, gen, analysis)
}

func (h *Handler) commit(w http.ResponseWriter, sess *session.Session, gen uint64, analysis *models.Analysis) {
	if !sess.Commit(gen, analysis) {
		h.sendError(w, http.StatusConflict, "scan superseded by a newer one")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(analysisResponse(analysis))
}

func analysisResponse(a *models.Analysis) map[string]interface{} {
	return map[string]interface{}{
		"success":          true,
		"analysisId":       a.ID,
		"dishes":           a.Dishes,
		"blocks":           a.Blocks,
		"normalized":       a.Normalized,
		"imageWidth":       a.ImageWidth,
		"imageHeight":      a.ImageHeight,
		"noText":           a.NoText,
		"classifier":       a.Classifier,
		"degraded":         a.Degraded,
		"needsReview":      a.NeedsReview,
		"warnings":         a.Warnings,
		"ocrDuration":      a.OCRDuration,
		"classifyDuration": a.ClassifyDuration,
		"totalDuration":    a.TotalDuration,
	}
}

// scanErrorStatus maps a failed image analysis to a status code
func scanErrorStatus(ctx context.Context, err error) int {
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return http.StatusConflict
	case errors.Is(err, ocr.ErrOCRNotEnabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ocr.ErrNoImage), errors.Is(err, ocr.ErrUnsupportedImage):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// GetScan returns the session's current analysis
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	sess := h.sessions.Get(auth.SessionFromContext(r.Context()))
	state, analysis := sess.Snapshot()

	response := map[string]interface{}{"success": true}
	if analysis != nil {
		response = analysisResponse(analysis)
		response["items"] = analysis.Items
	}
	response["state"] = state
	response["sessionId"] = sess.Key()
	if claims, err := auth.GetClaimsFromContext(r.Context()); err == nil {
		response["expiresAt"] = claims.ExpiresAt.Time
	}
	json.NewEncoder(w).Encode(response)
}

// DeleteScan discards the session
func (h *Handler) DeleteScan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	deleted := h.sessions.Delete(auth.SessionFromContext(r.Context()))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"deleted": deleted,
	})
}

// SetViewport records the display size of the photo
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var vp layout.Viewport
	if err := json.NewDecoder(r.Body).Decode(&vp); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.sessions.Get(auth.SessionFromContext(r.Context()))
	if err := sess.SetViewport(vp); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"viewport": vp,
	})
}

// GetHighlights returns the highlight layer in canvas pixels
func (h *Handler) GetHighlights(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	sess := h.sessions.Get(auth.SessionFromContext(r.Context()))
	state, _ := sess.Snapshot()
	layer := sess.Layer()

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"state":    state,
		"viewport": sess.Viewport(),
		"layer":    layer,
	})
}

// GetOverlay renders the highlight layer as a transparent PNG
func (h *Handler) GetOverlay(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(auth.SessionFromContext(r.Context()))
	layer := sess.Layer()
	if layer.Width == 0 || layer.Height == 0 {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusConflict, session.ErrNoViewport.Error())
		return
	}

	data, err := render.EncodePNG(layer)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// TapRequest is a point on the canvas
type TapRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Tap returns the dish whose title contains the canvas point
func (h *Handler) Tap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req TapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.sessions.Get(auth.SessionFromContext(r.Context()))
	dish, found, err := sess.Tap(req.X, req.Y)
	switch {
	case errors.Is(err, session.ErrNoAnalysis):
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, session.ErrNoViewport):
		h.sendError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := map[string]interface{}{
		"success": true,
		"found":   found,
	}
	if found {
		response["dish"] = dish
	}
	json.NewEncoder(w).Encode(response)
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
