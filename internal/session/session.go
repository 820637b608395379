// Package session keeps the current menu scan of each client in memory.
//
// A scan session holds at most one analysis. Starting a new analysis
// supersedes the previous one: its in-flight work is cancelled and its
// result, when it arrives, is dropped.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/menuscan/menu-layout-service/internal/layout"
	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
	"github.com/menuscan/menu-layout-service/internal/render"
)

var (
	ErrNoAnalysis      = errors.New("no analysis in this session")
	ErrNoViewport      = errors.New("viewport not set")
	ErrInvalidViewport = errors.New("viewport dimensions must be positive")
)

// State is the lifecycle of the session's current analysis
type State string

const (
	StateEmpty      State = "empty"
	StateProcessing State = "processing"
	StateReady      State = "ready"
)

// Session is one client's scan
type Session struct {
	key     string
	padding float64
	logger  *slog.Logger

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	state     State
	analysis  *models.Analysis
	index     *layout.Index
	viewport  layout.Viewport
	version   uint64 // bumped on every change the layer depends on
	layer     *render.Layer
	layerVer  uint64
	updatedAt time.Time

	debouncer *render.Debouncer
}

func newSession(key string, padding float64, delay time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = observability.NopLogger()
	}
	s := &Session{
		key:       key,
		padding:   padding,
		logger:    logger,
		state:     StateEmpty,
		updatedAt: time.Now(),
	}
	s.debouncer = render.NewDebouncer(delay, s.recompute)
	return s
}

// Key returns the session key
func (s *Session) Key() string { return s.key }

// Begin supersedes the current analysis. The previous in-flight analysis is
// cancelled and the current result discarded. The returned context must be
// used for the new analysis and gen passed to Commit.
func (s *Session) Begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	s.state = StateProcessing
	s.analysis = nil
	s.index = nil
	s.changed()
	s.debouncer.Trigger()

	return ctx, s.gen
}

// Commit stores the analysis started by Begin. A result from a superseded
// generation is dropped and false returned.
func (s *Session) Commit(gen uint64, a *models.Analysis) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug("dropping superseded analysis", "session", s.key, "gen", gen, "current", s.gen)
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.analysis = a
	s.index = layout.NewIndex(a.Items)
	s.state = StateReady
	s.changed()
	s.debouncer.Trigger()
	return true
}

// Abort ends a failed analysis started by Begin
func (s *Session) Abort(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateEmpty
	s.touch()
}

// Snapshot returns the state and current analysis
func (s *Session) Snapshot() (State, *models.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.analysis
}

// Viewport returns the last viewport set by the client
func (s *Session) Viewport() layout.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport records how the image is displayed and schedules a redraw
func (s *Session) SetViewport(vp layout.Viewport) error {
	if vp.DisplayWidth <= 0 || vp.DisplayHeight <= 0 || vp.NaturalWidth < 0 || vp.NaturalHeight < 0 {
		return ErrInvalidViewport
	}

	s.mu.Lock()
	s.viewport = vp
	s.changed()
	s.mu.Unlock()

	s.debouncer.Trigger()
	return nil
}

// Layer returns the current highlight layer, recomputing it first when a
// pending change has not been drawn yet
func (s *Session) Layer() *render.Layer {
	s.mu.Lock()
	fresh := s.layer != nil && s.layerVer == s.version
	layer := s.layer
	s.mu.Unlock()
	if fresh {
		return layer
	}

	if s.debouncer.Flush() {
		s.mu.Lock()
		layer = s.layer
		s.mu.Unlock()
		return layer
	}

	// a redraw is running; answer from the current state without storing it
	a, vp := s.layerInput()
	return render.BuildLayer(a, vp, s.padding)
}

// Tap resolves a canvas point to the dish whose title was tapped
func (s *Session) Tap(x, y float64) (*models.Dish, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analysis == nil {
		return nil, false, ErrNoAnalysis
	}
	vp := s.effectiveViewport()
	if !vp.Valid() {
		return nil, false, ErrNoViewport
	}
	s.touch()

	wx, wy := vp.FromCanvas(x, y, s.analysis.Normalized)
	item, ok := s.index.HitTest(wx, wy)
	if !ok {
		return nil, false, nil
	}
	for i := range s.analysis.Dishes {
		if s.analysis.Dishes[i].ID == item.ID {
			d := s.analysis.Dishes[i]
			return &d, true, nil
		}
	}
	return nil, false, nil
}

// Close cancels in-flight work and stops redraws
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.debouncer.Stop()
}

// LastActivity returns when the session was last used
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// touch must be called with mu held
func (s *Session) touch() {
	s.updatedAt = time.Now()
}

// changed marks the drawn layer stale. Must be called with mu held.
func (s *Session) changed() {
	s.version++
	s.touch()
}

// effectiveViewport fills a missing natural size from the analyzed image.
// Must be called with mu held.
func (s *Session) effectiveViewport() layout.Viewport {
	vp := s.viewport
	if s.analysis != nil && (vp.NaturalWidth == 0 || vp.NaturalHeight == 0) {
		vp.NaturalWidth = float64(s.analysis.ImageWidth)
		vp.NaturalHeight = float64(s.analysis.ImageHeight)
	}
	if s.analysis != nil && s.analysis.Normalized && (vp.NaturalWidth == 0 || vp.NaturalHeight == 0) {
		// normalized boxes do not depend on the natural size
		vp.NaturalWidth, vp.NaturalHeight = 1, 1
	}
	return vp
}

func (s *Session) layerInput() (*models.Analysis, layout.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis, s.effectiveViewport()
}

func (s *Session) recompute() {
	s.mu.Lock()
	ver := s.version
	a := s.analysis
	vp := s.effectiveViewport()
	s.mu.Unlock()

	layer := render.BuildLayer(a, vp, s.padding)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ver >= s.layerVer {
		s.layer = layer
		s.layerVer = ver
	}
	s.logger.Debug("highlight layer redrawn", "session", s.key, "highlights", len(layer.Highlights), "frames", len(layer.Frames))
}
