package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Reporter receives failures that were handled without aborting the pipeline
type Reporter interface {
	Report(ctx context.Context, component string, err error)
}

// LogReporter logs every reported failure and keeps a per-component count
type LogReporter struct {
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]int64
}

// NewLogReporter creates a reporter writing to logger
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = NopLogger()
	}
	return &LogReporter{logger: logger, counts: make(map[string]int64)}
}

// Report logs the failure at warn level
func (r *LogReporter) Report(ctx context.Context, component string, err error) {
	r.mu.Lock()
	r.counts[component]++
	r.mu.Unlock()

	r.logger.WarnContext(ctx, "non-fatal failure", "component", component, "error", err)
}

// Counts returns a snapshot of failures per component
func (r *LogReporter) Counts() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// NopReporter drops every report
type NopReporter struct{}

func (NopReporter) Report(context.Context, string, error) {}
