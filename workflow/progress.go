/*
Package workflow applies the eligibility engine to the rider store.

PURPOSE:
  The rider package computes; this package writes. It holds the two
  application layers around rider.ComputeUpdates:
  - Updater (updater.go): one human-edited field on one rider
  - Orchestrator (orchestrator.go): full-dataset recompute in batches

  The source system drove a spinner from module-level UI state; here the
  orchestrator reports through an injected ProgressSink so any surface
  (HTTP status endpoint, log stream, test harness) can subscribe.

SEE ALSO:
  - rider/eligibility.go: the pure engine both layers call
  - api/handlers.go: HTTP surface over both layers
*/
package workflow

import "go.uber.org/zap"

// =============================================================================
// PROGRESS SINK - Injected reporting collaborator for bulk runs
// =============================================================================

// ProgressSink receives bulk-recompute progress. Implementations must
// tolerate being called only from the goroutine driving the run.
type ProgressSink interface {
	Show(title, subtitle string)
	Update(percent float64, phase, title, subtitle string)
	Complete(title, subtitle string)
	Error(title, subtitle string)
}

// ProgressEvent is one sink notification, for channel consumers.
type ProgressEvent struct {
	Kind     string  `json:"kind"` // "show", "update", "complete", "error"
	Percent  float64 `json:"percent"`
	Phase    string  `json:"phase,omitempty"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
}

// NopSink discards all progress. The default when no sink is injected.
type NopSink struct{}

func (NopSink) Show(_, _ string)                 {}
func (NopSink) Update(_ float64, _, _, _ string) {}
func (NopSink) Complete(_, _ string)             {}
func (NopSink) Error(_, _ string)                {}

// LogSink reports progress through a structured logger.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Show(title, subtitle string) {
	s.Logger.Info("bulk recompute started", zap.String("title", title), zap.String("subtitle", subtitle))
}

func (s LogSink) Update(percent float64, phase, title, subtitle string) {
	s.Logger.Info("bulk recompute progress",
		zap.Float64("percent", percent),
		zap.String("phase", phase),
		zap.String("title", title),
		zap.String("subtitle", subtitle),
	)
}

func (s LogSink) Complete(title, subtitle string) {
	s.Logger.Info("bulk recompute complete", zap.String("title", title), zap.String("subtitle", subtitle))
}

func (s LogSink) Error(title, subtitle string) {
	s.Logger.Error("bulk recompute failed", zap.String("title", title), zap.String("subtitle", subtitle))
}

// ChannelSink yields events on a channel. Sends never block: if the
// consumer lags, intermediate updates are dropped rather than stalling
// the batch loop.
type ChannelSink struct {
	C chan ProgressEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan ProgressEvent, buffer)}
}

func (s *ChannelSink) Show(title, subtitle string) {
	s.send(ProgressEvent{Kind: "show", Title: title, Subtitle: subtitle})
}

func (s *ChannelSink) Update(percent float64, phase, title, subtitle string) {
	s.send(ProgressEvent{Kind: "update", Percent: percent, Phase: phase, Title: title, Subtitle: subtitle})
}

func (s *ChannelSink) Complete(title, subtitle string) {
	s.send(ProgressEvent{Kind: "complete", Percent: 100, Title: title, Subtitle: subtitle})
}

func (s *ChannelSink) Error(title, subtitle string) {
	s.send(ProgressEvent{Kind: "error", Title: title, Subtitle: subtitle})
}

func (s *ChannelSink) send(ev ProgressEvent) {
	select {
	case s.C <- ev:
	default:
	}
}
