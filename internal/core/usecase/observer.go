package usecase

import (
	"time"

	"github.com/kirillkom/docnav/internal/core/domain"
)

// NavigationObserver receives navigation telemetry.
type NavigationObserver interface {
	ObserveSwitch(outcome string, duration time.Duration)
	ObserveResolution(resolution domain.Resolution)
	ObserveHighlight(outcome string)
}

// BatchObserver receives batch tracking telemetry.
type BatchObserver interface {
	ObservePoll(err error)
	ObserveBatchTerminal(status domain.BatchJobStatus)
}

const (
	switchCommitted  = "committed"
	switchSuperseded = "superseded"
	switchFailed     = "failed"

	highlightApplied   = "applied"
	highlightPageOnly  = "page_only"
	highlightDiscarded = "discarded"
	highlightImmediate = "immediate"
)

type noopObserver struct{}

func (noopObserver) ObserveSwitch(string, time.Duration)        {}
func (noopObserver) ObserveResolution(domain.Resolution)        {}
func (noopObserver) ObserveHighlight(string)                    {}
func (noopObserver) ObservePoll(error)                          {}
func (noopObserver) ObserveBatchTerminal(domain.BatchJobStatus) {}
