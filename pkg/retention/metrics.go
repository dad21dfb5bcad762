package retention

import (
	"sync/atomic"

	"github.com/dbforge/xbak/pkg/plog"
)

// Metrics defines the interface for collecting and reporting sweep statistics.
type Metrics interface {
	AddGenerationsDeleted(n int64)
	AddGenerationsFailed(n int64)
	LogSummary(msg string)
}

// SweepMetrics holds the atomic counters for tracking a sweep's progress.
type SweepMetrics struct {
	GenerationsDeleted atomic.Int64
	GenerationsFailed  atomic.Int64
}

func (m *SweepMetrics) AddGenerationsDeleted(n int64) { m.GenerationsDeleted.Add(n) }
func (m *SweepMetrics) AddGenerationsFailed(n int64)  { m.GenerationsFailed.Add(n) }

func (m *SweepMetrics) LogSummary(msg string) {
	plog.Info(msg,
		"generations_deleted", m.GenerationsDeleted.Load(),
		"generations_failed", m.GenerationsFailed.Load(),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
type NoopMetrics struct{}

func (m *NoopMetrics) AddGenerationsDeleted(n int64) {}
func (m *NoopMetrics) AddGenerationsFailed(n int64)  {}
func (m *NoopMetrics) LogSummary(msg string)         {}

var _ Metrics = (*SweepMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
