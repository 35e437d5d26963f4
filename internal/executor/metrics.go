package executor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yairfalse/lustre-client-installer/internal/logging"
)

// Metrics records per-step durations and outcomes for the end-of-run
// summary.
type Metrics struct {
	mu        sync.Mutex
	order     []string
	durations map[string]time.Duration
	errors    map[string]error
}

// NewMetrics returns an empty recorder.
func NewMetrics() *Metrics {
	return &Metrics{
		durations: make(map[string]time.Duration),
		errors:    make(map[string]error),
	}
}

// Record stores one step's duration and outcome.
func (m *Metrics) Record(step string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.durations[step]; !seen {
		m.order = append(m.order, step)
	}
	m.durations[step] = d
	if err != nil {
		m.errors[step] = err
	}
}

// Total returns the summed step durations.
func (m *Metrics) Total() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	return total
}

// LogSummary writes one line per recorded step plus the total.
func (m *Metrics) LogSummary(log *logging.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total time.Duration
	for _, step := range m.order {
		d := m.durations[step]
		total += d
		fields := []zap.Field{zap.Duration("duration", d)}
		if err, failed := m.errors[step]; failed {
			fields = append(fields, zap.Error(err))
		}
		log.Debug("step timing: "+step, fields...)
	}
	log.Info("provisioning finished", zap.Duration("total", total), zap.Int("steps", len(m.order)), zap.Int("failures", len(m.errors)))
}
