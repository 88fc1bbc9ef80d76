package progress

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

const meterName = "github.com/jdziat/simple-durable-airdrops/pkg/progress"

// Metric names.
const (
	MetricBatches    = "airdrop.batches"
	MetricRecipients = "airdrop.recipients"
)

// Metrics records batch and recipient counters.
type Metrics struct {
	batches    metric.Int64Counter
	recipients metric.Int64Counter
}

// NewMetrics creates the counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	batches, err := meter.Int64Counter(MetricBatches,
		metric.WithDescription("Settled airdrop batches by terminal state"),
		metric.WithUnit("{batch}"))
	if err != nil {
		return nil, err
	}
	recipients, err := meter.Int64Counter(MetricRecipients,
		metric.WithDescription("Airdrop recipients by result"),
		metric.WithUnit("{recipient}"))
	if err != nil {
		return nil, err
	}
	return &Metrics{batches: batches, recipients: recipients}, nil
}

// DefaultMetrics returns metrics on the global meter provider. If the
// provider fails to create instruments, a no-op recorder is returned.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.GetMeterProvider().Meter(meterName))
	if err != nil {
		slog.Default().Warn("airdrop metrics disabled", "error", err)
		return nil
	}
	return m
}

// RecordOutcome counts one settled batch. A nil receiver is a no-op.
func (m *Metrics) RecordOutcome(ctx context.Context, o core.BatchOutcome) {
	if m == nil {
		return
	}
	m.batches.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(o.State))))

	result := "failed"
	if o.State.Succeeded() {
		result = "paid"
	}
	if n := len(o.Recipients); n > 0 {
		m.recipients.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
	}
	if n := len(o.Failed); n > 0 {
		m.recipients.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", "failed")))
	}
}
