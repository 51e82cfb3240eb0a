package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apifetch/internal/selector"
	"github.com/apifetch/pkg/fetch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "apifetch"

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeStatus    = "status_error"
	OutcomeTransport = "transport_error"
	OutcomeDecode    = "decode_error"
	OutcomeSelect    = "select_error"
	OutcomeInvalid   = "invalid"
)

// Metrics holds all Prometheus metrics for apifetch.
type Metrics struct {
	registry        *prometheus.Registry
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	ResponseBytes   *prometheus.CounterVec
	FetchesInFlight prometheus.Gauge
}

// New creates all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Total number of fetches by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Fetch latency histogram",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"endpoint"},
		),
		ResponseBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_bytes_total",
				Help:      "Response body bytes read by endpoint",
			},
			[]string{"endpoint"},
		),
		FetchesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "fetches_in_flight",
				Help:      "Current number of fetches being processed",
			},
		),
	}
}

// Outcome classifies the result of a fetch.
func Outcome(err error) string {
	var (
		se *fetch.StatusError
		te *fetch.TransportError
		de *fetch.DecodeError
		ee *selector.EvalError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &se):
		return OutcomeStatus
	case errors.As(err, &te):
		return OutcomeTransport
	case errors.As(err, &de):
		return OutcomeDecode
	case errors.As(err, &ee):
		return OutcomeSelect
	default:
		return OutcomeInvalid
	}
}

// RecordFetch records metrics for a completed fetch.
func (m *Metrics) RecordFetch(endpoint string, resp *fetch.Response, err error, durationSeconds float64) {
	m.FetchesTotal.WithLabelValues(endpoint, Outcome(err)).Inc()
	m.FetchDuration.WithLabelValues(endpoint).Observe(durationSeconds)
	if resp != nil {
		m.ResponseBytes.WithLabelValues(endpoint).Add(float64(len(resp.Body)))
	}
}

// IncInFlight increments the in-flight fetches gauge.
func (m *Metrics) IncInFlight() {
	m.FetchesInFlight.Inc()
}

// DecInFlight decrements the in-flight fetches gauge.
func (m *Metrics) DecInFlight() {
	m.FetchesInFlight.Dec()
}

// WriteTextfile writes all metrics in the textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Count returns the fetches_total value for endpoint and outcome.
func (m *Metrics) Count(endpoint, outcome string) (float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return 0, fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "_fetches_total") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, endpoint, outcome) {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, nil
}

func labelsMatch(metric *dto.Metric, endpoint, outcome string) bool {
	var gotEndpoint, gotOutcome string
	for _, lp := range metric.GetLabel() {
		switch lp.GetName() {
		case "endpoint":
			gotEndpoint = lp.GetValue()
		case "outcome":
			gotOutcome = lp.GetValue()
		}
	}
	return gotEndpoint == endpoint && gotOutcome == outcome
}
