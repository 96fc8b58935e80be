package organization

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics records request/error/duration metrics for registry lookups.
type RegistryMetrics struct {
	next Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ Registry = (*RegistryMetrics)(nil)

// NewRegistryMetrics wraps next and registers its collectors with reg.
func NewRegistryMetrics(reg prometheus.Registerer, next Registry) *RegistryMetrics {
	m := &RegistryMetrics{
		next: next,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Subsystem: "organization_registry",
			Name:      "lookups_total",
			Help:      "Organization registry lookups by method and result.",
		}, []string{"method", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "helpdesk",
			Subsystem: "organization_registry",
			Name:      "lookup_duration_seconds",
			Help:      "Organization registry lookup latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *RegistryMetrics) FindBySlug(ctx context.Context, slug string) (*Organization, error) {
	rec := m.record("find_by_slug")
	org, err := m.next.FindBySlug(ctx, slug)
	return org, rec(err)
}

func (m *RegistryMetrics) FindByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	rec := m.record("find_by_id")
	org, err := m.next.FindByID(ctx, id)
	return org, rec(err)
}

// FindByDomain is forwarded only when the wrapped registry supports domains.
func (m *RegistryMetrics) FindByDomain(ctx context.Context, host string) (*Organization, error) {
	df, ok := m.next.(DomainFinder)
	if !ok {
		return nil, ErrNotFound
	}
	rec := m.record("find_by_domain")
	org, err := df.FindByDomain(ctx, host)
	return org, rec(err)
}

func (m *RegistryMetrics) record(method string) func(error) error {
	start := time.Now()
	return func(err error) error {
		m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case errors.Is(err, ErrNotFound):
			result = "not_found"
		case err != nil:
			result = "error"
		}
		m.requests.WithLabelValues(method, result).Inc()
		return err
	}
}
