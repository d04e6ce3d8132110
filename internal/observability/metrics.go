package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Projection outcomes used as the "outcome" label of sar_inverse_geolocations_total.
const (
	OutcomeConverged    = "converged"
	OutcomeNotConverged = "not_converged"
	OutcomeSingular     = "singular"
)

// GeolocationCollector bundles Prometheus metrics for sensor model
// geolocation and burst segmentation. It satisfies core.MetricsRecorder.
type GeolocationCollector struct {
	gatherer prometheus.Gatherer

	ForwardTotal         prometheus.Counter
	InverseTotal         *prometheus.CounterVec
	ProjectionIterations prometheus.Histogram

	BurstOperations *prometheus.CounterVec
	Bursts          prometheus.Gauge
	GCPs            prometheus.Gauge

	AzimuthTimeOffset prometheus.Gauge
	RangeTimeOffset   prometheus.Gauge
}

// NewGeolocationCollector registers geolocation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewGeolocationCollector(reg prometheus.Registerer) (*GeolocationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	forward, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sar_forward_geolocations_total",
		Help: "Total number of ground to image projections.",
	}), "sar_forward_geolocations_total")
	if err != nil {
		return nil, err
	}

	inverse := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sar_inverse_geolocations_total",
		Help: "Total number of image to ground projections, labeled by outcome.",
	}, []string{"outcome"})
	inverse, err = registerCounterVec(reg, inverse, "sar_inverse_geolocations_total")
	if err != nil {
		return nil, err
	}

	iterations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sar_projection_iterations",
		Help:    "Newton iterations spent per image to ground projection.",
		Buckets: []float64{1, 2, 3, 4, 5, 8, 13, 21, 34, 50},
	}), "sar_projection_iterations")
	if err != nil {
		return nil, err
	}

	burstOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sar_burst_operations_total",
		Help: "Burst segmentation operations, labeled by operation and whether the geometry changed.",
	}, []string{"operation", "applied"})
	burstOps, err = registerCounterVec(reg, burstOps, "sar_burst_operations_total")
	if err != nil {
		return nil, err
	}

	bursts, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sar_bursts",
		Help: "Current number of burst records held by the sensor model.",
	}), "sar_bursts")
	if err != nil {
		return nil, err
	}
	gcps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sar_gcps",
		Help: "Current number of ground control points held by the sensor model.",
	}), "sar_gcps")
	if err != nil {
		return nil, err
	}

	azOffset, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sar_azimuth_time_offset_seconds",
		Help: "Azimuth time offset estimated from GCPs.",
	}), "sar_azimuth_time_offset_seconds")
	if err != nil {
		return nil, err
	}
	rgOffset, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sar_range_time_offset_seconds",
		Help: "Range time offset estimated from GCPs.",
	}), "sar_range_time_offset_seconds")
	if err != nil {
		return nil, err
	}

	return &GeolocationCollector{
		gatherer:             gatherer,
		ForwardTotal:         forward,
		InverseTotal:         inverse,
		ProjectionIterations: iterations,
		BurstOperations:      burstOps,
		Bursts:               bursts,
		GCPs:                 gcps,
		AzimuthTimeOffset:    azOffset,
		RangeTimeOffset:      rgOffset,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *GeolocationCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *GeolocationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveForward counts one ground to image projection.
func (c *GeolocationCollector) ObserveForward() {
	if c == nil || c.ForwardTotal == nil {
		return
	}
	c.ForwardTotal.Inc()
}

// ObserveProjection records the outcome of one image to ground projection.
func (c *GeolocationCollector) ObserveProjection(iterations int, converged, singular bool) {
	if c == nil {
		return
	}
	outcome := OutcomeNotConverged
	switch {
	case singular:
		outcome = OutcomeSingular
	case converged:
		outcome = OutcomeConverged
	}
	if c.InverseTotal != nil {
		c.InverseTotal.WithLabelValues(outcome).Inc()
	}
	if c.ProjectionIterations != nil {
		c.ProjectionIterations.Observe(float64(iterations))
	}
}

// SetTimeOffsets publishes the calibrated azimuth and range time offsets.
func (c *GeolocationCollector) SetTimeOffsets(azimuth time.Duration, rangeTime float64) {
	if c == nil {
		return
	}
	if c.AzimuthTimeOffset != nil {
		c.AzimuthTimeOffset.Set(azimuth.Seconds())
	}
	if c.RangeTimeOffset != nil {
		c.RangeTimeOffset.Set(rangeTime)
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
