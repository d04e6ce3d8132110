package core

import "github.com/signalsfoundry/sar-sensor-model/internal/logging"

// DefaultInterpolationDegree is the number of orbit records used by the
// Lagrange interpolator.
const DefaultInterpolationDegree = 8

// Option configures a SensorModel at construction.
type Option func(*SensorModel)

// WithLogger sets the logger used by the model.
func WithLogger(l logging.Logger) Option {
	return func(m *SensorModel) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics sets the metrics recorder, typically an
// observability.GeolocationCollector.
func WithMetrics(r MetricsRecorder) Option {
	return func(m *SensorModel) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithInterpolationDegree overrides the orbit interpolation window size.
// Values below 2 are ignored.
func WithInterpolationDegree(n int) Option {
	return func(m *SensorModel) {
		if n >= 2 {
			m.degree = n
		}
	}
}

// WithRangeTimeOffset sets an externally known range time offset, in seconds.
func WithRangeTimeOffset(seconds float64) Option {
	return func(m *SensorModel) {
		m.rangeTimeOffset = seconds
	}
}

// WithRangeCalibration estimates the range time offset from the GCP
// slant-range times at construction, overriding WithRangeTimeOffset.
func WithRangeCalibration() Option {
	return func(m *SensorModel) {
		m.rangeCalibration = true
	}
}

// WithHeightProvider sets the terrain height source used by LineSampleToWorld.
func WithHeightProvider(h HeightProvider) Option {
	return func(m *SensorModel) {
		if h != nil {
			m.heights = h
		}
	}
}
