package core

import "time"

// MetricsRecorder receives geolocation and segmentation events.
type MetricsRecorder interface {
	ObserveForward()
	ObserveProjection(iterations int, converged, singular bool)
	ObserveBurstOperation(operation string, applied bool)
	SetSegmentation(bursts, gcps int)
	SetTimeOffsets(azimuth time.Duration, rangeTime float64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveForward()                       {}
func (noopMetrics) ObserveProjection(int, bool, bool)     {}
func (noopMetrics) ObserveBurstOperation(string, bool)    {}
func (noopMetrics) SetSegmentation(int, int)              {}
func (noopMetrics) SetTimeOffsets(time.Duration, float64) {}
