package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/sar-sensor-model/internal/logging"
)

// Burst operation names reported to the MetricsRecorder.
const (
	opDeburst               = "deburst"
	opBurstExtraction       = "burst_extraction"
	opDeburstAndConcatenate = "deburst_and_concatenate"
)

func (m *SensorModel) burstGeometry() BurstGeometry {
	return BurstGeometry{
		AzimuthTimeInterval: m.sar.AzimuthTimeInterval,
		RangeSamplingRate:   m.sar.RangeSamplingRate,
		LinesPerBurst:       m.sar.NumberOfLinesPerBurst,
		SamplesPerBurst:     m.sar.NumberOfSamplesPerBurst,
	}
}

// Deburst merges the model's bursts into one. See the Deburst function.
func (m *SensorModel) Deburst(onlyValidSample bool) (DeburstResult, bool) {
	next, res, ok := Deburst(m.state, m.burstGeometry(), onlyValidSample)
	m.apply(opDeburst, next, ok)
	return res, ok
}

// BurstExtraction keeps a single burst of the model. See the BurstExtraction
// function. An index outside a multi-burst table is an error.
func (m *SensorModel) BurstExtraction(index int, allPixels bool) (ExtractionResult, bool, error) {
	if n := len(m.state.Bursts); n > 1 && (index < 0 || index >= n) {
		m.metrics.ObserveBurstOperation(opBurstExtraction, false)
		return ExtractionResult{}, false, fmt.Errorf("%w: %d not in [0, %d)", ErrBurstIndexOutOfRange, index, n)
	}
	next, res, ok := BurstExtraction(m.state, m.burstGeometry(), index, allPixels)
	m.apply(opBurstExtraction, next, ok)
	return res, ok, nil
}

// DeburstAndConcatenate debursts the model and reports the per-burst
// ranges. See the DeburstAndConcatenate function. A reference index outside
// a multi-burst table is an error.
func (m *SensorModel) DeburstAndConcatenate(firstBurstIndex int, inputWithInvalidPixels bool) (ConcatenateResult, bool, error) {
	if n := len(m.state.Bursts); n > 1 && (firstBurstIndex < 0 || firstBurstIndex >= n) {
		m.metrics.ObserveBurstOperation(opDeburstAndConcatenate, false)
		return ConcatenateResult{}, false, fmt.Errorf("%w: %d not in [0, %d)", ErrBurstIndexOutOfRange, firstBurstIndex, n)
	}
	next, res, ok := DeburstAndConcatenate(m.state, m.burstGeometry(), firstBurstIndex, inputWithInvalidPixels)
	m.apply(opDeburstAndConcatenate, next, ok)
	return res, ok, nil
}

// Overlap returns the region shared by burst burstIndUp and the next one. It
// does not modify the model.
func (m *SensorModel) Overlap(burstIndUp int, inputWithInvalidPixels bool) (OverlapResult, bool) {
	return Overlap(m.state, m.burstGeometry(), burstIndUp, inputWithInvalidPixels)
}

func (m *SensorModel) apply(op string, next SegmentationState, ok bool) {
	m.metrics.ObserveBurstOperation(op, ok)
	if !ok {
		m.log.Debug(context.Background(), "burst operation skipped",
			logging.String("operation", op),
			logging.Int("bursts", len(m.state.Bursts)),
		)
		return
	}

	dropped := len(m.state.GCPs) - len(next.GCPs)
	if dropped > 0 {
		m.log.Warn(context.Background(), "GCPs dropped by burst operation",
			logging.String("operation", op),
			logging.Int("dropped", dropped),
			logging.Int("kept", len(next.GCPs)),
		)
	}
	if len(next.GCPs) == 0 {
		m.log.Warn(context.Background(), "burst operation left no GCP; ground projection is unavailable",
			logging.String("operation", op),
		)
	}
	m.log.Debug(context.Background(), "burst operation applied",
		logging.String("operation", op),
		logging.Int("bursts_before", len(m.state.Bursts)),
		logging.Int("lines", next.Bursts[0].Lines()),
	)

	m.state = next
	m.metrics.SetSegmentation(len(m.state.Bursts), len(m.state.GCPs))
}
