package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/sar-sensor-model/internal/logging"
)

const tracerName = "github.com/signalsfoundry/sar-sensor-model/core"

// OptimizeTimeOffsetsFromGCPs estimates the azimuth time offset as the mean
// difference between the reference and estimated zero-Doppler times of the
// GCPs that carry reference times. With range calibration enabled the range
// time offset is estimated the same way, after the azimuth offset is applied.
// Offsets are zero when no GCP has reference times.
func (m *SensorModel) OptimizeTimeOffsetsFromGCPs(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SensorModel.OptimizeTimeOffsetsFromGCPs")
	defer span.End()
	span.SetAttributes(
		attribute.String("sar.product_type", m.productType),
		attribute.Int("sar.gcps", len(m.state.GCPs)),
	)

	m.azimuthTimeOffset = 0
	if m.rangeCalibration {
		m.rangeTimeOffset = 0
	}

	var (
		cumulAzimuth time.Duration
		count        int
	)
	for _, gcp := range m.state.GCPs {
		ref, ok := m.sar.GCPTimes[gcp.ID]
		if !ok {
			continue
		}
		est, err := m.WorldToAzimuthRangeTime(gcp.World())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "azimuth time estimation failed")
			return fmt.Errorf("calibrate GCP %q: %w", gcp.ID, err)
		}
		cumulAzimuth -= est.AzimuthTime.Sub(ref.AzimuthTime)
		count++
	}
	if count > 0 {
		m.azimuthTimeOffset = cumulAzimuth / time.Duration(count)
	}

	if m.rangeCalibration && count > 0 {
		var cumulRange float64
		for _, gcp := range m.state.GCPs {
			ref, ok := m.sar.GCPTimes[gcp.ID]
			if !ok {
				continue
			}
			est, err := m.WorldToAzimuthRangeTime(gcp.World())
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "range time estimation failed")
				return fmt.Errorf("calibrate GCP %q: %w", gcp.ID, err)
			}
			cumulRange += ref.SlantRangeTime - est.RangeTime
		}
		m.rangeTimeOffset = cumulRange / float64(count)
	}

	span.SetAttributes(
		attribute.Int("sar.calibration_gcps", count),
		attribute.Float64("sar.azimuth_time_offset_s", m.azimuthTimeOffset.Seconds()),
		attribute.Float64("sar.range_time_offset_s", m.rangeTimeOffset),
	)
	m.metrics.SetTimeOffsets(m.azimuthTimeOffset, m.rangeTimeOffset)
	m.log.Info(ctx, "sensor model time offsets calibrated",
		logging.String("product_type", m.productType),
		logging.Int("gcps", count),
		logging.Duration("azimuth_time_offset", m.azimuthTimeOffset),
		logging.Float("range_time_offset", m.rangeTimeOffset),
	)
	return nil
}
