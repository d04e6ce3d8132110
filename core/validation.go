package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/internal/logging"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// ForwardTolerance bounds the residuals accepted by ValidateForward. Zero
// time tolerances disable the corresponding checks.
type ForwardTolerance struct {
	Pixels      float64 // on both sample and line
	AzimuthTime time.Duration
	RangeTime   float64 // seconds
}

// ForwardResidual compares one GCP with its forward projection.
type ForwardResidual struct {
	ID        string
	Expected  ImagePoint
	Estimated ImagePoint

	// HasTimes is set when the GCP carries reference times; the time
	// residuals are only meaningful then.
	HasTimes            bool
	AzimuthTimeResidual time.Duration
	RangeTimeResidual   float64

	OK bool
}

// ForwardReport is the result of ValidateForward.
type ForwardReport struct {
	Residuals []ForwardResidual
	OK        bool
}

// ValidateForward projects every GCP into the image and checks the result
// against its recorded image position and reference times.
func (m *SensorModel) ValidateForward(ctx context.Context, tol ForwardTolerance) (ForwardReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SensorModel.ValidateForward")
	defer span.End()

	report := ForwardReport{OK: true}
	for _, gcp := range m.state.GCPs {
		est, ar, err := m.ecefToLineSample(geodesy.WorldToEcef(gcp.World()))
		if err != nil {
			span.RecordError(err)
			return report, err
		}

		r := ForwardResidual{
			ID:        gcp.ID,
			Expected:  ImagePoint{Sample: gcp.Col, Line: gcp.Row},
			Estimated: est,
			OK:        true,
		}
		if math.Abs(est.Sample-gcp.Col) > tol.Pixels || math.Abs(est.Line-gcp.Row) > tol.Pixels ||
			math.IsNaN(est.Sample) || math.IsNaN(est.Line) {
			r.OK = false
		}

		if ref, ok := m.sar.GCPTimes[gcp.ID]; ok {
			r.HasTimes = true
			r.AzimuthTimeResidual = ar.AzimuthTime.Sub(ref.AzimuthTime)
			r.RangeTimeResidual = ar.RangeTime - ref.SlantRangeTime
			if tol.AzimuthTime > 0 && absDuration(r.AzimuthTimeResidual) > tol.AzimuthTime {
				r.OK = false
			}
			if tol.RangeTime > 0 && math.Abs(r.RangeTimeResidual) > tol.RangeTime {
				r.OK = false
			}
		}

		if !r.OK {
			report.OK = false
			m.log.Debug(ctx, "GCP forward residual out of tolerance",
				logging.String("gcp_id", gcp.ID),
				logging.Float("sample_residual", est.Sample-gcp.Col),
				logging.Float("line_residual", est.Line-gcp.Row),
				logging.Duration("azimuth_time_residual", r.AzimuthTimeResidual),
			)
		}
		report.Residuals = append(report.Residuals, r)
	}

	span.SetAttributes(
		attribute.Int("sar.gcps", len(report.Residuals)),
		attribute.Bool("sar.validation_ok", report.OK),
	)
	return report, nil
}

// InverseResidual compares one GCP with its projection onto the ground.
type InverseResidual struct {
	ID              string
	Expected        geodesy.GeoPoint
	Estimated       geodesy.GeoPoint
	SquaredDistance float64 // m², in ECEF
	OK              bool
}

// InverseReport is the result of ValidateInverse.
type InverseReport struct {
	Residuals []InverseResidual
	OK        bool
}

// ValidateInverse projects GCP image positions onto the ground at the GCP
// height and checks the squared distance to the GCP. With more than one GCP,
// even-indexed GCPs seed the projection and odd-indexed ones are tested, so
// that no GCP is its own seed.
func (m *SensorModel) ValidateInverse(ctx context.Context, tolSquaredMeters float64) (InverseReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SensorModel.ValidateInverse")
	defer span.End()

	if len(m.state.GCPs) == 0 {
		err := fmt.Errorf("ValidateInverse: %w", ErrNoGCP)
		span.RecordError(err)
		return InverseReport{}, err
	}
	seeds, tests := splitGCPs(m.state.GCPs)

	report := InverseReport{OK: true}
	for _, gcp := range tests {
		pt := ImagePoint{Sample: gcp.Col, Line: gcp.Row}
		res, err := m.projToSurface(findClosestGCP(seeds, pt), pt, constantHeight(gcp.Z))
		if err != nil {
			span.RecordError(err)
			return report, err
		}

		ref := geodesy.WorldToEcef(gcp.World())
		r := InverseResidual{
			ID:              gcp.ID,
			Expected:        gcp.World(),
			Estimated:       res.World,
			SquaredDistance: ref.SquaredDistanceTo(res.ECEF),
		}
		r.OK = r.SquaredDistance <= tolSquaredMeters && !math.IsNaN(r.SquaredDistance)
		if !r.OK {
			report.OK = false
			m.log.Debug(ctx, "GCP inverse residual out of tolerance",
				logging.String("gcp_id", gcp.ID),
				logging.Float("distance_m", math.Sqrt(r.SquaredDistance)),
			)
		}
		report.Residuals = append(report.Residuals, r)
	}

	span.SetAttributes(
		attribute.Int("sar.gcps", len(report.Residuals)),
		attribute.Bool("sar.validation_ok", report.OK),
	)
	return report, nil
}

func splitGCPs(gcps []model.GCP) (seeds, tests []model.GCP) {
	if len(gcps) < 2 {
		return gcps, gcps
	}
	for i, g := range gcps {
		if i%2 == 0 {
			seeds = append(seeds, g)
		} else {
			tests = append(tests, g)
		}
	}
	return seeds, tests
}
