package core

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/internal/logging"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// SpeedOfLight in m/s.
const SpeedOfLight = 299792458.0

// ImagePoint is a position in the image: Sample is the column, Line the row.
type ImagePoint struct {
	Sample float64
	Line   float64
}

// SensorModel converts between image coordinates and ground coordinates for
// a SAR product.
//
// Geolocation methods only read the model and may run concurrently. Burst
// operations (Deburst, BurstExtraction, DeburstAndConcatenate) rewrite the
// segmentation state and must not overlap with any other call.
type SensorModel struct {
	productType string
	geometry    productGeometry

	// sar holds the immutable acquisition geometry. Bursts and near range
	// time live in state.
	sar   model.SARParam
	state SegmentationState

	gcpProjection string

	orbit  *LagrangeInterpolator
	degree int

	azimuthTimeOffset time.Duration
	rangeTimeOffset   float64
	rangeCalibration  bool

	log     logging.Logger
	metrics MetricsRecorder
	heights HeightProvider
}

// NewSensorModel builds a sensor model and calibrates its time offsets from
// the GCPs that carry reference times. The inputs are copied.
func NewSensorModel(ctx context.Context, productType string, sar model.SARParam, gcps model.GCPParam, opts ...Option) (*SensorModel, error) {
	if len(gcps.GCPs) == 0 {
		return nil, ErrNoGCP
	}
	if len(sar.BurstRecords) == 0 {
		return nil, ErrNoBurstRecord
	}
	if sar.AzimuthTimeInterval <= 0 {
		return nil, fmt.Errorf("%w: azimuth time interval must be positive, got %s", ErrInvalidSARGeometry, sar.AzimuthTimeInterval)
	}

	geometry, err := newProductGeometry(productType, sar)
	if err != nil {
		return nil, err
	}

	m := &SensorModel{
		productType:   productType,
		geometry:      geometry,
		sar:           sar.Clone(),
		gcpProjection: gcps.Projection,
		degree:        DefaultInterpolationDegree,
		log:           logging.Noop(),
		metrics:       noopMetrics{},
	}
	if l := logging.LoggerFromContext(ctx); l != nil {
		m.log = l
	}
	for _, opt := range opts {
		opt(m)
	}

	m.orbit, err = NewLagrangeInterpolator(m.sar.Orbits, m.degree)
	if err != nil {
		return nil, fmt.Errorf("NewSensorModel: %w", err)
	}

	bursts := m.sar.BurstRecords
	m.sar.BurstRecords = nil
	m.state = SegmentationState{
		Bursts:        bursts,
		GCPs:          append([]model.GCP(nil), gcps.GCPs...),
		FirstLineTime: bursts[0].AzimuthStartTime,
		LastLineTime:  bursts[len(bursts)-1].AzimuthStopTime,
		NearRangeTime: sar.NearRangeTime,
	}

	if err := m.OptimizeTimeOffsetsFromGCPs(ctx); err != nil {
		return nil, fmt.Errorf("NewSensorModel: %w", err)
	}
	m.metrics.SetSegmentation(len(m.state.Bursts), len(m.state.GCPs))

	return m, nil
}

// NewSensorModelFromMetadata builds a sensor model from the SAR and GCP
// geometry entries of imd.
func NewSensorModelFromMetadata(ctx context.Context, imd *model.ImageMetadata, opts ...Option) (*SensorModel, error) {
	if imd == nil {
		return nil, ErrMissingSARGeometry
	}
	if _, ok := imd.Geometry[model.GeometrySAR]; !ok {
		return nil, ErrMissingSARGeometry
	}
	sar, ok := imd.SAR()
	if !ok {
		return nil, fmt.Errorf("%w: entry %q has type %T", ErrInvalidSARGeometry, model.GeometrySAR, imd.Geometry[model.GeometrySAR])
	}

	m, err := NewSensorModel(ctx, imd.ProductType, sar, imd.GCPs(), opts...)
	if err != nil {
		return nil, err
	}
	if !imd.FirstLineTime.IsZero() {
		m.state.FirstLineTime = imd.FirstLineTime
	}
	if !imd.LastLineTime.IsZero() {
		m.state.LastLineTime = imd.LastLineTime
	}
	return m, nil
}

// UpdateImageMetadata writes the current SAR geometry, GCPs and line time
// window back into imd.
func (m *SensorModel) UpdateImageMetadata(imd *model.ImageMetadata) {
	if imd == nil {
		return
	}
	state := m.state.Clone()

	sar := m.sar.Clone()
	sar.BurstRecords = state.Bursts
	sar.NearRangeTime = state.NearRangeTime

	imd.SetGeometry(model.GeometrySAR, sar)
	imd.SetGeometry(model.GeometryGCP, model.GCPParam{
		Projection: m.gcpProjection,
		GCPs:       state.GCPs,
	})
	imd.FirstLineTime = state.FirstLineTime
	imd.LastLineTime = state.LastLineTime
}

// ProductType returns the product type the model was built for.
func (m *SensorModel) ProductType() string { return m.productType }

// IsGRD reports whether samples are in ground range geometry.
func (m *SensorModel) IsGRD() bool {
	_, ok := m.geometry.(grdGeometry)
	return ok
}

// AzimuthTimeOffset returns the calibrated azimuth time offset.
func (m *SensorModel) AzimuthTimeOffset() time.Duration { return m.azimuthTimeOffset }

// RangeTimeOffset returns the range time offset, in seconds.
func (m *SensorModel) RangeTimeOffset() float64 { return m.rangeTimeOffset }

// State returns a copy of the segmentation state.
func (m *SensorModel) State() SegmentationState { return m.state.Clone() }

// GCPs returns a copy of the current GCPs.
func (m *SensorModel) GCPs() []model.GCP { return append([]model.GCP(nil), m.state.GCPs...) }

// Bursts returns a copy of the current burst records.
func (m *SensorModel) Bursts() []model.BurstRecord {
	return append([]model.BurstRecord(nil), m.state.Bursts...)
}

// SensorState interpolates the sensor position and velocity at t.
func (m *SensorModel) SensorState(t time.Time) (pos, vel geodesy.Vec3, err error) {
	if m.orbit.Len() < 2 {
		return pos, vel, ErrInsufficientOrbit
	}
	pos, vel = m.orbit.At(t)
	return pos, vel, nil
}
