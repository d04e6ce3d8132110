package core

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// The synthetic acquisition: a circular polar orbit in the x-z plane crossing
// the equator northbound at testCentreTime, looking right (east).
var testCentreTime = time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC)

const (
	testOrbitRadius = geodesy.SemiMajorAxis + 700e3
	testGM          = 3.986004418e14
	testOrbitStep   = 10 * time.Second
	testATI         = 2 * time.Millisecond
	testRangeRate   = 2e7
	testNearRange   = 4.7e-3
)

func testOmega() float64 {
	return math.Sqrt(testGM / (testOrbitRadius * testOrbitRadius * testOrbitRadius))
}

// circularState is the exact sensor state dt seconds after testCentreTime.
func circularState(dt float64) (pos, vel geodesy.Vec3) {
	w := testOmega()
	sin, cos := math.Sincos(w * dt)
	pos = geodesy.Vec3{X: testOrbitRadius * cos, Z: testOrbitRadius * sin}
	vel = geodesy.Vec3{X: -testOrbitRadius * w * sin, Z: testOrbitRadius * w * cos}
	return pos, vel
}

// circularOrbit samples n records centred on testCentreTime.
func circularOrbit(n int) []model.OrbitRecord {
	out := make([]model.OrbitRecord, n)
	for i := range out {
		offset := time.Duration(i-(n-1)/2) * testOrbitStep
		pos, vel := circularState(offset.Seconds())
		out[i] = model.OrbitRecord{Time: testCentreTime.Add(offset), Position: pos, Velocity: vel}
	}
	return out
}

// analyticZeroDopplerTime is the instant the line of sight to ground is
// perpendicular to the velocity: the orbit angle equals atan2(Gz, Gx).
func analyticZeroDopplerTime(ground geodesy.Vec3) time.Time {
	theta := math.Atan2(ground.Z, ground.X)
	return testCentreTime.Add(time.Duration(theta / testOmega() * float64(time.Second)))
}

// slcParam is a single-burst SLC acquisition covering ±4 s around the
// equator crossing.
func slcParam() model.SARParam {
	start := testCentreTime.Add(-4 * time.Second)
	return model.SARParam{
		Orbits: circularOrbit(21),
		BurstRecords: []model.BurstRecord{{
			StartLine:        0,
			EndLine:          3999,
			StartSample:      0,
			EndSample:        19999,
			AzimuthStartTime: start,
			AzimuthStopTime:  start.Add(3999 * testATI),
		}},
		NearRangeTime:       testNearRange,
		RangeSamplingRate:   testRangeRate,
		RangeResolution:     10,
		AzimuthTimeInterval: testATI,
		RightLookingFlag:    true,
	}
}

// grdParam is slcParam in ground range geometry.
func grdParam() model.SARParam {
	sar := slcParam()
	sar.SlantRangeToGroundRangeRecords = []model.CoordinateConversionRecord{
		{AzimuthTime: testCentreTime.Add(-5 * time.Second), Rg0: 7.0e5, Coeffs: []float64{1000, 1.5, 1e-7}},
		{AzimuthTime: testCentreTime.Add(5 * time.Second), Rg0: 7.0e5, Coeffs: []float64{1010, 1.5, 1e-7}},
	}
	sar.GroundRangeToSlantRangeRecords = []model.CoordinateConversionRecord{
		{AzimuthTime: testCentreTime.Add(-5 * time.Second), Rg0: 0, Coeffs: []float64{7.0e5, 0.6}},
	}
	return sar
}

// testGroundGrid spans the image footprint.
func testGroundGrid() []geodesy.GeoPoint {
	var out []geodesy.GeoPoint
	for _, lat := range []float64{-0.15, 0, 0.15} {
		for _, lon := range []float64{2.2, 3, 3.8} {
			out = append(out, geodesy.GeoPoint{Lon: lon, Lat: lat, Height: 50 * (lat + 0.15) / 0.15})
		}
	}
	return out
}

// gcpsFor forward-projects ground points with a seed model, yielding GCPs
// that are exactly consistent with the geometry.
func gcpsFor(t *testing.T, productType string, sar model.SARParam, points []geodesy.GeoPoint) []model.GCP {
	t.Helper()

	seed := model.GCPParam{GCPs: []model.GCP{{ID: "seed", X: 3}}}
	ref, err := NewSensorModel(context.Background(), productType, sar, seed)
	if err != nil {
		t.Fatalf("NewSensorModel(reference): %v", err)
	}

	gcps := make([]model.GCP, 0, len(points))
	for i, p := range points {
		pt, err := ref.WorldToLineSample(p)
		if err != nil {
			t.Fatalf("WorldToLineSample(%+v): %v", p, err)
		}
		gcps = append(gcps, model.GCP{
			ID:  fmt.Sprintf("%d", i+1),
			Row: pt.Line,
			Col: pt.Sample,
			X:   p.Lon,
			Y:   p.Lat,
			Z:   p.Height,
		})
	}
	return gcps
}

func newTestModel(t *testing.T, productType string, sar model.SARParam, opts ...Option) *SensorModel {
	t.Helper()
	gcps := gcpsFor(t, productType, sar, testGroundGrid())
	m, err := NewSensorModel(context.Background(), productType, sar, model.GCPParam{Projection: "EPSG:4326", GCPs: gcps}, opts...)
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}
	return m
}
