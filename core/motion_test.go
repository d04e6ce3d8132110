package core

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// ISS sample TLE.
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

var issEpoch = time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)

// We don't assert exact orbital values (those belong to go-satellite); we
// check the state vectors are physically consistent.
func TestOrbitFromTLEProducesConsistentStateVectors(t *testing.T) {
	orbits, err := OrbitFromTLE(issTLE1, issTLE2, issEpoch.Add(300*time.Millisecond), 10*time.Second, 31)
	if err != nil {
		t.Fatalf("OrbitFromTLE: %v", err)
	}
	if len(orbits) != 31 {
		t.Fatalf("got %d records, want 31", len(orbits))
	}
	if !orbits[0].Time.Equal(issEpoch) {
		t.Fatalf("first record at %s, want truncated start %s", orbits[0].Time, issEpoch)
	}

	for i, rec := range orbits {
		alt := rec.Position.Norm() - geodesy.SemiMajorAxis
		if alt < 300e3 || alt > 500e3 {
			t.Fatalf("record %d altitude %.0f m outside ISS range", i, alt)
		}
		speed := rec.Velocity.Norm()
		if speed < 7000 || speed > 8000 {
			t.Fatalf("record %d ground-relative speed %.1f m/s implausible", i, speed)
		}
		if i > 0 && rec.Time.Sub(orbits[i-1].Time) != 10*time.Second {
			t.Fatalf("record %d spacing %s", i, rec.Time.Sub(orbits[i-1].Time))
		}
	}

	// Finite differences of positions agree with the reported velocity.
	mid := orbits[15]
	diff := orbits[16].Position.Sub(orbits[14].Position).Scale(1.0 / 20)
	if d := diff.DistanceTo(mid.Velocity); d > 5 {
		t.Fatalf("velocity differs from finite difference by %.2f m/s", d)
	}
}

func TestOrbitFromTLERejectsBadSampling(t *testing.T) {
	if _, err := OrbitFromTLE(issTLE1, issTLE2, issEpoch, 1500*time.Millisecond, 10); err == nil {
		t.Fatalf("expected error for fractional step")
	}
	if _, err := OrbitFromTLE(issTLE1, issTLE2, issEpoch, time.Second, 1); err == nil {
		t.Fatalf("expected error for a single record")
	}
}

func TestSensorModelOnTLEOrbitRoundTrip(t *testing.T) {
	orbits, err := OrbitFromTLE(issTLE1, issTLE2, issEpoch, 5*time.Second, 41)
	if err != nil {
		t.Fatalf("OrbitFromTLE: %v", err)
	}

	// Ground target 250 km to the right of the sub-satellite point at the
	// middle of the orbit.
	mid := orbits[20]
	right := mid.Velocity.Cross(mid.Position)
	right = right.Scale(1 / right.Norm())
	nadir := geodesy.EcefToWorld(mid.Position)
	nadir.Height = 0
	target := geodesy.EcefToWorld(geodesy.WorldToEcef(nadir).Add(right.Scale(250e3)))
	target.Height = 120

	sar := model.SARParam{
		Orbits: orbits,
		BurstRecords: []model.BurstRecord{{
			StartLine:        0,
			EndLine:          9999,
			StartSample:      0,
			EndSample:        29999,
			AzimuthStartTime: mid.Time.Add(-10 * time.Second),
			AzimuthStopTime:  mid.Time.Add(10 * time.Second),
		}},
		NearRangeTime:       2.0e-3,
		RangeSamplingRate:   1e7,
		AzimuthTimeInterval: 2 * time.Millisecond,
		RightLookingFlag:    true,
	}
	gcps := model.GCPParam{GCPs: []model.GCP{{ID: "target", X: target.Lon, Y: target.Lat, Z: target.Height}}}

	ref, err := NewSensorModel(context.Background(), "SLC", sar, gcps)
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}
	pt, y, _, err := ref.WorldToLineSampleYZ(target)
	if err != nil {
		t.Fatalf("WorldToLineSampleYZ: %v", err)
	}
	if y <= 0 {
		t.Fatalf("target on the right-looking side should have positive Y, got %v", y)
	}
	if math.Abs(pt.Line-5000) > 200 {
		t.Fatalf("target line %.1f, expected near the middle of the burst", pt.Line)
	}

	gcps.GCPs[0].Row = pt.Line
	gcps.GCPs[0].Col = pt.Sample
	m, err := NewSensorModel(context.Background(), "SLC", sar, gcps)
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}

	query := ImagePoint{Sample: pt.Sample + 300, Line: pt.Line - 150}
	res, err := m.ProjectToSurface(query, constantHeight(target.Height))
	if err != nil {
		t.Fatalf("ProjectToSurface: %v", err)
	}
	if !res.Converged {
		t.Fatalf("projection did not converge: %+v", res)
	}
	back, err := m.WorldToLineSample(res.World)
	if err != nil {
		t.Fatalf("WorldToLineSample: %v", err)
	}
	if squaredImageDistance(back, query) > 1e-2 {
		t.Fatalf("round trip image point %+v, want %+v", back, query)
	}
}
