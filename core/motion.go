package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// earthRotationRate in rad/s.
const earthRotationRate = 7.2921150e-5

var errPropagation = errors.New("SGP4 propagation failed")

// OrbitFromTLE propagates a two-line element set with SGP4 and returns count
// ECEF state vectors spaced by step, starting at start. start is truncated
// to the second and step must be a whole number of seconds.
func OrbitFromTLE(line1, line2 string, start time.Time, step time.Duration, count int) ([]model.OrbitRecord, error) {
	if count < 2 {
		return nil, fmt.Errorf("OrbitFromTLE: %w: %d records requested", ErrInsufficientOrbit, count)
	}
	if step < time.Second || step%time.Second != 0 {
		return nil, fmt.Errorf("OrbitFromTLE: step %s is not a positive whole number of seconds", step)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	start = start.UTC().Truncate(time.Second)

	records := make([]model.OrbitRecord, 0, count)
	for i := 0; i < count; i++ {
		t := start.Add(time.Duration(i) * step)
		pos, vel, err := propagateECEF(sat, t)
		if err != nil {
			return nil, fmt.Errorf("OrbitFromTLE: record %d at %s: %w", i, t.Format(time.RFC3339), err)
		}
		records = append(records, model.OrbitRecord{Time: t, Position: pos, Velocity: vel})
	}
	return records, nil
}

// propagateECEF returns the Earth-fixed position (m) and velocity (m/s) of
// sat at t. go-satellite works in kilometres in the inertial frame; the
// velocity is rotated with the position and corrected for Earth rotation.
func propagateECEF(sat satellite.Satellite, t time.Time) (pos, vel geodesy.Vec3, err error) {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, velECI := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)

	posECEF := satellite.ECIToECEF(posECI, gmst)
	velRot := satellite.ECIToECEF(velECI, gmst)

	const kmToM = 1000.0
	pos = geodesy.Vec3{X: posECEF.X * kmToM, Y: posECEF.Y * kmToM, Z: posECEF.Z * kmToM}
	vel = geodesy.Vec3{
		X: (velRot.X + earthRotationRate*posECEF.Y) * kmToM,
		Y: (velRot.Y - earthRotationRate*posECEF.X) * kmToM,
		Z: velRot.Z * kmToM,
	}

	if math.IsNaN(pos.X) || math.IsNaN(vel.X) || pos.Norm() < geodesy.SemiMinorAxis {
		return pos, vel, errPropagation
	}
	return pos, vel, nil
}
