package core

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
)

// AzimuthRange is the acquisition geometry of a ground point.
type AzimuthRange struct {
	AzimuthTime time.Time
	RangeTime   float64 // two-way, seconds
	SensorPos   geodesy.Vec3
	SensorVel   geodesy.Vec3
}

// WorldToLineSample projects a ground point into the image.
func (m *SensorModel) WorldToLineSample(p geodesy.GeoPoint) (ImagePoint, error) {
	m.metrics.ObserveForward()
	pt, _, err := m.ecefToLineSample(geodesy.WorldToEcef(p))
	return pt, err
}

// WorldToAzimuthRangeTime returns the zero-Doppler azimuth time, range time
// and sensor state for a ground point.
func (m *SensorModel) WorldToAzimuthRangeTime(p geodesy.GeoPoint) (AzimuthRange, error) {
	return m.ecefToAzimuthRange(geodesy.WorldToEcef(p))
}

// WorldToLineSampleYZ projects a ground point into the image and also
// returns its interferometric Y and Z coordinates: Z is the depth below the
// sensor along the sensor position vector, Y the across-track distance,
// positive on the looking side.
func (m *SensorModel) WorldToLineSampleYZ(p geodesy.GeoPoint) (pt ImagePoint, y, z float64, err error) {
	m.metrics.ObserveForward()

	ground := geodesy.WorldToEcef(p)
	pt, ar, err := m.ecefToLineSample(ground)
	if err != nil {
		return pt, 0, 0, err
	}

	s := ar.SensorPos
	normS := s.Norm()
	z = normS - ground.Dot(s)/normS

	d := s.DistanceTo(ground)
	y = math.Sqrt(math.Max(d*d-z*z, 0))

	if (ar.SensorVel.Dot(s.Cross(ground)) > 0) != m.sar.RightLookingFlag {
		y = -y
	}
	return pt, y, z, nil
}

func (m *SensorModel) ecefToAzimuthRange(ground geodesy.Vec3) (AzimuthRange, error) {
	az, pos, vel, err := m.ZeroDopplerLookup(ground)
	if err != nil {
		return AzimuthRange{}, err
	}

	if m.sar.BistaticCorrection {
		az = az.Add(bistaticCorrection(ground, pos))
		pos, vel = m.orbit.At(az)
	}

	return AzimuthRange{
		AzimuthTime: az,
		RangeTime:   m.CalculateRangeTime(ground, pos),
		SensorPos:   pos,
		SensorVel:   vel,
	}, nil
}

func (m *SensorModel) ecefToLineSample(ground geodesy.Vec3) (ImagePoint, AzimuthRange, error) {
	ar, err := m.ecefToAzimuthRange(ground)
	if err != nil {
		return ImagePoint{}, ar, err
	}

	pt := ImagePoint{Line: m.AzimuthTimeToLine(ar.AzimuthTime)}

	switch g := m.geometry.(type) {
	case grdGeometry:
		groundRange, _ := applyCoordinateConversion(ar.RangeTime*SpeedOfLight/2, ar.AzimuthTime, g.slantToGround)
		pt.Sample = groundRange / g.rangeResolution
	case slcGeometry:
		pt.Sample = (ar.RangeTime - m.state.NearRangeTime) * g.rangeSamplingRate
	default:
		return pt, ar, fmt.Errorf("%w: unknown product geometry %T", ErrInvalidSARGeometry, g)
	}
	return pt, ar, nil
}

// bistaticCorrection is the one-way travel time between sensor and ground,
// rounded to the microsecond.
func bistaticCorrection(ground, sensorPos geodesy.Vec3) time.Duration {
	us := math.Floor(1e6*sensorPos.DistanceTo(ground)/SpeedOfLight + 0.5)
	return time.Duration(us) * time.Microsecond
}
