package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// DopplerBracket is the zero-Doppler time of a ground point and the two
// orbit records it was derived from.
type DopplerBracket struct {
	Time   time.Time
	Index1 int
	Index2 int

	// Extrapolated is set when the Doppler never changes sign over the
	// orbit table; Index1 and Index2 are then the first and last records.
	Extrapolated bool
}

// ZeroDopplerTime finds the time at which the line of sight from the orbit to
// ground is perpendicular to the sensor velocity. offset is added when the
// instant is bracketed by two records.
func ZeroDopplerTime(orbits []model.OrbitRecord, ground geodesy.Vec3, offset time.Duration) (DopplerBracket, error) {
	if len(orbits) < 2 {
		return DopplerBracket{}, ErrInsufficientOrbit
	}

	doppler := func(i int) float64 {
		return ground.Sub(orbits[i].Position).Dot(orbits[i].Velocity)
	}

	d1 := doppler(0)
	for i := 1; i < len(orbits); i++ {
		d2 := doppler(i)
		if (d1 < 0) != (d2 < 0) {
			t1 := orbits[i-1].Time
			interp := math.Abs(d1) / (math.Abs(d1) + math.Abs(d2))
			return DopplerBracket{
				Time:   t1.Add(scaleDuration(orbits[i].Time.Sub(t1), interp)).Add(offset),
				Index1: i - 1,
				Index2: i,
			}, nil
		}
		d1 = d2
	}

	last := len(orbits) - 1
	d1 = doppler(0)
	d2 := doppler(last)
	t1 := orbits[0].Time
	return DopplerBracket{
		Time:         t1.Add(scaleDuration(orbits[last].Time.Sub(t1), -d1/(d2-d1))),
		Index1:       0,
		Index2:       last,
		Extrapolated: true,
	}, nil
}

// anchor returns the bracketing record closest to the bracket time. Index1
// wins ties.
func (b DopplerBracket) anchor(orbits []model.OrbitRecord) int {
	if absDuration(b.Time.Sub(orbits[b.Index1].Time)) > absDuration(orbits[b.Index2].Time.Sub(b.Time)) {
		return b.Index2
	}
	return b.Index1
}

// ZeroDopplerTimeLookup returns the zero-Doppler bracket of an ECEF ground
// point, including the azimuth time offset.
func (m *SensorModel) ZeroDopplerTimeLookup(ground geodesy.Vec3) (DopplerBracket, error) {
	return ZeroDopplerTime(m.sar.Orbits, ground, m.azimuthTimeOffset)
}

// ZeroDopplerLookup returns the zero-Doppler time of an ECEF ground point and
// the interpolated sensor state at that time.
func (m *SensorModel) ZeroDopplerLookup(ground geodesy.Vec3) (t time.Time, pos, vel geodesy.Vec3, err error) {
	b, err := m.ZeroDopplerTimeLookup(ground)
	if err != nil {
		return t, pos, vel, err
	}
	begin, end := m.orbit.Window(b.anchor(m.sar.Orbits))
	pos, vel = m.orbit.Interpolate(b.Time, begin, end)
	return b.Time, pos, vel, nil
}

func scaleDuration(d time.Duration, k float64) time.Duration {
	return time.Duration(math.Round(float64(d) * k))
}
