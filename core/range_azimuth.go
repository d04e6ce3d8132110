package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// CalculateRangeTime returns the two-way travel time between the sensor and
// a ground point, plus the range time offset.
func (m *SensorModel) CalculateRangeTime(ground, sensorPos geodesy.Vec3) float64 {
	return m.rangeTimeOffset + 2*sensorPos.DistanceTo(ground)/SpeedOfLight
}

// AzimuthTimeToLine converts an azimuth time to a fractional image line.
// A time in a gap between bursts is extrapolated from the burst before the
// gap, not from the first burst of the product.
func (m *SensorModel) AzimuthTimeToLine(t time.Time) float64 {
	return azimuthTimeToLine(m.state.Bursts, t, m.sar.AzimuthTimeInterval)
}

// LineToAzimuthTime converts a fractional image line to an azimuth time,
// including the azimuth time offset.
func (m *SensorModel) LineToAzimuthTime(line float64) time.Time {
	return lineToAzimuthTime(m.state.Bursts, line, m.sar.AzimuthTimeInterval).Add(m.azimuthTimeOffset)
}

// azimuthTimeToLine uses the first burst whose [start, stop) window holds t.
// Outside every window the last burst started before t is used, or the first
// burst when t precedes them all.
func azimuthTimeToLine(bursts []model.BurstRecord, t time.Time, ati time.Duration) float64 {
	b := bursts[0]
	for _, cand := range bursts {
		if t.Before(cand.AzimuthStartTime) {
			continue
		}
		b = cand
		if t.Before(cand.AzimuthStopTime) {
			break
		}
	}
	return float64(b.StartLine) + float64(t.Sub(b.AzimuthStartTime))/float64(ati)
}

// lineToAzimuthTime mirrors azimuthTimeToLine over [startLine, endLine).
func lineToAzimuthTime(bursts []model.BurstRecord, line float64, ati time.Duration) time.Time {
	b := bursts[0]
	if len(bursts) > 1 {
		for _, cand := range bursts {
			if line < float64(cand.StartLine) {
				continue
			}
			b = cand
			if line < float64(cand.EndLine) {
				break
			}
		}
	}
	return b.AzimuthStartTime.Add(scaleDuration(ati, line-float64(b.StartLine)))
}

// SlantRangeToGroundRange converts a slant range (m) at an azimuth time to a
// ground range (m).
func (m *SensorModel) SlantRangeToGroundRange(slantRange float64, t time.Time) (float64, error) {
	out, ok := applyCoordinateConversion(slantRange, t, m.sar.SlantRangeToGroundRangeRecords)
	if !ok {
		return 0, fmt.Errorf("SlantRangeToGroundRange: %w", ErrNoConversionRecord)
	}
	return out, nil
}

// GroundRangeToSlantRange converts a ground range (m) at an azimuth time to a
// slant range (m).
func (m *SensorModel) GroundRangeToSlantRange(groundRange float64, t time.Time) (float64, error) {
	out, ok := applyCoordinateConversion(groundRange, t, m.sar.GroundRangeToSlantRangeRecords)
	if !ok {
		return 0, fmt.Errorf("GroundRangeToSlantRange: %w", ErrNoConversionRecord)
	}
	return out, nil
}

// LineSampleToAzimuthRangeTime returns the azimuth time and two-way range
// time of an image point.
func (m *SensorModel) LineSampleToAzimuthRangeTime(pt ImagePoint) (time.Time, float64, error) {
	az := m.LineToAzimuthTime(pt.Line)

	switch g := m.geometry.(type) {
	case grdGeometry:
		slantRange, ok := applyCoordinateConversion(pt.Sample*g.rangeResolution, az, g.groundToSlant)
		if !ok {
			return az, 0, fmt.Errorf("LineSampleToAzimuthRangeTime: %w", ErrNoConversionRecord)
		}
		return az, m.rangeTimeOffset + 2*slantRange/SpeedOfLight, nil
	case slcGeometry:
		return az, m.rangeTimeOffset + m.state.NearRangeTime + pt.Sample/g.rangeSamplingRate, nil
	default:
		return az, 0, fmt.Errorf("LineSampleToAzimuthRangeTime: %w: unknown product geometry %T", ErrInvalidSARGeometry, g)
	}
}

// applyCoordinateConversion evaluates the range polynomial valid at t. The
// two records around t are blended linearly; before the first or after the
// last record that record is used as is. It returns false when records is
// empty.
func applyCoordinateConversion(in float64, t time.Time, records []model.CoordinateConversionRecord) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}

	next := sort.Search(len(records), func(i int) bool { return records[i].AzimuthTime.After(t) })

	var rg0 float64
	var coeffs []float64
	switch next {
	case 0:
		rg0, coeffs = records[0].Rg0, records[0].Coeffs
	case len(records):
		last := records[len(records)-1]
		rg0, coeffs = last.Rg0, last.Coeffs
	default:
		prev := records[next-1]
		succ := records[next]
		span := float64(succ.AzimuthTime.Sub(prev.AzimuthTime))
		w := float64(t.Sub(prev.AzimuthTime)) / span

		rg0 = (1-w)*prev.Rg0 + w*succ.Rg0

		n := len(prev.Coeffs)
		if len(succ.Coeffs) < n {
			n = len(succ.Coeffs)
		}
		coeffs = make([]float64, n)
		for k := 0; k < n; k++ {
			coeffs[k] = (1-w)*prev.Coeffs[k] + w*succ.Coeffs[k]
		}
	}

	x := in - rg0
	out := 0.0
	for k := len(coeffs) - 1; k >= 0; k-- {
		out = coeffs[k] + x*out
	}
	return out, true
}
