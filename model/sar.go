package model

import (
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
)

// OrbitRecord is one sensor state vector in ECEF coordinates.
type OrbitRecord struct {
	Time     time.Time
	Position geodesy.Vec3
	Velocity geodesy.Vec3
}

// BurstRecord describes the valid part of one burst. Lines and samples are
// inclusive image indices; AzimuthStartTime is the time of StartLine and
// AzimuthStopTime the time of EndLine.
type BurstRecord struct {
	StartLine   int
	EndLine     int
	StartSample int
	EndSample   int

	AzimuthStartTime time.Time
	AzimuthStopTime  time.Time

	// AzimuthAnxTime is the time since the ascending node crossing, in seconds.
	AzimuthAnxTime float64
}

// Lines returns the number of lines covered by the burst.
func (b BurstRecord) Lines() int {
	return b.EndLine - b.StartLine + 1
}

// CoordinateConversionRecord holds a range polynomial valid at AzimuthTime:
// out = Σ Coeffs[k]·(in - Rg0)^k.
type CoordinateConversionRecord struct {
	AzimuthTime time.Time
	Rg0         float64
	Coeffs      []float64
}

// GCPTime is the reference acquisition time of a ground control point.
type GCPTime struct {
	AzimuthTime    time.Time
	SlantRangeTime float64 // two-way, seconds
}

// SARParam gathers the acquisition geometry of a SAR product.
type SARParam struct {
	Orbits       []OrbitRecord
	BurstRecords []BurstRecord

	SlantRangeToGroundRangeRecords []CoordinateConversionRecord
	GroundRangeToSlantRangeRecords []CoordinateConversionRecord

	// GCPTimes is keyed by GCP identifier.
	GCPTimes map[string]GCPTime

	NearRangeTime       float64 // seconds
	RangeSamplingRate   float64 // Hz
	RangeResolution     float64 // metres, ground range pixel spacing
	AzimuthTimeInterval time.Duration

	RightLookingFlag   bool
	BistaticCorrection bool

	NumberOfLinesPerBurst   int
	NumberOfSamplesPerBurst int
}

// Clone returns a deep copy of p.
func (p SARParam) Clone() SARParam {
	out := p
	out.Orbits = append([]OrbitRecord(nil), p.Orbits...)
	out.BurstRecords = append([]BurstRecord(nil), p.BurstRecords...)
	out.SlantRangeToGroundRangeRecords = cloneConversionRecords(p.SlantRangeToGroundRangeRecords)
	out.GroundRangeToSlantRangeRecords = cloneConversionRecords(p.GroundRangeToSlantRangeRecords)
	if p.GCPTimes != nil {
		out.GCPTimes = make(map[string]GCPTime, len(p.GCPTimes))
		for id, t := range p.GCPTimes {
			out.GCPTimes[id] = t
		}
	}
	return out
}

func cloneConversionRecords(in []CoordinateConversionRecord) []CoordinateConversionRecord {
	if in == nil {
		return nil
	}
	out := make([]CoordinateConversionRecord, len(in))
	for i, r := range in {
		out[i] = r
		out[i].Coeffs = append([]float64(nil), r.Coeffs...)
	}
	return out
}
