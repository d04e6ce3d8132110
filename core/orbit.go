package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// OrbitInterpolator evaluates the sensor state at an arbitrary time from the
// orbit records in [begin, end).
type OrbitInterpolator interface {
	Interpolate(t time.Time, begin, end int) (pos, vel geodesy.Vec3)
}

// LagrangeInterpolator is a Lagrange polynomial interpolator over an orbit
// table with strictly increasing times.
type LagrangeInterpolator struct {
	records []model.OrbitRecord
	degree  int
}

var _ OrbitInterpolator = (*LagrangeInterpolator)(nil)

// NewLagrangeInterpolator validates the orbit table and returns an
// interpolator using windows of degree records.
func NewLagrangeInterpolator(records []model.OrbitRecord, degree int) (*LagrangeInterpolator, error) {
	if degree < 2 {
		degree = DefaultInterpolationDegree
	}
	for i := 1; i < len(records); i++ {
		if !records[i].Time.After(records[i-1].Time) {
			return nil, fmt.Errorf("%w: record %d at %s", ErrUnsortedOrbit, i, records[i].Time.Format(time.RFC3339Nano))
		}
	}
	return &LagrangeInterpolator{records: records, degree: degree}, nil
}

// Len returns the number of orbit records.
func (li *LagrangeInterpolator) Len() int { return len(li.records) }

// Record returns the i-th orbit record.
func (li *LagrangeInterpolator) Record(i int) model.OrbitRecord { return li.records[i] }

// Window returns the interpolation window centred on the anchor record. The
// window holds degree records, or every record when the table is shorter.
func (li *LagrangeInterpolator) Window(anchor int) (begin, end int) {
	n := len(li.records)
	if n <= li.degree {
		return 0, n
	}
	begin = anchor - li.degree/2 + 1
	if begin < 0 {
		begin = 0
	}
	end = begin + li.degree
	if end > n {
		end = n
		begin = end - li.degree
	}
	return begin, end
}

// Nearest returns the index of the record closest in time to t. The first
// record wins ties.
func (li *LagrangeInterpolator) Nearest(t time.Time) int {
	n := len(li.records)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(k int) bool { return !li.records[k].Time.Before(t) })
	switch {
	case i == 0:
		return 0
	case i == n:
		return n - 1
	}
	if absDuration(t.Sub(li.records[i-1].Time)) <= absDuration(li.records[i].Time.Sub(t)) {
		return i - 1
	}
	return i
}

// At interpolates the sensor state at t using the window around the nearest
// record.
func (li *LagrangeInterpolator) At(t time.Time) (pos, vel geodesy.Vec3) {
	begin, end := li.Window(li.Nearest(t))
	return li.Interpolate(t, begin, end)
}

// Interpolate evaluates the Lagrange polynomial through records [begin, end).
func (li *LagrangeInterpolator) Interpolate(t time.Time, begin, end int) (pos, vel geodesy.Vec3) {
	if begin < 0 {
		begin = 0
	}
	if end > len(li.records) {
		end = len(li.records)
	}
	for i := begin; i < end; i++ {
		w := 1.0
		for j := begin; j < end; j++ {
			if j == i {
				continue
			}
			num := t.Sub(li.records[j].Time).Seconds()
			den := li.records[i].Time.Sub(li.records[j].Time).Seconds()
			w *= num / den
		}
		pos = pos.Add(li.records[i].Position.Scale(w))
		vel = vel.Add(li.records[i].Velocity.Scale(w))
	}
	return pos, vel
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
