package geodesy

import "math"

// WGS84 reference ellipsoid.
const (
	SemiMajorAxis = 6378137.0
	SemiMinorAxis = 6356752.314245

	// EccentricitySquared is 1 - b²/a².
	EccentricitySquared = 1 - (SemiMinorAxis*SemiMinorAxis)/(SemiMajorAxis*SemiMajorAxis)
)

const (
	ecefMaxIterations = 10
	ecefTolerance     = 1e-15
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// GeoPoint is a geographic position: longitude and latitude in degrees,
// height above the WGS84 ellipsoid in metres.
type GeoPoint struct {
	Lon    float64
	Lat    float64
	Height float64
}

// EcefResult carries the outcome of the iterative ECEF to geographic
// conversion. Point always holds the last estimate, converged or not.
type EcefResult struct {
	Point      GeoPoint
	Iterations int
	Converged  bool
	// Stalled is set when the Newton update stopped shrinking before
	// reaching the tolerance.
	Stalled bool
}

// WorldToEcef converts a geographic point to geocentric Cartesian coordinates.
func WorldToEcef(p GeoPoint) Vec3 {
	lon := p.Lon * degToRad
	lat := p.Lat * degToRad

	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	n := SemiMajorAxis / math.Sqrt(1-EccentricitySquared*sinLat*sinLat)

	return Vec3{
		X: (n + p.Height) * cosLat * cosLon,
		Y: (n + p.Height) * cosLat * sinLon,
		Z: (n*(1-EccentricitySquared) + p.Height) * sinLat,
	}
}

// EcefToWorld converts geocentric Cartesian coordinates to a geographic point.
// See EcefToWorldIter for the convergence details.
func EcefToWorld(v Vec3) GeoPoint {
	return EcefToWorldIter(v).Point
}

// EcefToWorldIter projects v onto the ellipsoid along the normal. The foot
// point is parametrised by s, with
//
//	p_ell = p·a²/(a²+s),  z_ell = z·b²/(b²+s)
//
// and s is the root of the quartic
//
//	(a²+s)²(b²+s)² - p²a²(b²+s)² - z²b²(a²+s)² = 0
//
// refined by Newton's method for at most ten iterations. It converges once
// the update falls below 1e-15·(a²+|s|), the resolution of a²+s in float64.
// An update that stops shrinking before that ends the loop as stalled.
func EcefToWorldIter(v Vec3) EcefResult {
	const (
		a2 = SemiMajorAxis * SemiMajorAxis
		b2 = SemiMinorAxis * SemiMinorAxis
	)

	p := math.Hypot(v.X, v.Y)
	z := v.Z
	if p == 0 && z == 0 {
		return EcefResult{Point: GeoPoint{Height: -SemiMinorAxis}, Converged: true}
	}

	p2a2 := p * p * a2
	z2b2 := z * z * b2

	s := initialFootParameter(p, z)

	res := EcefResult{}
	prevStep := math.Inf(1)
	for res.Iterations < ecefMaxIterations {
		res.Iterations++

		u := a2 + s
		w := b2 + s
		pol := u*u*w*w - p2a2*w*w - z2b2*u*u
		der := 2*u*w*w + 2*u*u*w - 2*p2a2*w - 2*z2b2*u
		if der == 0 {
			break
		}

		step := pol / der
		s -= step

		absStep := math.Abs(step)
		if absStep <= ecefTolerance*(a2+math.Abs(s)) {
			res.Converged = true
			break
		}
		if absStep >= prevStep {
			res.Stalled = true
			break
		}
		prevStep = absStep
	}

	pEll := p * a2 / (a2 + s)
	zEll := z * b2 / (b2 + s)

	dp := p - pEll
	dz := z - zEll
	height := math.Sqrt(dp*dp + dz*dz)
	if s < 0 {
		height = -height
	}

	res.Point = GeoPoint{
		Lon:    math.Atan2(v.Y, v.X) * radToDeg,
		Lat:    math.Atan2(zEll*a2, pEll*b2) * radToDeg,
		Height: height,
	}
	return res
}

// initialFootParameter seeds Newton with the geocentric height scaled by the
// ellipsoid radius at the geocentric latitude (exact on the equator and the
// poles).
func initialFootParameter(p, z float64) float64 {
	r := math.Hypot(p, z)
	cosC := p / r
	sinC := z / r

	bc := SemiMinorAxis * cosC
	as := SemiMajorAxis * sinC
	radius := SemiMajorAxis * SemiMinorAxis / math.Sqrt(bc*bc+as*as)

	return (r - radius) * radius
}
