package core

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/internal/logging"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

const (
	projectionMaxIterations = 50
	projectionStep          = 10.0 // metres, finite difference step
	projectionImageTol      = 1e-2 // pixels²
	projectionHeightTol     = 1e-2 // metres
)

// HeightProvider returns the terrain height above the ellipsoid, in metres,
// at a geographic position in degrees.
type HeightProvider interface {
	HeightAboveEllipsoid(lon, lat float64) float64
}

// HeightFunc adapts a function to HeightProvider.
type HeightFunc func(lon, lat float64) float64

func (f HeightFunc) HeightAboveEllipsoid(lon, lat float64) float64 { return f(lon, lat) }

type constantHeight float64

func (h constantHeight) HeightAboveEllipsoid(float64, float64) float64 { return float64(h) }

// ProjectionResult is the outcome of an image to ground projection.
type ProjectionResult struct {
	ECEF  geodesy.Vec3
	World geodesy.GeoPoint

	Iterations int
	Converged  bool
	// Singular is set when the Jacobian could not be inverted; the result
	// holds the estimate reached before that iteration.
	Singular bool

	ImageSquareResidual float64
	HeightResidual      float64
}

// LineSampleHeightToWorld projects an image point onto the surface at a
// constant height above the ellipsoid.
func (m *SensorModel) LineSampleHeightToWorld(pt ImagePoint, height float64) (geodesy.GeoPoint, error) {
	res, err := m.ProjectToSurface(pt, constantHeight(height))
	return res.World, err
}

// LineSampleToWorld projects an image point onto the terrain given by the
// configured HeightProvider. Without one, the height of the GCP closest to pt
// is used.
func (m *SensorModel) LineSampleToWorld(pt ImagePoint) (geodesy.GeoPoint, error) {
	res, err := m.ProjectToSurface(pt, nil)
	return res.World, err
}

// ProjectToSurface runs the Newton ground projection of pt, seeded at the
// closest GCP. A nil heights falls back to the model's HeightProvider, then
// to the seed GCP height. It fails with ErrNoGCP once burst operations have
// dropped every GCP.
func (m *SensorModel) ProjectToSurface(pt ImagePoint, heights HeightProvider) (ProjectionResult, error) {
	if len(m.state.GCPs) == 0 {
		return ProjectionResult{}, fmt.Errorf("ProjectToSurface: %w", ErrNoGCP)
	}
	seed := findClosestGCP(m.state.GCPs, pt)
	if heights == nil {
		heights = m.heights
	}
	if heights == nil {
		heights = constantHeight(seed.Z)
	}
	res, err := m.projToSurface(seed, pt, heights)
	if err != nil {
		return res, err
	}
	m.metrics.ObserveProjection(res.Iterations, res.Converged, res.Singular)
	return res, nil
}

// projToSurface solves for the ECEF point whose image position is target and
// whose height matches the height provider. Each iteration linearises
// (sample, line, height) around the current estimate with finite differences.
//
// The image residual tested for convergence is the one of the image point
// before the update, while the height residual is the one after it.
func (m *SensorModel) projToSurface(seed model.GCP, target ImagePoint, heights HeightProvider) (ProjectionResult, error) {
	est := geodesy.WorldToEcef(seed.World())
	estWorld := geodesy.EcefToWorld(est)
	cur := ImagePoint{Sample: seed.Col, Line: seed.Row}

	res := ProjectionResult{
		ImageSquareResidual: squaredImageDistance(target, cur),
		HeightResidual:      heights.HeightAboveEllipsoid(estWorld.Lon, estWorld.Lat) - estWorld.Height,
	}

	var (
		jac = mat.NewDense(3, 3, nil)
		inv mat.Dense
		f   = mat.NewVecDense(3, nil)
		dR  mat.VecDense
	)

	for res.Iterations < projectionMaxIterations {
		f.SetVec(0, target.Sample-cur.Sample)
		f.SetVec(1, target.Line-cur.Line)
		f.SetVec(2, res.HeightResidual)

		for axis, step := range [3]geodesy.Vec3{
			{X: projectionStep},
			{Y: projectionStep},
			{Z: projectionStep},
		} {
			nudged := est.Add(step)
			stepWorld := geodesy.EcefToWorld(nudged)
			stepIm, _, err := m.ecefToLineSample(nudged)
			if err != nil {
				return res, err
			}
			jac.Set(0, axis, (cur.Sample-stepIm.Sample)/projectionStep)
			jac.Set(1, axis, (cur.Line-stepIm.Line)/projectionStep)
			jac.Set(2, axis, (estWorld.Height-stepWorld.Height)/projectionStep)
		}

		if err := inv.Inverse(jac); err != nil {
			m.log.Warn(context.Background(), "singular jacobian in ground projection",
				logging.Float("sample", target.Sample),
				logging.Float("line", target.Line),
				logging.Int("iteration", res.Iterations),
				logging.Err(err),
			)
			res.Singular = true
			break
		}

		dR.MulVec(&inv, f)
		est = est.Sub(geodesy.Vec3{X: dR.AtVec(0), Y: dR.AtVec(1), Z: dR.AtVec(2)})
		estWorld = geodesy.EcefToWorld(est)

		res.ImageSquareResidual = squaredImageDistance(target, cur)
		res.HeightResidual = heights.HeightAboveEllipsoid(estWorld.Lon, estWorld.Lat) - estWorld.Height

		next, _, err := m.ecefToLineSample(est)
		if err != nil {
			return res, err
		}
		cur = next
		res.Iterations++

		if res.ImageSquareResidual <= projectionImageTol && math.Abs(res.HeightResidual) <= projectionHeightTol {
			res.Converged = true
			break
		}
	}

	res.ECEF = est
	res.World = estWorld
	return res, nil
}

// findClosestGCP returns the GCP whose image position is nearest to pt. The
// first one found wins ties.
func findClosestGCP(gcps []model.GCP, pt ImagePoint) model.GCP {
	var best model.GCP
	bestDist := math.Inf(1)
	for _, g := range gcps {
		d := squaredImageDistance(pt, ImagePoint{Sample: g.Col, Line: g.Row})
		if d < bestDist {
			bestDist = d
			best = g
		}
	}
	return best
}

func squaredImageDistance(a, b ImagePoint) float64 {
	ds := a.Sample - b.Sample
	dl := a.Line - b.Line
	return ds*ds + dl*dl
}
