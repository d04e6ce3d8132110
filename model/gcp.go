package model

import "github.com/signalsfoundry/sar-sensor-model/geodesy"

// GCP is a ground control point tying an image position (Col = sample,
// Row = line) to a geographic position (X = lon, Y = lat, Z = height).
type GCP struct {
	ID   string
	Info string

	Row float64
	Col float64

	X float64
	Y float64
	Z float64
}

// World returns the geographic position of the GCP.
func (g GCP) World() geodesy.GeoPoint {
	return geodesy.GeoPoint{Lon: g.X, Lat: g.Y, Height: g.Z}
}

// GCPParam is the set of GCPs attached to an image.
type GCPParam struct {
	Projection string
	GCPs       []GCP
}

// Clone returns a deep copy of p.
func (p GCPParam) Clone() GCPParam {
	return GCPParam{
		Projection: p.Projection,
		GCPs:       append([]GCP(nil), p.GCPs...),
	}
}
