package model

import "time"

// GeometryKind names an entry of ImageMetadata.Geometry.
type GeometryKind string

const (
	GeometrySAR GeometryKind = "SAR" // SARParam
	GeometryGCP GeometryKind = "GCP" // GCPParam
)

// ImageMetadata is the product-level metadata a sensor model is built from.
type ImageMetadata struct {
	ProductType string
	Mission     string

	FirstLineTime time.Time
	LastLineTime  time.Time

	Geometry map[GeometryKind]any
}

// SAR returns the SAR geometry entry, accepting either a value or a pointer.
// The second result reports whether an entry of a supported type exists.
func (m *ImageMetadata) SAR() (SARParam, bool) {
	if m == nil {
		return SARParam{}, false
	}
	switch v := m.Geometry[GeometrySAR].(type) {
	case SARParam:
		return v, true
	case *SARParam:
		if v == nil {
			return SARParam{}, false
		}
		return *v, true
	default:
		return SARParam{}, false
	}
}

// GCPs returns the GCP geometry entry, or an empty set.
func (m *ImageMetadata) GCPs() GCPParam {
	if m == nil {
		return GCPParam{}
	}
	switch v := m.Geometry[GeometryGCP].(type) {
	case GCPParam:
		return v
	case *GCPParam:
		if v != nil {
			return *v
		}
	}
	return GCPParam{}
}

// SetGeometry stores an entry, allocating the map on first use.
func (m *ImageMetadata) SetGeometry(kind GeometryKind, v any) {
	if m.Geometry == nil {
		m.Geometry = make(map[GeometryKind]any)
	}
	m.Geometry[kind] = v
}

// Clone returns a copy of m with SAR and GCP entries deep-copied.
func (m *ImageMetadata) Clone() *ImageMetadata {
	if m == nil {
		return nil
	}
	out := *m
	if m.Geometry != nil {
		out.Geometry = make(map[GeometryKind]any, len(m.Geometry))
		for k, v := range m.Geometry {
			switch g := v.(type) {
			case SARParam:
				out.Geometry[k] = g.Clone()
			case *SARParam:
				if g != nil {
					c := g.Clone()
					out.Geometry[k] = &c
				}
			case GCPParam:
				out.Geometry[k] = g.Clone()
			case *GCPParam:
				if g != nil {
					c := g.Clone()
					out.Geometry[k] = &c
				}
			default:
				out.Geometry[k] = v
			}
		}
	}
	return &out
}
