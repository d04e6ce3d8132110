package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

// internal JSON shapes, unexported so the model types stay free of tags.
type imageMetadataJSON struct {
	ProductType   string    `json:"product_type"`
	Mission       string    `json:"mission,omitempty"`
	FirstLineTime time.Time `json:"first_line_time,omitzero"`
	LastLineTime  time.Time `json:"last_line_time,omitzero"`
	SAR           *sarJSON  `json:"sar,omitempty"`
	GCP           *gcpsJSON `json:"gcp,omitempty"`
}

type sarJSON struct {
	Orbits                         []orbitJSON            `json:"orbits"`
	BurstRecords                   []burstJSON            `json:"burst_records"`
	SlantRangeToGroundRangeRecords []conversionJSON       `json:"slant_range_to_ground_range,omitempty"`
	GroundRangeToSlantRangeRecords []conversionJSON       `json:"ground_range_to_slant_range,omitempty"`
	GCPTimes                       map[string]gcpTimeJSON `json:"gcp_times,omitempty"`
	NearRangeTime                  float64                `json:"near_range_time"`
	RangeSamplingRate              float64                `json:"range_sampling_rate"`
	RangeResolution                float64                `json:"range_resolution,omitempty"`
	AzimuthTimeInterval            float64                `json:"azimuth_time_interval"`   // seconds
	RightLookingFlag               *bool                  `json:"right_looking,omitempty"` // optional; defaults to true
	BistaticCorrection             bool                   `json:"bistatic_correction,omitempty"`
	NumberOfLinesPerBurst          int                    `json:"lines_per_burst,omitempty"`
	NumberOfSamplesPerBurst        int                    `json:"samples_per_burst,omitempty"`
}

type orbitJSON struct {
	Time     time.Time  `json:"time"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

type burstJSON struct {
	StartLine        int       `json:"start_line"`
	EndLine          int       `json:"end_line"`
	StartSample      int       `json:"start_sample"`
	EndSample        int       `json:"end_sample"`
	AzimuthStartTime time.Time `json:"azimuth_start_time"`
	AzimuthStopTime  time.Time `json:"azimuth_stop_time"`
	AzimuthAnxTime   float64   `json:"azimuth_anx_time"`
}

type conversionJSON struct {
	AzimuthTime time.Time `json:"azimuth_time"`
	Rg0         float64   `json:"rg0"`
	Coeffs      []float64 `json:"coeffs"`
}

type gcpTimeJSON struct {
	AzimuthTime    time.Time `json:"azimuth_time"`
	SlantRangeTime float64   `json:"slant_range_time"`
}

type gcpsJSON struct {
	Projection string    `json:"projection,omitempty"`
	GCPs       []gcpJSON `json:"gcps"`
}

type gcpJSON struct {
	ID   string  `json:"id"`
	Info string  `json:"info,omitempty"`
	Row  float64 `json:"row"`
	Col  float64 `json:"col"`
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	H    float64 `json:"height"`
}

// LoadImageMetadata decodes product metadata from JSON. Times are RFC 3339,
// vectors are [x, y, z] in metres and metres per second, and the azimuth
// time interval is in seconds.
//
// It fails on JSON errors and on records that cannot describe a product
// (empty GCP ids, non-positive azimuth interval). Geometric consistency is
// left to NewSensorModel.
func LoadImageMetadata(r io.Reader) (*model.ImageMetadata, error) {
	var payload imageMetadataJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadImageMetadata: decode failed: %w", err)
	}

	imd := &model.ImageMetadata{
		ProductType:   payload.ProductType,
		Mission:       payload.Mission,
		FirstLineTime: payload.FirstLineTime,
		LastLineTime:  payload.LastLineTime,
	}

	if payload.SAR != nil {
		sar, err := payload.SAR.toModel()
		if err != nil {
			return nil, fmt.Errorf("LoadImageMetadata: %w", err)
		}
		imd.SetGeometry(model.GeometrySAR, sar)
	}

	if payload.GCP != nil {
		gcps := model.GCPParam{
			Projection: payload.GCP.Projection,
			GCPs:       make([]model.GCP, 0, len(payload.GCP.GCPs)),
		}
		for i, g := range payload.GCP.GCPs {
			if g.ID == "" {
				return nil, fmt.Errorf("LoadImageMetadata: GCP %d has an empty id", i)
			}
			gcps.GCPs = append(gcps.GCPs, model.GCP{
				ID: g.ID, Info: g.Info,
				Row: g.Row, Col: g.Col,
				X: g.Lon, Y: g.Lat, Z: g.H,
			})
		}
		imd.SetGeometry(model.GeometryGCP, gcps)
	}

	return imd, nil
}

func (s *sarJSON) toModel() (model.SARParam, error) {
	if s.AzimuthTimeInterval <= 0 {
		return model.SARParam{}, fmt.Errorf("%w: azimuth_time_interval must be positive, got %v", ErrInvalidSARGeometry, s.AzimuthTimeInterval)
	}

	sar := model.SARParam{
		Orbits:                  make([]model.OrbitRecord, 0, len(s.Orbits)),
		BurstRecords:            make([]model.BurstRecord, 0, len(s.BurstRecords)),
		NearRangeTime:           s.NearRangeTime,
		RangeSamplingRate:       s.RangeSamplingRate,
		RangeResolution:         s.RangeResolution,
		AzimuthTimeInterval:     time.Duration(math.Round(s.AzimuthTimeInterval * float64(time.Second))),
		RightLookingFlag:        true,
		BistaticCorrection:      s.BistaticCorrection,
		NumberOfLinesPerBurst:   s.NumberOfLinesPerBurst,
		NumberOfSamplesPerBurst: s.NumberOfSamplesPerBurst,
	}
	if s.RightLookingFlag != nil {
		sar.RightLookingFlag = *s.RightLookingFlag
	}

	for _, o := range s.Orbits {
		sar.Orbits = append(sar.Orbits, model.OrbitRecord{
			Time:     o.Time,
			Position: vecFromJSON(o.Position),
			Velocity: vecFromJSON(o.Velocity),
		})
	}
	for _, b := range s.BurstRecords {
		sar.BurstRecords = append(sar.BurstRecords, model.BurstRecord(b))
	}
	sar.SlantRangeToGroundRangeRecords = conversionsFromJSON(s.SlantRangeToGroundRangeRecords)
	sar.GroundRangeToSlantRangeRecords = conversionsFromJSON(s.GroundRangeToSlantRangeRecords)

	if len(s.GCPTimes) > 0 {
		sar.GCPTimes = make(map[string]model.GCPTime, len(s.GCPTimes))
		for id, t := range s.GCPTimes {
			sar.GCPTimes[id] = model.GCPTime(t)
		}
	}
	return sar, nil
}

// WriteImageMetadata encodes the SAR and GCP geometry of imd as JSON in the
// format read by LoadImageMetadata. Other geometry entries are not written.
func WriteImageMetadata(w io.Writer, imd *model.ImageMetadata) error {
	if imd == nil {
		return fmt.Errorf("WriteImageMetadata: metadata is nil")
	}

	payload := imageMetadataJSON{
		ProductType:   imd.ProductType,
		Mission:       imd.Mission,
		FirstLineTime: imd.FirstLineTime,
		LastLineTime:  imd.LastLineTime,
	}
	if sar, ok := imd.SAR(); ok {
		payload.SAR = sarToJSON(sar)
	}
	if _, ok := imd.Geometry[model.GeometryGCP]; ok {
		gcps := imd.GCPs()
		payload.GCP = &gcpsJSON{Projection: gcps.Projection, GCPs: make([]gcpJSON, 0, len(gcps.GCPs))}
		for _, g := range gcps.GCPs {
			payload.GCP.GCPs = append(payload.GCP.GCPs, gcpJSON{
				ID: g.ID, Info: g.Info,
				Row: g.Row, Col: g.Col,
				Lon: g.X, Lat: g.Y, H: g.Z,
			})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("WriteImageMetadata: encode failed: %w", err)
	}
	return nil
}

func sarToJSON(sar model.SARParam) *sarJSON {
	right := sar.RightLookingFlag
	out := &sarJSON{
		Orbits:                         make([]orbitJSON, 0, len(sar.Orbits)),
		BurstRecords:                   make([]burstJSON, 0, len(sar.BurstRecords)),
		SlantRangeToGroundRangeRecords: conversionsToJSON(sar.SlantRangeToGroundRangeRecords),
		GroundRangeToSlantRangeRecords: conversionsToJSON(sar.GroundRangeToSlantRangeRecords),
		NearRangeTime:                  sar.NearRangeTime,
		RangeSamplingRate:              sar.RangeSamplingRate,
		RangeResolution:                sar.RangeResolution,
		AzimuthTimeInterval:            sar.AzimuthTimeInterval.Seconds(),
		RightLookingFlag:               &right,
		BistaticCorrection:             sar.BistaticCorrection,
		NumberOfLinesPerBurst:          sar.NumberOfLinesPerBurst,
		NumberOfSamplesPerBurst:        sar.NumberOfSamplesPerBurst,
	}
	for _, o := range sar.Orbits {
		out.Orbits = append(out.Orbits, orbitJSON{
			Time:     o.Time,
			Position: [3]float64{o.Position.X, o.Position.Y, o.Position.Z},
			Velocity: [3]float64{o.Velocity.X, o.Velocity.Y, o.Velocity.Z},
		})
	}
	for _, b := range sar.BurstRecords {
		out.BurstRecords = append(out.BurstRecords, burstJSON(b))
	}
	if len(sar.GCPTimes) > 0 {
		out.GCPTimes = make(map[string]gcpTimeJSON, len(sar.GCPTimes))
		for id, t := range sar.GCPTimes {
			out.GCPTimes[id] = gcpTimeJSON(t)
		}
	}
	return out
}

func vecFromJSON(v [3]float64) geodesy.Vec3 {
	return geodesy.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func conversionsFromJSON(in []conversionJSON) []model.CoordinateConversionRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.CoordinateConversionRecord, 0, len(in))
	for _, c := range in {
		out = append(out, model.CoordinateConversionRecord{
			AzimuthTime: c.AzimuthTime,
			Rg0:         c.Rg0,
			Coeffs:      append([]float64(nil), c.Coeffs...),
		})
	}
	return out
}

func conversionsToJSON(in []model.CoordinateConversionRecord) []conversionJSON {
	if len(in) == 0 {
		return nil
	}
	out := make([]conversionJSON, 0, len(in))
	for _, c := range in {
		out = append(out, conversionJSON{AzimuthTime: c.AzimuthTime, Rg0: c.Rg0, Coeffs: c.Coeffs})
	}
	return out
}
