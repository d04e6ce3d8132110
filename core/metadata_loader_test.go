package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/sar-sensor-model/geodesy"
	"github.com/signalsfoundry/sar-sensor-model/model"
)

const minimalProductJSON = `
{
  "product_type": "SLC",
  "mission": "SENTINEL-1A",
  "first_line_time": "2020-01-01T00:00:01Z",
  "sar": {
    "orbits": [
      { "time": "2020-01-01T00:00:00Z",  "position": [7000000, 0, 0],     "velocity": [0, 7500, 0] },
      { "time": "2020-01-01T00:00:10Z",  "position": [6999625, 75000, 0], "velocity": [-75, 7499, 0] }
    ],
    "burst_records": [
      {
        "start_line": 0, "end_line": 4999, "start_sample": 0, "end_sample": 9999,
        "azimuth_start_time": "2020-01-01T00:00:00Z",
        "azimuth_stop_time": "2020-01-01T00:00:10Z",
        "azimuth_anx_time": 1234.5
      }
    ],
    "near_range_time": 0.0047,
    "range_sampling_rate": 64345238.0,
    "azimuth_time_interval": 0.002
  },
  "gcp": {
    "projection": "EPSG:4326",
    "gcps": [
      { "id": "1", "row": 10, "col": 20, "lon": 0.5, "lat": 0.1, "height": 12.5 }
    ]
  }
}
`

func TestLoadImageMetadata(t *testing.T) {
	imd, err := LoadImageMetadata(strings.NewReader(minimalProductJSON))
	if err != nil {
		t.Fatalf("LoadImageMetadata returned error: %v", err)
	}
	if imd.ProductType != "SLC" || imd.Mission != "SENTINEL-1A" {
		t.Fatalf("unexpected product %q / %q", imd.ProductType, imd.Mission)
	}
	if want := time.Date(2020, 1, 1, 0, 0, 1, 0, time.UTC); !imd.FirstLineTime.Equal(want) {
		t.Fatalf("first line time = %s, want %s", imd.FirstLineTime, want)
	}
	if !imd.LastLineTime.IsZero() {
		t.Fatalf("last line time should be unset, got %s", imd.LastLineTime)
	}

	sar, ok := imd.SAR()
	if !ok {
		t.Fatalf("SAR geometry missing")
	}
	if sar.AzimuthTimeInterval != 2*time.Millisecond {
		t.Fatalf("azimuth time interval = %s, want 2ms", sar.AzimuthTimeInterval)
	}
	if !sar.RightLookingFlag {
		t.Fatalf("right looking should default to true")
	}
	if len(sar.Orbits) != 2 || sar.Orbits[1].Velocity != (geodesy.Vec3{X: -75, Y: 7499}) {
		t.Fatalf("unexpected orbits %+v", sar.Orbits)
	}
	if b := sar.BurstRecords[0]; b.EndLine != 4999 || b.AzimuthAnxTime != 1234.5 {
		t.Fatalf("unexpected burst record %+v", b)
	}

	gcps := imd.GCPs()
	if gcps.Projection != "EPSG:4326" || len(gcps.GCPs) != 1 || gcps.GCPs[0].Z != 12.5 {
		t.Fatalf("unexpected GCPs %+v", gcps)
	}

	m, err := NewSensorModelFromMetadata(context.Background(), imd)
	if err != nil {
		t.Fatalf("NewSensorModelFromMetadata: %v", err)
	}
	if !m.State().FirstLineTime.Equal(imd.FirstLineTime) {
		t.Fatalf("first line time not taken from metadata")
	}
}

func TestImageMetadataJSONRoundTrip(t *testing.T) {
	sar := grdParam()
	sar.RightLookingFlag = false
	sar.BistaticCorrection = true
	sar.NumberOfLinesPerBurst = 1500
	sar.NumberOfSamplesPerBurst = 20100
	sar.GCPTimes = map[string]model.GCPTime{
		"1": {AzimuthTime: testCentreTime.Add(1234567 * time.Nanosecond), SlantRangeTime: 5.2e-3},
	}

	imd := &model.ImageMetadata{ProductType: "GRD", Mission: "SENTINEL-1B", FirstLineTime: testCentreTime}
	imd.SetGeometry(model.GeometrySAR, sar)
	imd.SetGeometry(model.GeometryGCP, model.GCPParam{
		Projection: "EPSG:4326",
		GCPs: []model.GCP{
			{ID: "1", Info: "corner", Row: 1.25, Col: 2.5, X: 3.1, Y: -0.05, Z: 42},
			{ID: "2", Row: 3999, Col: 19999, X: 3.9, Y: 0.15, Z: -7.5},
		},
	})

	var buf bytes.Buffer
	if err := WriteImageMetadata(&buf, imd); err != nil {
		t.Fatalf("WriteImageMetadata: %v", err)
	}
	loaded, err := LoadImageMetadata(&buf)
	if err != nil {
		t.Fatalf("LoadImageMetadata: %v", err)
	}
	if diff := cmp.Diff(imd, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadImageMetadataRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{name: "not JSON", payload: `{"product_type": `},
		{name: "unknown field", payload: `{"product_type": "SLC", "polarisation": "VV"}`},
		{name: "zero azimuth interval", payload: `{"sar": {"orbits": [], "burst_records": [], "azimuth_time_interval": 0}}`, want: ErrInvalidSARGeometry},
		{name: "empty GCP id", payload: `{"gcp": {"gcps": [{"id": "", "row": 1, "col": 1}]}}`},
	}
	for _, tc := range cases {
		_, err := LoadImageMetadata(strings.NewReader(tc.payload))
		if err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if err := WriteImageMetadata(&bytes.Buffer{}, nil); err == nil {
		t.Fatalf("expected an error for nil metadata")
	}
}
