package core

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/sar-sensor-model/model"
)

// Product types whose samples are in ground range geometry.
var grdProductTypes = map[string]struct{}{
	"GRD": {},
	"MGD": {},
	"GEC": {},
	"EEC": {},
}

// IsGRDProductType reports whether productType names a ground range product.
func IsGRDProductType(productType string) bool {
	_, ok := grdProductTypes[strings.ToUpper(strings.TrimSpace(productType))]
	return ok
}

// productGeometry selects how range time maps to image samples. It is one of
// slcGeometry or grdGeometry, chosen once at construction.
type productGeometry interface {
	isProductGeometry()
}

// slcGeometry: samples are range time since the near range, at the range
// sampling rate.
type slcGeometry struct {
	rangeSamplingRate float64
}

// grdGeometry: samples are ground range divided by the pixel spacing.
type grdGeometry struct {
	rangeResolution float64
	slantToGround   []model.CoordinateConversionRecord
	groundToSlant   []model.CoordinateConversionRecord
}

func (slcGeometry) isProductGeometry() {}
func (grdGeometry) isProductGeometry() {}

func newProductGeometry(productType string, sar model.SARParam) (productGeometry, error) {
	if IsGRDProductType(productType) {
		if len(sar.SlantRangeToGroundRangeRecords) == 0 {
			return nil, fmt.Errorf("%w: %s product needs slant to ground range records", ErrNoConversionRecord, productType)
		}
		if sar.RangeResolution <= 0 {
			return nil, fmt.Errorf("%w: range resolution must be positive, got %v", ErrInvalidSARGeometry, sar.RangeResolution)
		}
		return grdGeometry{
			rangeResolution: sar.RangeResolution,
			slantToGround:   sar.SlantRangeToGroundRangeRecords,
			groundToSlant:   sar.GroundRangeToSlantRangeRecords,
		}, nil
	}
	if sar.RangeSamplingRate <= 0 {
		return nil, fmt.Errorf("%w: range sampling rate must be positive, got %v", ErrInvalidSARGeometry, sar.RangeSamplingRate)
	}
	return slcGeometry{rangeSamplingRate: sar.RangeSamplingRate}, nil
}
