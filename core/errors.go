package core

import "errors"

var (
	ErrNoGCP                = errors.New("sar sensor model requires at least one GCP")
	ErrInsufficientOrbit    = errors.New("orbit table contains less than 2 records")
	ErrUnsortedOrbit        = errors.New("orbit record times are not strictly increasing")
	ErrMissingSARGeometry   = errors.New("image metadata has no SAR geometry")
	ErrInvalidSARGeometry   = errors.New("invalid SAR geometry")
	ErrNoBurstRecord        = errors.New("burst record table is empty")
	ErrNoConversionRecord   = errors.New("range conversion record table is empty")
	ErrBurstIndexOutOfRange = errors.New("burst index out of range")
)
