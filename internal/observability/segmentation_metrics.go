package observability

import "strconv"

// Burst operation labels.
const (
	OperationDeburst               = "deburst"
	OperationBurstExtraction       = "burst_extraction"
	OperationDeburstAndConcatenate = "deburst_and_concatenate"
)

// ObserveBurstOperation counts one burst segmentation call. applied is false
// when the geometry was left untouched (single burst, index out of range).
func (c *GeolocationCollector) ObserveBurstOperation(operation string, applied bool) {
	if c == nil || c.BurstOperations == nil {
		return
	}
	c.BurstOperations.WithLabelValues(operation, strconv.FormatBool(applied)).Inc()
}

// SetSegmentation publishes the current burst and GCP counts.
func (c *GeolocationCollector) SetSegmentation(bursts, gcps int) {
	if c == nil {
		return
	}
	if c.Bursts != nil {
		c.Bursts.Set(float64(bursts))
	}
	if c.GCPs != nil {
		c.GCPs.Set(float64(gcps))
	}
}
