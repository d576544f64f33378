package tswriter

import "time"

// Measurement names, fixed per spec §4.1.
const (
	MeasurementQuotesRaw        = "stock_quotes_raw"
	MeasurementQuotesAggregated = "stock_quotes_aggregated"
	MeasurementNews             = "news"
	MeasurementFundamentals     = "fundamentals"
)

// Point is a single normalised storage point: a measurement, its fixed
// tag-set, a field-value map and a timestamp. Writing a point with the
// same (measurement, tags, timestamp) as a prior point overwrites it —
// this is the mechanism that implements correction (spec I1).
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Time        time.Time
}
