// Package findata defines the persisted thermal-fin dataset container
// and its reader and writer.
//
// A dataset is a single NDJSON file: the first line is the Metadata
// block, every following line is one Record. Records are index-aligned —
// record i's parameter vector corresponds to record i's grid sample —
// and appear in generation order, so a run with a fixed seed and
// configuration reproduces the file byte for byte (given a pinned
// clock; see WithClock).
package findata

import "time"

// FormatVersion is written into every metadata block.
const FormatVersion = 1

// Domain is the axis-aligned bounding box the grid covers.
type Domain struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Metadata describes a dataset: grid shape, physical domain, generation
// seed and time, and the names of the parameters in each record, in
// vector order.
type Metadata struct {
	FormatVersion int       `json:"format_version"`
	GridWidth     int       `json:"grid_width"`
	GridHeight    int       `json:"grid_height"`
	Domain        Domain    `json:"domain"`
	Seed          uint64    `json:"seed"`
	GeneratedAt   time.Time `json:"generated_at"`
	Schema        []string  `json:"parameter_schema"`
}

// Record is one training sample: the parameter vector and the resampled
// temperature field with its validity mask. Values is row-major
// (GridWidth*GridHeight, y-major); Mask is parallel to Values and false
// where the grid cell lies outside the fin (those values are 0).
type Record struct {
	Index  int       `json:"index"`
	Params []float64 `json:"params"`
	Values []float64 `json:"values"`
	Mask   []bool    `json:"mask"`
}
