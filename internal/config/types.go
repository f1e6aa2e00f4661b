package config

import "encoding/json"

// Config is the run's read-only configuration, parsed once and
// immutable thereafter. JSON uses snake_case; unknown fields fail
// parsing.
type Config struct {
	// Randomizer controls the core (§6 "Randomizer configuration").
	Randomizer Randomizer `json:"randomizer"`
	// Epoch arms the epoch cursor for the run (§6 "Epoch configuration").
	Epoch Epoch `json:"epoch"`
	// Streams declares the packer's output streams (§4.5, §6).
	Streams []Stream `json:"streams"`
	// Concurrency is the worker count for a decoration stage (§5). It
	// is validated (>= 1), but Assemble builds no decoration stage, so
	// it does not affect the assembled pipeline.
	Concurrency int `json:"concurrency"`

	Logging Logging `json:"logging"`

	// Trace optionally enables the cross-worker residency trace writer
	// (§4.6, §9 "Open questions").
	Trace Trace `json:"trace"`

	// Components selects implementation names from the registry (empty
	// uses Defaults()).
	Components Components `json:"components"`

	// Options carries each component's raw JSON options through to its
	// factory unmodified.
	Options Options `json:"options"`
}

// Randomizer mirrors §6's "Randomizer configuration".
type Randomizer struct {
	RandomizationRangeInSamples uint64 `json:"randomization_range_in_samples"`
	Verbosity                   uint32 `json:"verbosity"`
}

// Epoch mirrors §6's "Epoch configuration". FullSweep == true, or
// TotalSize == 0, means "one full sweep" (contract.FullSweep).
type Epoch struct {
	Index         uint64 `json:"index"`
	TotalSize     uint64 `json:"total_size"`
	FullSweep     bool   `json:"full_sweep"`
	MinibatchSize uint64 `json:"minibatch_size"`
	WorkerRank    uint64 `json:"worker_rank"`
	NumWorkers    uint64 `json:"num_workers"`
}

// Stream declares one packer output stream (contract.StreamDescription
// in JSON form).
type Stream struct {
	Name        string `json:"name"`
	ElementType string `json:"element_type"` // "float32" | "float64"
	Storage     string `json:"storage"`      // "dense" | "sparse_csc"
	NumElements int    `json:"num_elements"`
}

// Logging keeps only the level configurable; output path and rotation
// policy are fixed defaults.
type Logging struct {
	Level string `json:"level"`
}

// Trace configures the optional residency trace writer. Dir == ""
// disables it.
type Trace struct {
	Dir string `json:"dir"`
}

// Components selects registry implementation names.
type Components struct {
	Deserializer string `json:"deserializer"`
}

// Options carries each component's raw JSON options through to its
// factory.
type Options struct {
	Deserializer json.RawMessage `json:"deserializer"`
}
