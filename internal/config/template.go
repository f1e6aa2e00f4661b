package config

import "encoding/json"

// DefaultTemplateConfig returns a runnable default configuration
// template: in-memory deserializer with two small chunks, one dense
// float32 stream, sharding disabled (single worker).
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Randomizer: Randomizer{
			RandomizationRangeInSamples: 0,
			Verbosity:                   0,
		},
		Epoch: Epoch{
			Index:         0,
			TotalSize:     0,
			FullSweep:     true,
			MinibatchSize: d.Epoch.MinibatchSize,
			WorkerRank:    0,
			NumWorkers:    d.Epoch.NumWorkers,
		},
		Streams: []Stream{
			{Name: "features", ElementType: "float32", Storage: "dense", NumElements: 4},
		},
		Concurrency: d.Concurrency,
		Logging:     Logging{Level: "info"},
		Components:  d.Components,
	}
	cfg.Options.Deserializer = json.RawMessage(`{
  "chunks": [
    {"samples": [[0,0,0,0],[1,1,1,1],[2,2,2,2],[3,3,3,3]]},
    {"samples": [[4,4,4,4],[5,5,5,5],[6,6,6,6],[7,7,7,7]]}
  ]
}`)
	return cfg
}
