package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Defaults returns a Config with safe defaults. Randomizer.RandomizationRangeInSamples
// is left at 0 (meaning: use the full dataset) unless set.
func Defaults() Config {
	return Config{
		Concurrency: 1,
		Epoch: Epoch{
			MinibatchSize: 256,
			NumWorkers:    1,
		},
		Components: Components{
			Deserializer: "memory",
		},
	}
}

// LoadJSON parses a Config from a file path or raw JSON bytes,
// rejecting unknown fields.
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge layers over on top of base: scalars and raw JSON are wholesale
// replaced where over sets them, never deep-merged.
func Merge(base, over Config) Config {
	out := base

	if over.Randomizer.RandomizationRangeInSamples != 0 {
		out.Randomizer.RandomizationRangeInSamples = over.Randomizer.RandomizationRangeInSamples
	}
	if over.Randomizer.Verbosity != 0 {
		out.Randomizer.Verbosity = over.Randomizer.Verbosity
	}

	if over.Epoch.Index != 0 {
		out.Epoch.Index = over.Epoch.Index
	}
	if over.Epoch.TotalSize != 0 {
		out.Epoch.TotalSize = over.Epoch.TotalSize
	}
	if over.Epoch.FullSweep {
		out.Epoch.FullSweep = true
	}
	if over.Epoch.MinibatchSize != 0 {
		out.Epoch.MinibatchSize = over.Epoch.MinibatchSize
	}
	if over.Epoch.NumWorkers != 0 {
		out.Epoch.NumWorkers = over.Epoch.NumWorkers
	}
	if over.Epoch.WorkerRank != 0 {
		out.Epoch.WorkerRank = over.Epoch.WorkerRank
	}

	if len(over.Streams) > 0 {
		out.Streams = cloneStreams(over.Streams)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	if strings.TrimSpace(over.Trace.Dir) != "" {
		out.Trace.Dir = strings.TrimSpace(over.Trace.Dir)
	}
	if over.Components.Deserializer != "" {
		out.Components.Deserializer = over.Components.Deserializer
	}
	if len(over.Options.Deserializer) > 0 {
		out.Options.Deserializer = cloneRaw(over.Options.Deserializer)
	}
	return out
}

// EnvOverlay builds a Config overlay from environment variables,
// prefix BLOCKRANDOMIZER_. Unrecognized keys are ignored.
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, "BLOCKRANDOMIZER_") {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len("BLOCKRANDOMIZER_") {
			continue
		}
		key := kv[:eq]
		val := kv[eq+1:]
		nk := strings.TrimPrefix(key, "BLOCKRANDOMIZER_")
		switch nk {
		case "RANDOMIZATION_RANGE_IN_SAMPLES":
			if v, err := atou64(val); err == nil {
				over.Randomizer.RandomizationRangeInSamples = v
			}
		case "VERBOSITY":
			if v, err := atou64(val); err == nil {
				over.Randomizer.Verbosity = uint32(v)
			}
		case "EPOCH_INDEX":
			if v, err := atou64(val); err == nil {
				over.Epoch.Index = v
			}
		case "EPOCH_TOTAL_SIZE":
			if v, err := atou64(val); err == nil {
				over.Epoch.TotalSize = v
			}
		case "EPOCH_FULL_SWEEP":
			over.Epoch.FullSweep = strings.TrimSpace(val) == "true"
		case "MINIBATCH_SIZE":
			if v, err := atou64(val); err == nil {
				over.Epoch.MinibatchSize = v
			}
		case "NUM_WORKERS":
			if v, err := atou64(val); err == nil {
				over.Epoch.NumWorkers = v
			}
		case "WORKER_RANK":
			if v, err := atou64(val); err == nil {
				over.Epoch.WorkerRank = v
			}
		case "CONCURRENCY":
			if v, err := atou64(val); err == nil {
				over.Concurrency = int(v)
			}
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "TRACE_DIR":
			over.Trace.Dir = strings.TrimSpace(val)
		case "COMPONENTS_DESERIALIZER":
			over.Components.Deserializer = strings.TrimSpace(val)
		case "OPTIONS_DESERIALIZER_JSON":
			if strings.TrimSpace(val) != "" {
				over.Options.Deserializer = json.RawMessage(val)
			}
		}
	}
	return over, nil
}

func cloneStreams(in []Stream) []Stream {
	if len(in) == 0 {
		return nil
	}
	out := make([]Stream, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func atou64(s string) (uint64, error) {
	var n uint64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
