package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blockrandomizer/internal/packer"
	"blockrandomizer/internal/randomizer"
	"blockrandomizer/internal/transform"
	"blockrandomizer/pkg/contract"
	"blockrandomizer/pkg/registry"
	"blockrandomizer/plugins/trace/filesystem"
)

// Validate checks the minimal necessary boundaries statically, before
// any component is constructed.
func Validate(cfg Config) error {
	if cfg.Epoch.MinibatchSize == 0 {
		return errors.New("config: epoch.minibatch_size must be > 0")
	}
	if cfg.Epoch.NumWorkers == 0 {
		return errors.New("config: epoch.num_workers must be >= 1")
	}
	if cfg.Epoch.WorkerRank >= cfg.Epoch.NumWorkers {
		return errors.New("config: epoch.worker_rank must be < epoch.num_workers")
	}
	if cfg.Concurrency < 1 {
		return errors.New("config: concurrency must be >= 1")
	}
	if len(cfg.Streams) == 0 {
		return errors.New("config: streams empty")
	}
	for _, s := range cfg.Streams {
		if s.Name == "" {
			return errors.New("config: stream name cannot be empty")
		}
		if s.NumElements <= 0 {
			return fmt.Errorf("config: stream %q num_elements must be > 0", s.Name)
		}
		if _, ok := elementTypeOf(s.ElementType); !ok {
			return fmt.Errorf("config: stream %q element_type %q unknown", s.Name, s.ElementType)
		}
		if s.Storage != "dense" && s.Storage != "sparse_csc" {
			return fmt.Errorf("config: stream %q storage %q unknown", s.Name, s.Storage)
		}
	}

	name := effName(cfg.Components.Deserializer, Defaults().Components.Deserializer)
	if registry.Deserializer[name] == nil {
		return fmt.Errorf("config: deserializer %q not registered", name)
	}
	return nil
}

func elementTypeOf(s string) (contract.ElementType, bool) {
	switch s {
	case "float32":
		return contract.Float32, true
	case "float64":
		return contract.Float64, true
	default:
		return 0, false
	}
}

// Assembled holds the constructed collaborators wired for one run.
type Assembled struct {
	Deserializer contract.Deserializer
	Randomizer   *randomizer.Randomizer
	Packer       *packer.Packer
	Source       *transform.Source
	// Trace is nil unless cfg.Trace.Dir is set. Callers drive
	// Trace.RecordSweep on sweep rollover; a nil receiver is a safe
	// no-op so call sites never need to check for nil themselves.
	Trace *TraceHandle
}

// Assemble constructs the deserializer, randomizer core and packer for
// cfg. Strict Options parsing happens inside the registry factory; this
// layer only passes raw JSON through.
func Assemble(ctx context.Context, cfg Config) (Assembled, error) {
	if err := Validate(cfg); err != nil {
		return Assembled{}, err
	}

	d := Defaults()
	dn := effName(cfg.Components.Deserializer, d.Components.Deserializer)

	deser, err := registry.Deserializer[dn](cfg.Options.Deserializer)
	if err != nil {
		return Assembled{}, fmt.Errorf("config: deserializer %q: %w", dn, err)
	}

	var residency contract.ResidencyObserver
	var traceHandle *TraceHandle
	if strings.TrimSpace(cfg.Trace.Dir) != "" {
		tw, err := filesystem.New(&filesystem.Options{Dir: cfg.Trace.Dir})
		if err != nil {
			return Assembled{}, fmt.Errorf("config: trace: %w", err)
		}
		collector := &residencyCollector{}
		residency = collector
		traceHandle = &TraceHandle{writer: tw, collector: collector, rank: cfg.Epoch.WorkerRank}
	}

	core, err := randomizer.New(ctx, deser, randomizer.Config{
		RandomizationRangeInSamples: cfg.Randomizer.RandomizationRangeInSamples,
		Verbosity:                   cfg.Randomizer.Verbosity,
		Residency:                   residency,
	})
	if err != nil {
		return Assembled{}, fmt.Errorf("config: randomizer: %w", err)
	}

	streams := make([]contract.StreamDescription, len(cfg.Streams))
	for i, s := range cfg.Streams {
		et, _ := elementTypeOf(s.ElementType)
		storage := contract.Dense
		if s.Storage == "sparse_csc" {
			storage = contract.SparseCSC
		}
		streams[i] = contract.StreamDescription{
			Name:        s.Name,
			ElementType: et,
			Storage:     storage,
			NumElements: s.NumElements,
		}
	}

	source := transform.NewSource(core)

	pk, err := packer.New(source, contract.HeapMemoryProvider{}, int(cfg.Epoch.MinibatchSize), streams)
	if err != nil {
		return Assembled{}, fmt.Errorf("config: packer: %w", err)
	}

	return Assembled{
		Deserializer: deser,
		Randomizer:   core,
		Packer:       pk,
		Source:       source,
		Trace:        traceHandle,
	}, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}

// ToEpochConfig converts the JSON-facing Epoch into the contract's
// EpochConfiguration, applying the FullSweep sentinel.
func ToEpochConfig(e Epoch) contract.EpochConfiguration {
	total := e.TotalSize
	if e.FullSweep || total == 0 {
		total = contract.FullSweep
	}
	return contract.EpochConfiguration{
		Index:         contract.EpochIndex(e.Index),
		TotalSize:     total,
		MinibatchSize: e.MinibatchSize,
		WorkerRank:    e.WorkerRank,
		NumWorkers:    e.NumWorkers,
	}
}
