// Command blockrandomizer drives one epoch of the block randomizer
// against a configured deserializer and reports minibatch statistics.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
	"gonum.org/v1/gonum/stat"

	cfgpkg "blockrandomizer/internal/config"
	"blockrandomizer/internal/diag"
)

// cliOptions is the go-flags option struct; long/short flags mirror
// the JSON config's top-level knobs for the overrides a run commonly
// needs from the command line.
type cliOptions struct {
	ConfigFile  string `short:"c" long:"config" description:"path to a JSON config file"`
	InitConfig  string `long:"init-config" optional:"true" optional-value:"." description:"write a default config.json into DIR and exit"`
	Concurrency int    `long:"concurrency" description:"override concurrency (decoration stage worker count)"`
	NumWorkers  uint64 `long:"num-workers" description:"override epoch.num_workers (sharding)"`
	WorkerRank  uint64 `long:"worker-rank" description:"override epoch.worker_rank"`
	LogLevel    string `long:"log-level" description:"override logging.level (debug|info|warn|error)"`
	TraceDir    string `long:"trace-dir" description:"override trace.dir (enables the residency trace writer)"`
	Quiet       bool   `short:"q" long:"quiet" description:"disable the terminal progress surface"`
}

func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := genCorrID()
	logger := diag.NewLogger(corrID, "info")

	var opts cliOptions
	parser := flags.NewParser(&opts, flags.Default)
	rest, err := parser.Parse()
	if err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "flag parse: %v\n", err)
		return 2
	}

	if opts.InitConfig != "" {
		// go-flags only binds an optional value written as
		// --init-config=DIR; a DIR given as the next argument arrives
		// as a positional argument instead.
		if opts.InitConfig == "." && len(rest) > 0 {
			opts.InitConfig = rest[0]
		}
		dir := opts.InitConfig
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "init-config: %v\n", err)
			return 3
		}
		path := filepath.Join(dir, "config.json")
		if err := writeConfigFile(path, cfgpkg.DefaultTemplateConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "init-config: %v\n", err)
			return 3
		}
		return 0
	}

	cfg := cfgpkg.Defaults()
	if opts.ConfigFile != "" {
		raw, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
			return 3
		}
		base, err := cfgpkg.LoadJSON(opts.ConfigFile, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
			return 3
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	envOver, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fmt.Fprintf(os.Stderr, "env overlay: %v\n", err)
		return 3
	}
	cfg = cfgpkg.Merge(cfg, envOver)

	var cliOver cfgpkg.Config
	if opts.Concurrency > 0 {
		cliOver.Concurrency = opts.Concurrency
	}
	if opts.NumWorkers > 0 {
		cliOver.Epoch.NumWorkers = opts.NumWorkers
	}
	cliOver.Epoch.WorkerRank = opts.WorkerRank
	if opts.LogLevel != "" {
		cliOver.Logging.Level = opts.LogLevel
	}
	if opts.TraceDir != "" {
		cliOver.Trace.Dir = opts.TraceDir
	}
	cfg = cfgpkg.Merge(cfg, cliOver)

	if err := cfgpkg.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "validate config: %v\n", err)
		logger.Error("cli", string(diag.Classify(err)), "config rejected", &start)
		return 3
	}

	if cfg.Logging.Level != "" {
		logger = diag.NewLogger(corrID, cfg.Logging.Level)
	}

	term := diag.NewTerminal(os.Stderr, !opts.Quiet)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	ctx := context.Background()
	asm, err := cfgpkg.Assemble(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "assemble: %v\n", err)
		logger.Error("cli", string(diag.Classify(err)), "assembly failed", &start)
		return 3
	}
	defer asm.Packer.Close()

	term.RunStart(int(cfg.Epoch.NumWorkers), effDeserName(cfg))

	epochCfg := cfgpkg.ToEpochConfig(cfg.Epoch)
	if err := asm.Randomizer.StartEpoch(ctx, epochCfg); err != nil {
		fmt.Fprintf(os.Stderr, "start epoch: %v\n", err)
		logger.Error("randomizer", string(diag.Classify(err)), "start_epoch failed", &start)
		term.RunFinish(false, time.Since(start))
		return 1
	}

	epochID := fmt.Sprintf("epoch-%d", epochCfg.Index)
	term.EpochStart(epochID, 0)
	timer := logger.StartWith("randomizer", "epoch started", epochID, "")

	var batchSizes []float64
	batches := 0
	samples := 0
	currentSweep := asm.Randomizer.CurrentSweep()
	for {
		mb, err := asm.Packer.ReadMinibatch(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read minibatch: %v\n", err)
			logger.ErrorWith("packer", string(diag.Classify(err)), "read_minibatch failed", &start, epochID, "")
			term.EpochFinish(false, time.Since(start))
			term.RunFinish(false, time.Since(start))
			return 1
		}
		if len(mb.Streams) > 0 {
			n := int(mb.Streams[0].Layout.NumParallel)
			batches++
			samples += n
			batchSizes = append(batchSizes, float64(n))
			term.EpochProgress(batches, batches, 0)
		}
		if sw := asm.Randomizer.CurrentSweep(); sw != currentSweep {
			if err := asm.Trace.RecordSweep(currentSweep, asm.Randomizer.RandomizedTimeline()); err != nil {
				logger.ErrorWith("trace", string(diag.Classify(err)), "record_sweep failed", &start, epochID, "")
			}
			currentSweep = sw
		}
		if mb.AtEndOfEpoch {
			break
		}
	}
	if err := asm.Trace.RecordSweep(currentSweep, asm.Randomizer.RandomizedTimeline()); err != nil {
		logger.ErrorWith("trace", string(diag.Classify(err)), "record_sweep failed", &start, epochID, "")
	}

	timer.Finish("epoch finished", int64(samples))
	term.EpochFinish(true, time.Since(start))

	if len(batchSizes) > 0 {
		mean := stat.Mean(batchSizes, nil)
		var stddev float64
		if len(batchSizes) > 1 {
			stddev = stat.StdDev(batchSizes, nil)
		}
		logger.DebugStart("cli", "minibatch size statistics", epochID, "", map[string]string{
			"batches":     fmt.Sprintf("%d", batches),
			"samples":     fmt.Sprintf("%d", samples),
			"mean_size":   fmt.Sprintf("%.3f", mean),
			"stddev_size": fmt.Sprintf("%.3f", stddev),
		})
	}

	diag.IncOp("cli", "run", "success")
	diag.ObserveDuration("cli", "run", time.Since(start).Milliseconds())

	snap := diag.TakeSnapshot()
	logger.DebugStart("cli", "metrics snapshot", epochID, "", map[string]string{
		"residency_success":     fmt.Sprintf("%d", snap.OpTotal[[3]string{"randomizer", "residency", "success"}]),
		"read_minibatch_avg_ms": fmt.Sprintf("%.3f", snap.AvgDur[[2]string{"packer", "read_minibatch"}]),
	})

	term.RunFinish(true, time.Since(start))

	if !errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintf(os.Stdout, "epoch %d: %d batches, %d samples\n", epochCfg.Index, batches, samples)
	}
	return 0
}

func effDeserName(cfg cfgpkg.Config) string {
	if cfg.Components.Deserializer != "" {
		return cfg.Components.Deserializer
	}
	return cfgpkg.Defaults().Components.Deserializer
}

func writeConfigFile(path string, cfg cfgpkg.Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	_, err = f.Write([]byte("\n"))
	return err
}

func genCorrID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
