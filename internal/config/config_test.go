package config

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONTemplate(t *testing.T) {
	tmpl := DefaultTemplateConfig()
	raw, err := json.Marshal(tmpl)
	require.NoError(t, err)

	cfg, err := LoadJSON("", raw)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Components.Deserializer)
	assert.Len(t, cfg.Streams, 1)
	assert.NoError(t, Validate(cfg))
}

func TestLoadJSONUnknownField(t *testing.T) {
	_, err := LoadJSON("", []byte(`{"unknown_top_level_field":1}`))
	assert.Error(t, err)
}

func TestEnvOverlay(t *testing.T) {
	env := []string{
		"BLOCKRANDOMIZER_CONCURRENCY=4",
		"BLOCKRANDOMIZER_NUM_WORKERS=2",
		"BLOCKRANDOMIZER_WORKER_RANK=1",
		"BLOCKRANDOMIZER_COMPONENTS_DESERIALIZER=filechunks",
		"BLOCKRANDOMIZER_LOG_LEVEL=debug",
		"IRRELEVANT=ignored",
	}
	over, err := EnvOverlay(env)
	require.NoError(t, err)
	assert.Equal(t, 4, over.Concurrency)
	assert.Equal(t, uint64(2), over.Epoch.NumWorkers)
	assert.Equal(t, uint64(1), over.Epoch.WorkerRank)
	assert.Equal(t, "filechunks", over.Components.Deserializer)
	assert.Equal(t, "debug", over.Logging.Level)
}

func TestMergeLayering(t *testing.T) {
	base := Defaults()
	over := Config{Concurrency: 8, Components: Components{Deserializer: "filechunks"}}
	merged := Merge(base, over)
	assert.Equal(t, 8, merged.Concurrency)
	assert.Equal(t, "filechunks", merged.Components.Deserializer)
	assert.Equal(t, base.Epoch.MinibatchSize, merged.Epoch.MinibatchSize)
}

func TestValidateErrors(t *testing.T) {
	assert.Error(t, Validate(Config{}))

	cfg := DefaultTemplateConfig()
	cfg.Epoch.WorkerRank = cfg.Epoch.NumWorkers
	assert.Error(t, Validate(cfg))

	cfg = DefaultTemplateConfig()
	cfg.Streams[0].NumElements = 0
	assert.Error(t, Validate(cfg))

	cfg = DefaultTemplateConfig()
	cfg.Components.Deserializer = "does-not-exist"
	assert.Error(t, Validate(cfg))
}

func TestAssembleMemoryDeserializer(t *testing.T) {
	cfg := DefaultTemplateConfig()
	asm, err := Assemble(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, asm.Randomizer)
	require.NotNil(t, asm.Packer)

	err = asm.Randomizer.StartEpoch(context.Background(), ToEpochConfig(cfg.Epoch))
	require.NoError(t, err)

	mb, err := asm.Packer.ReadMinibatch(context.Background())
	require.NoError(t, err)
	// The template's 8 samples all fit in one 256-sample minibatch, so
	// the epoch ends during this first call.
	assert.True(t, mb.AtEndOfEpoch)
	assert.Len(t, mb.Streams, 1)
}

func TestAssembleWiresTraceWhenConfigured(t *testing.T) {
	cfg := DefaultTemplateConfig()
	cfg.Trace.Dir = t.TempDir()

	asm, err := Assemble(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, asm.Trace)

	err = asm.Randomizer.StartEpoch(context.Background(), ToEpochConfig(cfg.Epoch))
	require.NoError(t, err)

	_, err = asm.Packer.ReadMinibatch(context.Background())
	require.NoError(t, err)

	err = asm.Trace.RecordSweep(asm.Randomizer.CurrentSweep(), asm.Randomizer.RandomizedTimeline())
	require.NoError(t, err)

	entries, err := os.ReadDir(cfg.Trace.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "trace-worker-")
}

func TestAssembleWithoutTraceLeavesHandleNil(t *testing.T) {
	cfg := DefaultTemplateConfig()
	asm, err := Assemble(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, asm.Trace)
	// A nil handle is a safe no-op, matching the CLI's unconditional call style.
	assert.NoError(t, asm.Trace.RecordSweep(0, nil))
}
