package injector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/eca/internal/config"
	"github.com/zeusync/eca/internal/core/events/bus"
	"github.com/zeusync/eca/internal/core/models"
	"github.com/zeusync/eca/internal/core/schema/registry"
)

const schemaYAML = `
components:
  - name: position
    attributes:
      - {name: x, type: float64, default: 0.0}
      - {name: y, type: float64}
  - name: inventory
    attributes:
      - {name: items, type: list}
`

func isolate(t *testing.T) {
	prevRegistry := registry.SetDefault(registry.New())
	prevGlobal := models.SetGlobal(models.NewCollection())
	t.Cleanup(func() {
		registry.SetDefault(prevRegistry)
		models.SetGlobal(prevGlobal)
	})
}

func testConfig(t *testing.T) config.Config {
	file := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(file, []byte(schemaYAML), 0o600))

	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.SchemaFile = file
	cfg.LogLevel = "silent"
	return cfg
}

func TestInitializeRuntime(t *testing.T) {
	isolate(t)
	cfg := testConfig(t)
	cfg.ArbiterEnabled = true

	rt, cleanup, err := InitializeRuntime(cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, 2, rt.Registry.Len())
	assert.Same(t, models.Global(), rt.Collection)
	require.NotNil(t, rt.Arbiter)

	entity := models.New()
	require.NoError(t, rt.Collection.Add(entity))
	assert.True(t, entity.Arbitrated())

	require.NoError(t, entity.Propose(models.Proposal{Component: "position", Attribute: "x", Value: 4.0}))
	assert.Equal(t, 1, rt.Arbiter.Pending())
	require.NoError(t, rt.Arbiter.Commit(context.Background()))

	x, err := entity.Attribute("position", "x")
	require.NoError(t, err)
	assert.Equal(t, 4.0, x.Value())
}

func TestInitializeRuntimeBusMetricsAndSkip(t *testing.T) {
	isolate(t)
	cfg := testConfig(t)
	cfg.ArbiterEnabled = true
	cfg.MirrorSkip = bus.TypeAttributeProposed

	rt, cleanup, err := InitializeRuntime(cfg)
	require.NoError(t, err)
	defer cleanup()

	// Schemas registered from the file are replayed when the mirror starts.
	assert.Equal(t, uint64(2), rt.Bus.GetMetrics().Published)

	entity := models.New()
	require.NoError(t, rt.Collection.Add(entity))
	require.NoError(t, entity.Propose(models.Proposal{Component: "position", Attribute: "x", Value: 1.0}))

	m := rt.Bus.GetMetrics()
	assert.Equal(t, uint64(3), m.Published)
	assert.Equal(t, uint64(1), m.DroppedByFilters)
	assert.Equal(t, rt.Feed.Health().Bus, m)
}

func TestInitializeRuntimeWithoutArbiter(t *testing.T) {
	isolate(t)
	rt, cleanup, err := InitializeRuntime(testConfig(t))
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, rt.Arbiter)
	entity := models.New()
	require.NoError(t, rt.Collection.Add(entity))
	assert.False(t, entity.Arbitrated())
}

func TestInitializeRuntimeBadSchemaFile(t *testing.T) {
	isolate(t)
	cfg := testConfig(t)
	cfg.SchemaFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, _, err := InitializeRuntime(cfg)
	require.Error(t, err)
}

func TestRuntimeRun(t *testing.T) {
	isolate(t)
	rt, cleanup, err := InitializeRuntime(testConfig(t))
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	require.Eventually(t, func() bool { return rt.Feed.Addr() != "127.0.0.1:0" }, time.Second, 10*time.Millisecond)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+rt.Feed.Addr()+"/ws", nil)
	require.NoError(t, err)
	_ = conn.Close()

	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop")
	}
}
