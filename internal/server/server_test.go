package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackademics/runjumpski/internal/core/events/bus"
	"github.com/hackademics/runjumpski/internal/core/scene"
	"github.com/hackademics/runjumpski/internal/core/simulation/collision"
	"github.com/hackademics/runjumpski/internal/core/simulation/projectile"
	"github.com/hackademics/runjumpski/internal/core/simulation/runtime"
)

func newTestServer(t *testing.T, events bus.EventBus) (*Server, *runtime.Engine, *projectile.Physics) {
	t.Helper()
	world := scene.NewWorld(mgl64.Vec3{0, -9.81, 0})
	colls, err := collision.NewSystem(collision.DefaultConfig(), nil)
	require.NoError(t, err)
	phys, err := projectile.NewPhysics(projectile.DefaultConfig(), projectile.PoolSizing{Prewarm: 2, Max: 8}, nil, events)
	require.NoError(t, err)
	phys.Initialize(world, scene.NewMeshFactory(), colls, false)

	engine, err := runtime.NewEngine(runtime.DefaultConfig(), runtime.Deps{
		World:       world,
		Projectiles: phys,
		Collisions:  colls,
	}, nil)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.PushInterval = 20 * time.Millisecond
	srv, err := NewServer(cfg, engine, events, nil)
	require.NoError(t, err)

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })
	return srv, engine, phys
}

func TestServerRejectsInvalidConfig(t *testing.T) {
	_, err := NewServer(Config{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestServerStartStopLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	assert.True(t, srv.GetStats().Running)
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)

	require.NoError(t, srv.Stop(context.Background()))
	assert.False(t, srv.GetStats().Running)
	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)
}

func TestStatsEndpointServesSnapshot(t *testing.T) {
	srv, engine, phys := newTestServer(t, nil)

	_, err := phys.CreateProjectile(projectile.SpawnParams{
		Start:     mgl64.Vec3{0, 50, 0},
		Direction: mgl64.Vec3{1, 0, 0},
	})
	require.NoError(t, err)
	engine.Step(1.0 / 60)

	resp, err := http.Get(fmt.Sprintf("http://%s/stats", srv.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap runtime.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.EqualValues(t, 1, snap.Ticks)
	assert.EqualValues(t, 1, snap.Projectiles.Spawned)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", srv.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketStreamGreetsWithSnapshot(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", srv.Addr()), nil)
	require.NoError(t, err)
	defer conn.Close()

	var f struct {
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "snapshot", f.Kind)
	assert.NotEmpty(t, f.Data)
}

func TestWebSocketStreamForwardsEvents(t *testing.T) {
	events := bus.New()
	srv, _, phys := newTestServer(t, events)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", srv.Addr()), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Drain the greeting snapshot first.
	var f struct {
		Kind string `json:"kind"`
		Type string `json:"type"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&f))
	require.Equal(t, "snapshot", f.Kind)

	_, err = phys.CreateProjectile(projectile.SpawnParams{
		Start:     mgl64.Vec3{0, 50, 0},
		Direction: mgl64.Vec3{1, 0, 0},
	})
	require.NoError(t, err)

	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&f))
		if f.Kind == "event" {
			assert.Equal(t, projectile.EventSpawned, f.Type)
			return
		}
	}
}

func TestClientCountTracksConnections(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", srv.Addr()), nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return srv.GetStats().ClientCount == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return srv.GetStats().ClientCount == 0 }, time.Second, 10*time.Millisecond)
}
