package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/hackademics/runjumpski/internal/core/config"
	"github.com/hackademics/runjumpski/internal/core/events/bus"
	"github.com/hackademics/runjumpski/internal/core/observability/log"
	"github.com/hackademics/runjumpski/internal/core/scene"
	"github.com/hackademics/runjumpski/internal/core/simulation/collision"
	"github.com/hackademics/runjumpski/internal/core/simulation/particles"
	"github.com/hackademics/runjumpski/internal/core/simulation/projectile"
	"github.com/hackademics/runjumpski/internal/core/simulation/quality"
	"github.com/hackademics/runjumpski/internal/core/simulation/runtime"
	"github.com/hackademics/runjumpski/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults apply when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, _, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(log.ParseLevel(cfg.Logging.Level))
	events := bus.New()

	world := scene.NewWorld(mgl64.Vec3{0, -9.81, 0})
	meshes := scene.NewMeshFactory()

	collisions, err := collision.NewSystem(cfg.Collision, logger)
	if err != nil {
		return err
	}

	projectiles, err := projectile.NewPhysics(cfg.Projectile, projectile.PoolSizing{
		Prewarm: cfg.Pools.ProjectilePrewarm,
		Max:     cfg.Pools.ProjectileMax,
	}, logger, events)
	if err != nil {
		return err
	}
	projectiles.Initialize(world, meshes, collisions, true)
	defer projectiles.Dispose()

	effects, err := particles.NewManager(scene.NewEmitterFactory(), particles.PoolSizing{
		Prewarm: cfg.Pools.EffectPrewarm,
		Max:     cfg.Pools.EffectMax,
	}, logger, events)
	if err != nil {
		return err
	}
	defer effects.Dispose()

	controller, err := quality.NewController(cfg.Quality, logger, events)
	if err != nil {
		return err
	}
	controller.AddTunable(runtime.ParticleTunable{Manager: effects})

	engine, err := runtime.NewEngine(cfg.Runtime, runtime.Deps{
		World:       world,
		Projectiles: projectiles,
		Collisions:  collisions,
		Particles:   effects,
		Quality:     controller,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		telemetryCfg := server.DefaultConfig()
		telemetryCfg.ListenAddr = cfg.Telemetry.Addr
		if cfg.Telemetry.PushIntervalMillis > 0 {
			telemetryCfg.PushInterval = time.Duration(cfg.Telemetry.PushIntervalMillis) * time.Millisecond
		}
		telemetry, serverErr := server.NewServer(telemetryCfg, engine, events, logger)
		if serverErr != nil {
			return serverErr
		}
		if serverErr = telemetry.Start(ctx); serverErr != nil {
			return serverErr
		}
		defer func() { _ = telemetry.Close() }()
	}

	if err = engine.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
