//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/hackademics/runjumpski/internal/core/events/bus"
	"github.com/hackademics/runjumpski/internal/core/observability/log"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelDebug)
}

func ProvideEventBus() bus.EventBus {
	wire.Build(bus.New)
	return nil
}
