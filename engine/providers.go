package engine

import (
	"os"

	"github.com/google/wire"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/factory"
	"github.com/plus3/rtx/level"
	"github.com/plus3/rtx/render"
	"github.com/plus3/rtx/resource"
	"github.com/plus3/rtx/script"
	"go.uber.org/zap"
)

// ProviderSet builds every engine service from a *Config and a render.Device.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideLoader,
	ProvideEvents,
	ProvideBindings,
	ProvideSchema,
	ProvideInterpreter,
	ProvideRegistry,
	ProvideStorage,
	ProvideFactory,
	ProvideRenderSystem,
	ProvideScheduler,
	ProvideLevels,
	NewApplication,
)

func ProvideLogger(cfg *Config) (*zap.Logger, func(), error) {
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideLoader(cfg *Config, logger *zap.Logger) *resource.Loader {
	return resource.NewLoader(os.DirFS(cfg.Assets.Root), logger.Named("resource"))
}

func ProvideEvents(logger *zap.Logger) *event.Manager {
	return event.NewManager(logger.Named("event"))
}

// ProvideBindings returns the services scripts reach. Storage and Factory are
// filled in by their providers once they exist.
func ProvideBindings(events *event.Manager, loader *resource.Loader, logger *zap.Logger) *script.Bindings {
	return &script.Bindings{Events: events, Loader: loader, Logger: logger.Named("lua")}
}

func ProvideSchema(b *script.Bindings) (*script.Schema, error) {
	return script.NewEngineSchema(b)
}

func ProvideInterpreter(schema *script.Schema, logger *zap.Logger) (*script.Interpreter, func(), error) {
	interp, err := script.NewInterpreter(schema, logger.Named("script"))
	if err != nil {
		return nil, nil, err
	}
	return interp, interp.Close, nil
}

// ProvideRegistry registers every component type and freezes the registry.
func ProvideRegistry(
	cfg *Config,
	loader *resource.Loader,
	events *event.Manager,
	interp *script.Interpreter,
	logger *zap.Logger,
) (*ecs.ComponentRegistry, error) {
	policy, err := script.ParsePanicPolicy(cfg.Script.PanicPolicy)
	if err != nil {
		return nil, err
	}
	registry := ecs.NewComponentRegistry()
	component.Register(registry, component.Deps{Loader: loader, Logger: logger.Named("component")})
	script.Register(registry, &script.Runtime{
		Interp: interp,
		Events: events,
		Loader: loader,
		Logger: logger.Named("script"),
		Policy: policy,
	})
	registry.Freeze()
	return registry, nil
}

func ProvideStorage(registry *ecs.ComponentRegistry, b *script.Bindings) *ecs.Storage {
	storage := ecs.NewStorage(registry)
	b.Storage = storage
	return storage
}

func ProvideFactory(storage *ecs.Storage, loader *resource.Loader, b *script.Bindings, logger *zap.Logger) *factory.Factory {
	f := factory.New(storage, loader, logger.Named("factory"))
	b.Factory = f
	return f
}

func ProvideRenderSystem(device render.Device, logger *zap.Logger) *render.System {
	return render.NewSystem(device, logger.Named("render"))
}

// ProvideScheduler registers the frame systems in execution order: transforms,
// component updates, scripts, then rendering.
func ProvideScheduler(
	storage *ecs.Storage,
	registry *ecs.ComponentRegistry,
	renderer *render.System,
	logger *zap.Logger,
) *ecs.Scheduler {
	scheduler := ecs.NewScheduler(storage, logger.Named("scheduler"))
	scheduler.Register(&component.TransformSystem{})
	scheduler.Register(component.NewUpdateSystem(registry, component.ScriptID))
	scheduler.Register(script.System{})
	scheduler.Register(renderer)
	return scheduler
}

func ProvideLevels(
	f *factory.Factory,
	loader *resource.Loader,
	events *event.Manager,
	scheduler *ecs.Scheduler,
	renderer *render.System,
	logger *zap.Logger,
) *level.Manager {
	return level.NewManager(f, loader, events, scheduler, renderer, logger.Named("level"))
}
