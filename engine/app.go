package engine

import (
	"context"
	"time"

	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/factory"
	"github.com/plus3/rtx/level"
	"github.com/plus3/rtx/render"
	"github.com/plus3/rtx/resource"
	"github.com/plus3/rtx/script"
	"go.uber.org/zap"
)

// EventExit asks the application to stop after the current frame.
const EventExit = "ApplicationExit"

const subscriber event.SubscriberID = "application"

// Application holds the engine services of one process.
type Application struct {
	Config    *Config
	Logger    *zap.Logger
	Loader    *resource.Loader
	Events    *event.Manager
	Storage   *ecs.Storage
	Factory   *factory.Factory
	Interp    *script.Interpreter
	Scheduler *ecs.Scheduler
	Renderer  *render.System
	Levels    *level.Manager

	quit bool
}

func NewApplication(
	cfg *Config,
	logger *zap.Logger,
	loader *resource.Loader,
	events *event.Manager,
	storage *ecs.Storage,
	f *factory.Factory,
	interp *script.Interpreter,
	scheduler *ecs.Scheduler,
	renderer *render.System,
	levels *level.Manager,
) *Application {
	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Loader:    loader,
		Events:    events,
		Storage:   storage,
		Factory:   f,
		Interp:    interp,
		Scheduler: scheduler,
		Renderer:  renderer,
		Levels:    levels,
	}
	events.Subscribe(EventExit, subscriber, func(e *event.Event) {
		logger.Info("exit requested", zap.String("origin", e.Origin()))
		a.quit = true
	})
	return a
}

// Start loads the configured start level, if any.
func (a *Application) Start() error {
	if a.Config.Game.StartLevel == "" {
		return nil
	}
	_, err := a.Levels.Load(a.Config.Game.StartLevel)
	return err
}

// Frame advances the simulation by deltaMs.
func (a *Application) Frame(deltaMs float32) {
	a.Levels.Update(deltaMs)
}

// Quit makes Run return after the current frame.
func (a *Application) Quit() { a.quit = true }

func (a *Application) Done() bool { return a.quit }

// Run drives frames at the configured rate until ctx is cancelled or an exit is
// requested, then unloads the level.
func (a *Application) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.Config.FrameInterval())
	defer ticker.Stop()
	defer a.Levels.Unload()

	last := time.Now()
	for !a.quit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds() * 1000)
			last = now
			a.Frame(dt)
		}
	}
	return nil
}
