// Command game runs a level headless, or in a wireframe window with -window.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/profile"
	"github.com/plus3/rtx/devtools"
	"github.com/plus3/rtx/ecs"
	editorebiten "github.com/plus3/rtx/editor/ebiten"
	"github.com/plus3/rtx/engine"
	"github.com/plus3/rtx/render"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file; defaults are used when empty.")
	levelPath := flag.String("level", "", "Level to load, overriding game.start_level.")
	assetsRoot := flag.String("assets", "", "Asset root, overriding assets.root.")
	window := flag.Bool("window", false, "Open a window with a wireframe view instead of running headless.")
	devtoolsAddr := flag.String("devtools", "", "Serve the devtools event tap on this address.")
	profileMode := flag.String("profile", "", "Profile the run: cpu, mem, block, mutex or trace.")
	profileDir := flag.String("profile-dir", ".", "Directory for profile output.")
	flag.Parse()

	if p := profiler(*profileMode, *profileDir); p != nil {
		defer p.Stop()
	}

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		loaded, err := engine.LoadConfigFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *levelPath != "" {
		cfg.Game.StartLevel = *levelPath
	}
	if *assetsRoot != "" {
		cfg.Assets.Root = *assetsRoot
	}
	if *devtoolsAddr != "" {
		cfg.Devtools.Enabled = true
		cfg.Devtools.Addr = *devtoolsAddr
	}

	if err := run(cfg, *window); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *engine.Config, window bool) error {
	var (
		device   render.Device
		viewport *editorebiten.Viewport
	)
	if window {
		viewport = editorebiten.NewViewport(cfg.Window.Width, cfg.Window.Height)
		device = viewport
	} else {
		device = render.NewRecordingDevice(1)
	}

	app, cleanup, err := engine.InitializeApplication(cfg, device)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Devtools.Enabled {
		server := devtools.NewServer(app.Events, app.Logger.Named("devtools"))
		app.Scheduler.AfterFrame(func(*ecs.UpdateFrame) { server.Pump() })
		g.Go(func() error { return server.ListenAndServe(ctx, cfg.Devtools.Addr) })
	}

	if err := app.Start(); err != nil {
		return err
	}
	app.Logger.Info("game started", zap.String("level", cfg.Game.StartLevel), zap.Bool("window", window))

	var loopErr error
	if window {
		ebiten.SetWindowTitle(cfg.Window.Title)
		ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
		ebiten.SetTPS(cfg.Game.FrameRate)
		loopErr = ebiten.RunGame(&game{app: app, viewport: viewport, ctx: ctx})
	} else if err := app.Run(ctx); !errors.Is(err, context.Canceled) {
		loopErr = err
	}

	// Stops the devtools server.
	stop()
	return errors.Join(loopErr, g.Wait())
}

// game shows the level through the wireframe viewport.
type game struct {
	app      *engine.Application
	viewport *editorebiten.Viewport
	ctx      context.Context
}

func (g *game) Update() error {
	if g.app.Done() || g.ctx.Err() != nil {
		g.app.Levels.Unload()
		return ebiten.Termination
	}
	g.app.Frame(1000 / float32(ebiten.TPS()))
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.viewport.Image(), nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.viewport.Resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

func profiler(mode, dir string) interface{ Stop() } {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	case "block":
		opt = profile.BlockProfile
	case "mutex":
		opt = profile.MutexProfile
	case "trace":
		opt = profile.TraceProfile
	default:
		log.Fatalf("Unknown profile mode %q", mode)
	}
	return profile.Start(opt, profile.ProfilePath(dir), profile.NoShutdownHook)
}
