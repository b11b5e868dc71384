// Command editor opens a level in the ImGui level editor.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/rtx/editor"
	editorebiten "github.com/plus3/rtx/editor/ebiten"
	"github.com/plus3/rtx/editor/ui"
	"github.com/plus3/rtx/engine"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file; defaults are used when empty.")
	levelPath := flag.String("level", "", "Level to open, overriding game.start_level.")
	assetsRoot := flag.String("assets", "", "Asset root, overriding assets.root.")
	savePath := flag.String("save", "", "Write the level here when the editor closes.")
	flag.Parse()

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

	viewport := editorebiten.NewViewport(cfg.Window.Width, cfg.Window.Height)
	app, cleanup, err := engine.InitializeApplication(cfg, viewport)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer cleanup()

	backend := editorebiten.NewImguiBackend(cfg.Window.Title+" editor", cfg.Window.Width, cfg.Window.Height)

	ed := editor.New(app.Factory, app.Events, app.Scheduler, app.Renderer, app.Levels, app.Logger)
	defer ed.Close()
	app.Scheduler.Register(ui.NewSystem(ed))

	if _, err := ed.CreateCamera(); err != nil {
		log.Fatalf("Failed to create editor camera: %v", err)
	}
	if err := app.Start(); err != nil {
		log.Fatalf("Failed to open level: %v", err)
	}

	game := editorebiten.NewGame(ed, backend, viewport)
	game.Done = app.Done
	ebiten.SetTPS(cfg.Game.FrameRate)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatalf("Editor stopped: %v", err)
	}

	if *savePath != "" {
		if err := save(ed, *savePath); err != nil {
			log.Fatalf("Failed to save level: %v", err)
		}
		app.Logger.Info("level written", zap.String("path", *savePath))
	}
	app.Levels.Unload()
}

func save(ed *editor.Editor, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ed.SaveLevel(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
