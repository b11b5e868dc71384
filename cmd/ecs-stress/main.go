package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/engine"
	"github.com/plus3/rtx/render"
	"golang.org/x/tools/txtar"
)

//go:embed assets.txtar
var assets []byte

var classes = []string{"classes/crate.json", "classes/lamp.json", "classes/drone.json"}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	churn := flag.Int("churn", 10, "Entities destroyed and recreated every frame.")
	logLevel := flag.String("log-level", "warn", "Engine log level.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	log.Println("Starting ECS stress test...")

	root, err := extract(assets)
	if err != nil {
		log.Fatalf("Failed to unpack assets: %v", err)
	}
	defer os.RemoveAll(root)

	cfg := engine.DefaultConfig()
	cfg.Log.Level = *logLevel
	cfg.Assets.Root = root
	cfg.Game.StartLevel = "levels/stress.json"

	device := render.NewRecordingDevice(1)
	app, cleanup, err := engine.InitializeApplication(cfg, device)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer cleanup()
	if err := app.Start(); err != nil {
		log.Fatalf("Failed to load level: %v", err)
	}

	log.Printf("Populating storage with %d entities...\n", *entityCount)
	live := make([]ecs.EntityId, 0, *entityCount)
	spawn := func() {
		e, err := app.Factory.CreateEntityFromClass(classes[rand.Intn(len(classes))], nil, false)
		if err != nil {
			log.Fatalf("Failed to spawn entity: %v", err)
		}
		live = append(live, e.ID())
	}
	for i := 0; i < *entityCount; i++ {
		spawn()
	}
	log.Println("Population complete.")

	report := &Report{
		Duration:       *duration,
		Entities:       app.Storage.Len(),
		Components:     len(app.Storage.Registry().Types()),
		Classes:        app.Factory.ClassCount(),
		Churn:          *churn,
		GCPauseMetrics: *gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Printf("Running simulation for %s...\n", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	var totalUpdates int64
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			for i := 0; i < *churn && len(live) > 0; i++ {
				j := rand.Intn(len(live))
				if !app.Storage.Destroy(live[j]) {
					report.StaleHandles++
				}
				live[j] = live[len(live)-1]
				live = live[:len(live)-1]
				spawn()
			}

			updateStart := time.Now()
			app.Frame(float32(deltaTime.Seconds() * 1000))
			updateDuration := time.Since(updateStart)

			report.UpdateTime.Samples = append(report.UpdateTime.Samples, updateDuration)
			totalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = totalUpdates
	report.UpdateTime.Finalize()
	report.Scheduler = app.Scheduler.GetStats()
	report.Render = app.Renderer.Stats()
	report.EventDepth = app.Events.MaxDepth()
	runtime.ReadMemStats(&report.MemStatsEnd)

	app.Levels.Unload()
	log.Println("Simulation finished.")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress test complete.")
}

// extract writes the archive's files under a fresh temporary directory.
func extract(data []byte) (string, error) {
	root, err := os.MkdirTemp("", "rtx-stress-")
	if err != nil {
		return "", err
	}
	for _, f := range txtar.Parse(data).Files {
		path := filepath.Join(root, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return "", err
		}
	}
	return root, nil
}
