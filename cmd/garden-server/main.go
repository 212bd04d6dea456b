// Command garden-server runs the persistent garden simulation: a timer
// (and a manual trigger endpoint) drive the tick orchestrator, viewers
// watch over WebSocket, and everything durable lives in SQLite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/engine"
	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/infra/storage"
	"github.com/AllStack11/chaos-garden-sub002/internal/network"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/metrics"
	"github.com/AllStack11/chaos-garden-sub002/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (empty = embedded defaults)")
	flag.Parse()

	log := logger.NewLogger()
	cfg := config.MustLoad(*configPath)

	seed := cfg.Garden.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	log.Infof("garden seed %d", seed)

	db, err := storage.InitSQLite(cfg.Server.DBPath)
	if err != nil {
		log.Errorf("opening database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := storage.NewSQLiteGardenRepository(db)
	control := storage.NewSQLiteSimulationControl(db)
	rec := events.NewRecorder()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.SeedGarden(ctx, cfg, repo, rng, log); err != nil {
		log.Errorf("seeding garden: %v", err)
		os.Exit(1)
	}

	orch := engine.NewOrchestrator(cfg, repo, control, rec, log, rng)

	exporter, err := telemetry.NewExporter(cfg.Telemetry.OutputDir)
	if err != nil {
		log.Errorf("preparing telemetry: %v", err)
		os.Exit(1)
	}

	hub := network.NewHub(log, func(action, detail string) {
		// Interventions land in the next tick's event batch.
		state, err := repo.LatestGardenState(ctx)
		if err != nil {
			log.Errorf("intervention dropped, no garden state: %v", err)
			return
		}
		rec.LogUserIntervention(state.Tick+1, action, detail)
	})
	go hub.Run(ctx)

	runTick := func() {
		result, err := orch.RunTick(ctx)
		if err != nil {
			log.Errorf("tick failed: %v", err)
			return
		}
		if !result.Executed {
			return
		}
		hub.BroadcastTick(result)
		hub.BroadcastEvents(result.Events)
		if exporter != nil {
			recordTelemetry(ctx, exporter, repo, log)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("websocket upgrade: %v", err)
			return
		}
		client := network.NewClient(hub, conn)
		client.Register()
		go client.WritePump()
		go client.ReadPump()
	})
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		state, err := repo.LatestGardenState(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	})
	mux.HandleFunc("/api/tick", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		runTick()
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/metrics", metrics.PrometheusHandler())
	mux.HandleFunc("/metrics.json", metrics.Handler())

	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server: %v", err)
			stop()
		}
	}()

	ticker := time.NewTicker(time.Duration(cfg.Server.TickInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
			if exporter != nil {
				if err := exporter.Flush(); err != nil {
					log.Errorf("flushing telemetry: %v", err)
				}
			}
			return
		case <-ticker.C:
			runTick()
		}
	}
}

func recordTelemetry(ctx context.Context, exporter *telemetry.Exporter, repo storage.GardenRepository, log *logger.Logger) {
	state, err := repo.LatestGardenState(ctx)
	if err != nil {
		log.Errorf("telemetry snapshot: %v", err)
		return
	}
	ents, err := repo.LivingEntities(ctx)
	if err != nil {
		log.Errorf("telemetry entities: %v", err)
		return
	}
	exporter.Record(state, ents)
	if err := exporter.Flush(); err != nil {
		log.Errorf("telemetry flush: %v", err)
	}
}
