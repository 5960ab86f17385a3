package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/cellarena/config"
	"github.com/pthm-cable/cellarena/game"
	"github.com/pthm-cable/cellarena/network"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	listen := flag.String("listen", "", "Address for the spectator WebSocket server (empty = disabled)")
	class := flag.String("class", "", "Player class (empty = use config)")
	name := flag.String("name", "", "Player name (empty = use config)")
	realtime := flag.Bool("realtime", false, "Pace frames by wall clock instead of running as fast as possible")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	g, err := game.New(cfg, game.Options{
		Seed:           rngSeed,
		PlayerName:     *name,
		PlayerClass:    *class,
		OutputDir:      *outputDir,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := g.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var hub *network.Hub
	if *listen != "" {
		hub = network.NewHub(g)
		go hub.Run(ctx)

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.ServeWS)
		srv := &http.Server{Addr: *listen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("spectator server failed", "error", err)
			}
		}()
		defer srv.Close()
		slog.Info("spectator server listening", "addr", *listen)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"realtime", *realtime,
	)

	run(ctx, g, hub, cfg, *maxTicks, *realtime)
}

// run drives frames until the tick limit, elimination without spectators,
// or interrupt.
func run(ctx context.Context, g *game.Game, hub *network.Hub, cfg *config.Config, maxTicks int, realtime bool) {
	step := cfg.Derived.Step
	last := time.Now()
	var lastSent int32 = -1
	var views []game.EntityView

	for {
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", g.Tick())
			return
		}

		elapsed := step
		if realtime {
			time.Sleep(step)
			now := time.Now()
			elapsed = now.Sub(last)
			last = now
		}

		err := g.Frame(elapsed)

		if hub != nil && g.Tick()-lastSent >= cfg.Network.SendIntervalTicks {
			views = g.Snapshot(views[:0])
			hub.Broadcast(network.Frame{
				Tick:        g.Tick(),
				Entities:    views,
				Progress:    g.Progress(),
				Leaderboard: g.Leaderboard(),
			})
			lastSent = g.Tick()
		}

		if errors.Is(err, game.ErrEliminated) {
			if hub == nil {
				slog.Info("simulation ended", "reason", "eliminated", "tick", g.Tick())
				return
			}
			g.RespawnPlayer()
		}

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return
		}
	}
}
