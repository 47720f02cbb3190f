package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/engine/internal/boot"
	"github.com/l1jgo/engine/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path("config/engine.toml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("engine starting",
		zap.String("name", cfg.Engine.Name),
		zap.String("scene", cfg.Scene.Name),
		zap.Int("tick_rate", cfg.Engine.TickRate),
		zap.Bool("editor_mode", cfg.Engine.EditorMode),
	)

	// 3. Boot resources, scene, systems and the snapshot store
	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	eng, err := boot.New(bootCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	defer eng.Close()

	// 4. Restore the last snapshot, or spawn prefabs on a fresh scene
	restored, err := eng.Restore(bootCtx)
	if err != nil {
		return fmt.Errorf("restore scene: %w", err)
	}
	if !restored {
		if err := eng.SpawnPrefabFile(cfg.Scene.Prefabs); err != nil {
			return err
		}
	}
	log.Info("scene ready", zap.Int("entities", eng.Scene.EntityCount()), zap.Bool("restored", restored))
	if cfg.Logging.Format != "json" {
		printSection(eng.Scene.Name())
		printStat("resources", eng.Resources.Count())
		printStat("systems", len(eng.Scene.Systems()))
		printStat("entities", eng.Scene.EntityCount())
		printStat("behaviours", len(eng.Lua.Behaviours()))
		fmt.Println()
	}

	// 5. Run frames until interrupted or the frame limit is reached
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runErr := eng.Runner.Run(ctx)

	// 6. Save on the way out, even after a worker failure
	saveCtx, cancelSave := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSave()
	if err := eng.Snapshot(saveCtx); err != nil {
		log.Error("snapshot on shutdown failed", zap.Error(err))
	}
	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}
	log.Info("engine stopped", zap.Uint64("frames", eng.Runner.Frames()))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
