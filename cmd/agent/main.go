package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heimdex/ivtc-agent/internal/api"
	"github.com/heimdex/ivtc-agent/internal/catalog"
	"github.com/heimdex/ivtc-agent/internal/config"
	"github.com/heimdex/ivtc-agent/internal/db"
	"github.com/heimdex/ivtc-agent/internal/logging"
	"github.com/heimdex/ivtc-agent/internal/pipelines"
	"github.com/heimdex/ivtc-agent/internal/session"
	"github.com/heimdex/ivtc-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting ivtc agent",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())
	catalogSvc := catalog.NewService(repo, logging.WithComponent(logger, "catalog"))

	authToken := cfg.AuthToken()
	if authToken == "" {
		if authToken, err = ensureAuthToken(repo); err != nil {
			return fmt.Errorf("failed to ensure auth token: %w", err)
		}
	}

	fmt.Println()
	fmt.Printf("  IVTC Agent %s\n", config.Version)
	fmt.Printf("  API URL:    http://127.0.0.1:%d/api/v1\n", cfg.Port())
	fmt.Printf("  Auth Token: %s\n", authToken)
	fmt.Println()

	sessions := session.NewRegistry(catalogSvc.PathResolver, cfg.UndoSteps(), logging.WithComponent(logger, "session"))

	pipeCfg := pipelines.Config{
		PythonPath:     cfg.MetricsPython(),
		ModuleName:     cfg.MetricsModule(),
		ArtifactsBase:  cfg.ArtifactsDir(),
		DoctorTimeout:  cfg.DoctorTimeout(),
		MetricsTimeout: cfg.MetricsTimeout(),
		Logger:         logging.WithComponent(logger, "pipelines"),
	}

	var pipeRunner pipelines.Runner
	var doctor *pipelines.CachedDoctor

	pr, err := pipelines.NewRunner(pipeCfg)
	if err != nil {
		logger.Warn("metrics tool unavailable, metrics jobs disabled", "error", err)
	} else {
		pipeRunner = pr
		doctor = pipelines.NewCachedDoctor(pr, logger)

		initCtx, initCancel := context.WithTimeout(context.Background(), pipeCfg.DoctorTimeout)
		if caps, err := doctor.Refresh(initCtx); err != nil {
			logger.Warn("initial doctor probe failed", "error", err)
		} else {
			logger.Info("metrics tool capabilities detected",
				"field_match", caps.HasFieldMatch,
				"decimation", caps.HasDecimation,
				"scene_change", caps.HasSceneChange,
				"deps", fmt.Sprintf("%d/%d", caps.Summary.Available, caps.Summary.Total),
			)
		}
		initCancel()
	}

	runner := catalog.NewRunner(catalogSvc, repo, sessions, pipeRunner, doctor, logging.WithComponent(logger, "runner"))
	runner.SetPollInterval(cfg.JobPollInterval())

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		AuthToken: authToken,
		Catalog:   catalogSvc,
		Sessions:  sessions,
		Runner:    runner,
		Doctor:    doctor,
		Logger:    logger,
		StartTime: startTime,
		Version:   config.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runner.Start(gctx)
		return nil
	})
	g.Go(func() error {
		sessions.RunAutosave(gctx, cfg.AutosaveInterval())
		return nil
	})
	g.Go(func() error {
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
		return nil
	})

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Runner:   runner,
			Sessions: sessions,
			Logger:   logging.WithComponent(logger, "tray"),
			Port:     cfg.Port(),
			OnQuit:   stop,
		})
		go tray.Run()
	}

	err = g.Wait()
	if tray != nil {
		tray.Quit()
	}

	if saved, saveErr := sessions.SaveModified(); saveErr != nil {
		logger.Error("failed to save projects on shutdown", "error", saveErr)
	} else if saved > 0 {
		logger.Info("saved projects on shutdown", "count", saved)
	}

	logger.Info("shutdown complete")
	return err
}

// ensureAuthToken returns the persisted API token, creating one on first
// start.
func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
