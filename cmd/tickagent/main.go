package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tickagent/internal/app"
	"tickagent/internal/config"
	"tickagent/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv(".env")
	cfgPath := os.Getenv("TICKAGENT_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	llmFile, err := setupLLMLogOutput(cfg.App.LLMLog)
	if err != nil {
		log.Fatalf("open llm log: %v", err)
	}
	if llmFile != nil {
		defer llmFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableLLMPayloadDump(cfg.App.LLMDump)
	logger.Infof("config loaded (env=%s, provider=%s, mothership=%s)", cfg.App.Env, cfg.AI.ProviderName(), cfg.Mothership.URL)

	if _, err := os.Stat(cfgPath); err == nil {
		if err := config.WatchLogLevel(cfgPath, func(level string) {
			logger.SetLevel(level)
			logger.Infof("log level now %s", logger.Level())
		}); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		}
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("build app: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
	logger.Infof("shutdown complete")
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

// setupLLMLogOutput routes assistant traffic to path; an empty path turns
// the LLM log off. Raw payloads are added only with app.llm_dump_payload.
func setupLLMLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		logger.SetLLMWriter(nil)
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetLLMWriter(f)
	return f, nil
}
