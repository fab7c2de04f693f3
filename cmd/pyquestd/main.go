package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/api"
	"github.com/felixgeelhaar/pyquest/internal/config"
	"github.com/felixgeelhaar/pyquest/internal/queue"
	"github.com/felixgeelhaar/pyquest/internal/runner"
)

const (
	pidFileName = "pyquestd.pid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Ensure ~/.pyquest directory exists
	pyquestDir, err := config.EnsurePyQuestDir()
	if err != nil {
		return fmt.Errorf("ensure pyquest dir: %w", err)
	}

	// Local config covers the daemon itself; environment variables win
	// for anything they set.
	local, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load local config: %w", err)
	}

	// Setup logging
	logLevel := parseLogLevel(local.Daemon.LogLevel)
	logFile, err := setupLogging(pyquestDir, logLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	// Write PID file
	pidPath := filepath.Join(pyquestDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLocal(cfg, local, pyquestDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := api.NewApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer app.Close()

	executor, cleanup, err := buildExecutor(cfg)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}
	defer cleanup()

	runnerCfg := runner.DefaultServiceConfig()
	runnerCfg.MaxConcurrent = cfg.RunnerPoolSize
	runnerCfg.Logger = slog.Default()
	svc := runner.NewService(executor, runnerCfg)
	defer svc.Close()

	consumer := queue.NewConsumer(app.Queue(), svc.HandleJob, queue.ConsumerConfig{
		Workers: cfg.RunnerPoolSize,
	})
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start run consumer: %w", err)
	}
	defer consumer.Stop()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}

	srv := &http.Server{
		Addr:              local.Daemon.Bind + ":" + strconv.Itoa(cfg.Port),
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		cancel()
		close(done)
	}()

	slog.Info("pyquestd listening", "addr", srv.Addr, "executor", cfg.RunnerExecutor)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// applyLocal folds ~/.pyquest/config.yaml into the environment config for
// keys the environment did not set.
func applyLocal(cfg *config.Config, local *config.LocalConfig, pyquestDir string) {
	if os.Getenv("PORT") == "" && local.Daemon.Port > 0 {
		cfg.Port = local.Daemon.Port
	}
	if os.Getenv("RABBITMQ_URL") == "" && local.Queue.URL != "" {
		cfg.RabbitMQURL = local.Queue.URL
	}
	if os.Getenv("RUNNER_POOL_SIZE") == "" && local.Queue.Workers > 0 {
		cfg.RunnerPoolSize = local.Queue.Workers
	}
	if os.Getenv("RUNNER_EXECUTOR") == "" && local.Runner.Executor != "" {
		cfg.RunnerExecutor = local.Runner.Executor
	}
	if os.Getenv("RUNNER_IMAGE") == "" && local.Runner.Docker.Image != "" {
		cfg.RunnerImage = local.Runner.Docker.Image
	}
	if os.Getenv("RUNNER_MEMORY_MB") == "" && local.Runner.Docker.MemoryMB > 0 {
		cfg.RunnerMemoryMB = local.Runner.Docker.MemoryMB
	}
	if os.Getenv("RUNNER_CPU_LIMIT") == "" && local.Runner.Docker.CPULimit > 0 {
		cfg.RunnerCPULimit = local.Runner.Docker.CPULimit
	}
	if os.Getenv("RUNNER_TIMEOUT") == "" && local.Runner.Docker.TimeoutSeconds > 0 {
		cfg.RunnerTimeout = local.Runner.Docker.TimeoutSeconds
	}
	if os.Getenv("DATABASE_PATH") == "" {
		cfg.DatabasePath = filepath.Join(pyquestDir, "data", "pyquest.db")
	}
	if os.Getenv("COURSES_PATH") == "" {
		// Prefer a courses directory next to the daemon, fall back to ~/.pyquest
		coursesPath := local.Courses.Path
		if _, err := os.Stat(coursesPath); os.IsNotExist(err) {
			coursesPath = filepath.Join(pyquestDir, "courses")
		}
		cfg.CoursesPath = coursesPath
	}
}

func buildExecutor(cfg *config.Config) (runner.Executor, func(), error) {
	if cfg.RunnerExecutor == "local" {
		return runner.NewLocalExecutor(), func() {}, nil
	}
	exec, err := runner.NewDockerExecutor(runner.DockerConfig{
		Image:    cfg.RunnerImage,
		MemoryMB: cfg.RunnerMemoryMB,
		CPULimit: cfg.RunnerCPULimit,
	})
	if err != nil {
		return nil, nil, err
	}
	return exec, func() { exec.Close() }, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(pyquestDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(pyquestDir, "logs", "pyquestd.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})

	// Also log to stderr for foreground mode
	multiHandler := &multiHandler{
		handlers: []slog.Handler{
			handler,
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}),
		},
	}

	slog.SetDefault(slog.New(multiHandler))

	return logFile, nil
}

func writePIDFile(path string) error {
	pid := os.Getpid()
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
