// Команда edurise запускает API партнерской программы EduRise с прокси к AppTrove.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/app"
	"github.com/InQaaaaGit/edurise.git/internal/buildinfo"
	"github.com/InQaaaaGit/edurise.git/internal/config"
	"github.com/InQaaaaGit/edurise.git/internal/server"
)

// Задаются при сборке: -ldflags "-X main.buildVersion=v1.0.0 ..."
var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

const shutdownTimeout = 30 * time.Second

func main() {
	info := buildinfo.NewInfo(buildVersion, buildDate, buildCommit)
	info.Print()

	logger, cleanup := server.InitLogger()
	defer cleanup()

	cfg := server.InitConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, info); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// run запускает приложение и блокируется до отмены ctx или ошибки сервера
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, info *buildinfo.Info) error {
	logger.Info("Starting EduRise", info.Fields()...)

	application, err := app.NewApp(cfg, logger, app.Options{Build: info})
	if err != nil {
		return fmt.Errorf("error creating application: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("Error closing application", zap.Error(err))
		}
	}()

	srv := server.NewHTTPServer(application.GetServer(), cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return <-errCh
}
