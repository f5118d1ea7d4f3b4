// Command notifyd runs the notification worker, the retention janitor and the
// admin HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/dmitrymomot/schedkit/internal/app"
	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/requestid"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.FromConfig(cfg.Logger, logger.WithContextExtractors(requestid.LoggerExtractor()))
	logger.SetAsDefault(log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error("failed to close broker", logger.Error(err))
		}
	}()

	go watchdog(ctx, log)

	err = a.Run(ctx, func() { sdNotify(log, daemon.SdNotifyReady) })
	sdNotify(log, daemon.SdNotifyStopping)
	return err
}

// sdNotify is a no-op outside systemd.
func sdNotify(log *slog.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Warn("systemd notify failed", slog.String("state", state), logger.Error(err))
	}
}

// watchdog pings systemd at half the configured WatchdogSec until ctx is done.
func watchdog(ctx context.Context, log *slog.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}

	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sdNotify(log, daemon.SdNotifyWatchdog)
		}
	}
}
