package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"

	"github.com/b0bbywan/go-odio-portal/api"
	"github.com/b0bbywan/go-odio-portal/backend"
	"github.com/b0bbywan/go-odio-portal/config"
	"github.com/b0bbywan/go-odio-portal/logger"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if help, _ := flags.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage of %s %s:\n", config.AppName, config.AppVersion)
		flags.PrintDefaults()
		return
	}

	cfg, err := config.New(flags)
	if err != nil {
		logger.Fatal("[%s] Failed to load config: %v", config.AppName, err)
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetPackageLevels(cfg.LogLevels)

	// Global context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backend.New(ctx, cfg)
	if err != nil {
		logger.Fatal("[%s] Backend initialization failed: %v", config.AppName, err)
	}

	if err := b.Start(); err != nil {
		b.Close()
		logger.Fatal("[%s] Backend start failed: %v", config.AppName, err)
	}

	server := api.NewServer(cfg.Api, b)

	notify(daemon.SdNotifyReady)
	logger.Info("[%s] started", config.AppName)

	if server != nil {
		if err := server.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[%s] http server error: %v", config.AppName, err)
			stop()
		}
	}

	<-ctx.Done()
	logger.Info("[%s] Shutdown signal received, stopping...", config.AppName)
	notify(daemon.SdNotifyStopping)

	// ends the remote session before the bus connection goes away
	b.Close()
	logger.Info("[%s] stopped", config.AppName)
}

// notify reports the service state to systemd when running under a notify unit.
func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("[%s] sd_notify %q failed: %v", config.AppName, state, err)
		return
	}
	if sent {
		logger.Debug("[%s] sd_notify %q", config.AppName, state)
	}
}
