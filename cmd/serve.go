package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luma/countdown/internal/env"
	"github.com/luma/countdown/internal/meta"
	"github.com/luma/countdown/internal/ops"
	"github.com/luma/countdown/storage"
	"github.com/luma/countdown/transport"
)

// shutdownGrace is how long running countdowns get to finish once we have
// been asked to stop. Anything still running after that is cut off.
const shutdownGrace = 5 * time.Second

func serve(parentCtx context.Context, port int) error {
	ctx, signalStop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer signalStop()

	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return err
	}

	log, err := env.MakeLogger(conf.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Starting", meta.GetInfo().Field())

	// Every countdown holds a connection open for as long as it runs
	fileLimit, err := setFileLimit()
	if err != nil {
		log.Warn("Failed to raise file limit", zap.Error(err))
	} else {
		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))
	}

	store := storage.NewInmemoryStore()
	defer store.Close()

	redThreshold := conf.RedThreshold

	tcp := transport.NewTCP(transport.Options{
		Host:         conf.Host,
		Port:         port,
		Reuseport:    conf.Reuseport,
		NumListeners: conf.NumListeners,
		ParseMode:    conf.ParseMode(),
		RedThreshold: &redThreshold,
		ReadTimeout:  conf.ReadTimeout,
		Store:        store,
		Log:          log.Named("transport"),
	})

	if err := tcp.Start(ctx); err != nil {
		return err
	}

	var httpServer *http.Server
	if conf.HTTPPort != "" {
		httpServer = &http.Server{
			Addr:    net.JoinHostPort(conf.Host, conf.HTTPPort),
			Handler: ops.NewRouter(store, conf.DebugHTTP, log.Named("ops")),
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()
	}

	log.Info("Listening",
		zap.Stringer("addr", tcp.Addr()),
		zap.String("parseMode", conf.ParseMode().String()),
		zap.Uint64("redThreshold", conf.RedThreshold),
		zap.String("httpPort", conf.HTTPPort))

	// Listen for the interrupt signal.
	<-ctx.Done()

	// Restore default behavior on the interrupt signal and notify user of shutdown.
	signalStop()
	log.Info("Shutting down gracefully, press Ctrl+C again to force",
		zap.Int("activeCountdowns", tcp.ActiveCountdowns()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if httpServer != nil {
		httpServer.SetKeepAlivesEnabled(false)

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}
	}

	if err := tcp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Countdowns still running, cutting them off", zap.Error(err))
	}

	if err := tcp.Close(); err != nil {
		log.Error("TCP server forced to shutdown", zap.Error(err))
	}

	log.Info("Exiting")
	return nil
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
