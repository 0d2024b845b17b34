package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketScan/internal/domain/repository"
	"MarketScan/internal/providers"
	"MarketScan/pkg/config"
	xhttp "MarketScan/pkg/http"
	applogger "MarketScan/pkg/logger"
)

// App encapsulates the entire application lifecycle: the HTTP boundary, the
// optional quote stream warming the cache, and the optional event publisher.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	stream      *providers.QuoteStream
	publisher   repository.Publisher
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance. Stream and publisher may be nil.
func New(cfg *config.Config, log *applogger.Logger, handler xhttp.Handler,
	stream *providers.QuoteStream, publisher repository.Publisher) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		stream:      stream,
		publisher:   publisher,
		httpHandler: handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if lp, ok := a.publisher.(applogger.Publisher); ok {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.Topic + ".logs",
			Publisher:      lp,
		})
	}

	if a.stream != nil {
		go a.stream.Run(ctx)
		a.log.Info("quote stream started", applogger.Strings("symbols", a.cfg.Stream.Symbols))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.log.Warn("quote stream close error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		a.log.RemoveCollector()
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
